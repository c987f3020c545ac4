package images

// ScaleMode selects how an image is sized inside the requested box.
type ScaleMode int

const (
	// Stretch fills the box exactly.
	Stretch ScaleMode = iota
	// FitWidth keeps the width and derives the height from the aspect ratio.
	FitWidth
	// FitHeight keeps the height and derives the width.
	FitHeight
	// FitBox scales uniformly so the image fits inside the box.
	FitBox
)

func (m ScaleMode) String() string {
	switch m {
	case Stretch:
		return "stretch"
	case FitWidth:
		return "fit-width"
	case FitHeight:
		return "fit-height"
	case FitBox:
		return "fit-box"
	}
	return "unknown"
}

// ParseScaleMode accepts the names returned by String.
func ParseScaleMode(s string) (ScaleMode, bool) {
	for m := Stretch; m <= FitBox; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return Stretch, false
}

// Size returns the drawn size of a pixelW x pixelH image for a w x h box.
func Size(mode ScaleMode, pixelW, pixelH int, w, h float64) (float64, float64) {
	if pixelW <= 0 || pixelH <= 0 {
		return w, h
	}
	iw, ih := float64(pixelW), float64(pixelH)
	switch mode {
	case FitWidth:
		return w, w * ih / iw
	case FitHeight:
		return h * iw / ih, h
	case FitBox:
		s := min(w/iw, h/ih)
		return iw * s, ih * s
	}
	return w, h
}

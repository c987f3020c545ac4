package document

import (
	"fmt"

	"github.com/wudi/thaipdf/images"
)

// Kind tags the variant held by a Content.
type Kind int

const (
	KindText Kind = iota + 1
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Content is one insertable item. Text uses Text, Align and, when
// MaxChars is positive, wraps with LineHeight spacing. Image uses Data,
// Width, Height and Scale.
type Content struct {
	Kind Kind
	X, Y float64

	Text       string
	Align      Align
	MaxChars   int
	LineHeight float64

	Data   []byte
	Width  float64
	Height float64
	Scale  images.ScaleMode
}

// TextContent builds a single-line text item.
func TextContent(text string, x, y float64, align Align) Content {
	return Content{Kind: KindText, Text: text, X: x, Y: y, Align: align}
}

// ImageContent builds an image item.
func ImageContent(data []byte, x, y, w, h float64, mode images.ScaleMode) Content {
	return Content{Kind: KindImage, Data: data, X: x, Y: y, Width: w, Height: h, Scale: mode}
}

// Insert draws c on page.
func (d *Document) Insert(page int, c Content) error {
	switch c.Kind {
	case KindText:
		if c.MaxChars > 0 {
			_, err := d.InsertWrappedText(c.Text, page, c.X, c.Y, c.MaxChars, c.LineHeight, c.Align)
			return err
		}
		return d.InsertText(c.Text, page, c.X, c.Y, c.Align)
	case KindImage:
		return d.InsertImageScaled(c.Data, page, c.X, c.Y, c.Width, c.Height, c.Scale)
	}
	return fmt.Errorf("unknown content kind %s", c.Kind)
}

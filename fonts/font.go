package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	gtfont "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrInvalidFont reports a payload that is not a usable TrueType font.
var ErrInvalidFont = errors.New("invalid TrueType font")

// Font descriptor flags (PDF 32000-1, 9.8.2).
const (
	FlagFixedPitch = 1 << 0
	FlagSymbolic   = 1 << 2
	FlagItalic     = 1 << 6
)

// Font is a parsed TrueType font. It is immutable after Parse and may be
// shared between documents; usage tracking lives elsewhere.
type Font struct {
	data      []byte
	face      *gtfont.Face
	upem      float64
	numGlyphs int

	// PostScriptName is the name used for /BaseFont.
	PostScriptName string
	// Metrics below are in glyph space (1/1000 em).
	Ascent      float64
	Descent     float64
	CapHeight   float64
	BBox        [4]float64
	ItalicAngle float64
	Flags       int
}

// Parse reads a TrueType payload. Fonts with CFF outlines, without a
// usable cmap or with a zero units-per-em are rejected with ErrInvalidFont.
func Parse(data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidFont)
	}
	ld, err := ot.NewLoader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	for _, tag := range []string{"glyf", "loca", "head", "hhea", "hmtx", "maxp", "cmap"} {
		if !ld.HasTable(ot.MustNewTag(tag)) {
			return nil, fmt.Errorf("%w: missing %q table", ErrInvalidFont, tag)
		}
	}
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	if face.Upem() == 0 {
		return nil, fmt.Errorf("%w: zero units per em", ErrInvalidFont)
	}
	maxp, err := ld.RawTable(ot.MustNewTag("maxp"))
	if err != nil || len(maxp) < 6 {
		return nil, fmt.Errorf("%w: truncated maxp", ErrInvalidFont)
	}

	f := &Font{
		data:      data,
		face:      face,
		upem:      float64(face.Upem()),
		numGlyphs: int(binary.BigEndian.Uint16(maxp[4:6])),
		Flags:     FlagSymbolic,
	}
	if err := f.loadDescriptor(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	return f, nil
}

// loadDescriptor fills the descriptor metrics from x/image/font/sfnt. The
// ppem equals the units per em so values come back in font units.
func (f *Font) loadDescriptor() error {
	sf, err := sfnt.Parse(f.data)
	if err != nil {
		return err
	}
	var buf sfnt.Buffer
	upem := sf.UnitsPerEm()
	ppem := fixed.Int26_6(upem) << 6

	if ps, err := sf.Name(&buf, sfnt.NameIDPostScript); err == nil {
		f.PostScriptName = sanitizeName(ps)
	}
	if f.PostScriptName == "" {
		if family, err := sf.Name(&buf, sfnt.NameIDFamily); err == nil {
			f.PostScriptName = sanitizeName(family)
		}
	}
	if f.PostScriptName == "" {
		f.PostScriptName = "TrueTypeFont"
	}

	m, err := sf.Metrics(&buf, ppem, xfont.HintingNone)
	if err != nil {
		return err
	}
	f.Ascent = f.toGlyphSpace(m.Ascent)
	f.Descent = -f.toGlyphSpace(m.Descent)
	f.CapHeight = f.toGlyphSpace(m.CapHeight)
	if f.CapHeight == 0 {
		f.CapHeight = f.Ascent
	}
	if b, err := sf.Bounds(&buf, ppem, xfont.HintingNone); err == nil {
		// sfnt reports y growing downwards.
		f.BBox = [4]float64{
			f.toGlyphSpace(b.Min.X), -f.toGlyphSpace(b.Max.Y),
			f.toGlyphSpace(b.Max.X), -f.toGlyphSpace(b.Min.Y),
		}
	}
	if post := sf.PostTable(); post != nil {
		f.ItalicAngle = post.ItalicAngle
		if post.IsFixedPitch {
			f.Flags |= FlagFixedPitch
		}
	}
	if f.ItalicAngle != 0 {
		f.Flags |= FlagItalic
	}
	return nil
}

func (f *Font) toGlyphSpace(v fixed.Int26_6) float64 {
	return float64(v) / 64 * 1000 / f.upem
}

// sanitizeName drops characters that are not allowed in a PostScript name.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune("()<>[]{}/%#", r) {
			return -1
		}
		return r
	}, s)
}

// Data returns the original payload.
func (f *Font) Data() []byte { return f.data }

// UnitsPerEm returns the design grid size.
func (f *Font) UnitsPerEm() float64 { return f.upem }

// NumGlyphs returns maxp.numGlyphs.
func (f *Font) NumGlyphs() int { return f.numGlyphs }

// GlyphID returns the nominal glyph for r.
func (f *Font) GlyphID(r rune) (uint16, bool) {
	gid, ok := f.face.NominalGlyph(r)
	if !ok || gid == 0 || int(gid) >= f.numGlyphs {
		return 0, false
	}
	return uint16(gid), true
}

// Covers reports whether the cmap maps r to a real glyph.
func (f *Font) Covers(r rune) bool {
	_, ok := f.GlyphID(r)
	return ok
}

// FirstMissing returns the first rune of text the font cannot draw.
func (f *Font) FirstMissing(text string) (rune, bool) {
	for _, r := range text {
		if !f.Covers(r) {
			return r, true
		}
	}
	return 0, false
}

// AdvanceUnits returns the horizontal advance of gid in font units.
func (f *Font) AdvanceUnits(gid uint16) float64 {
	return float64(f.face.HorizontalAdvance(ot.GID(gid)))
}

// GlyphWidth returns the advance of gid in glyph space (1/1000 em).
func (f *Font) GlyphWidth(gid uint16) float64 {
	return f.AdvanceUnits(gid) * 1000 / f.upem
}

// GlyphAdvance returns the advance of r at the given size. Runes without a
// glyph use the .notdef advance.
func (f *Font) GlyphAdvance(r rune, size float64) float64 {
	gid, _ := f.GlyphID(r)
	return f.AdvanceUnits(gid) / f.upem * size
}

// TextWidth sums the advances of text at the given size.
func (f *Font) TextWidth(text string, size float64) float64 {
	var units float64
	for _, r := range text {
		gid, _ := f.GlyphID(r)
		units += f.AdvanceUnits(gid)
	}
	return units / f.upem * size
}

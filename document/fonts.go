package document

import (
	"fmt"

	"github.com/wudi/thaipdf/fonts"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/observability"
)

type Weight int

const (
	WeightRegular Weight = iota
	WeightBold
)

func (w Weight) String() string {
	if w == WeightBold {
		return "bold"
	}
	return "regular"
}

type Style int

const (
	StyleNormal Style = iota
	StyleItalic
)

func (s Style) String() string {
	if s == StyleItalic {
		return "italic"
	}
	return "normal"
}

// Color is an RGB fill colour with components in 0..1.
type Color struct {
	R, G, B float64
}

// RGB builds a Color from 8-bit components.
func RGB(r, g, b uint8) Color {
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

var (
	Black = Color{}
	White = Color{1, 1, 1}
	Red   = Color{R: 1}
	Green = Color{G: 1}
	Blue  = Color{B: 1}
)

// Cursor is the text style applied by every insertion until changed.
type Cursor struct {
	Family string
	Size   float64
	Weight Weight
	Style  Style
	Color  Color
}

// FontFamilyData holds the TrueType payloads of a family. Regular is
// required; the other variants are optional.
type FontFamilyData struct {
	Regular    []byte
	Bold       []byte
	Italic     []byte
	BoldItalic []byte
}

// fontResource is one registered variant with its per-document usage.
type fontResource struct {
	name     string
	font     *fonts.Font
	usage    *fonts.Usage
	encoding *fonts.Encoding

	// ref is reserved the first time a page draws with the font.
	ref    raw.ObjectRef
	placed bool
}

type family struct {
	variants [4]*fontResource
}

func variantIndex(w Weight, s Style) int {
	i := 0
	if w == WeightBold {
		i |= 1
	}
	if s == StyleItalic {
		i |= 2
	}
	return i
}

func (f *family) variant(w Weight, s Style) *fontResource {
	return f.variants[variantIndex(w, s)]
}

// RegisterFont registers ttf as the regular variant of family id.
func (d *Document) RegisterFont(id string, ttf []byte) error {
	return d.RegisterFontVariant(id, WeightRegular, StyleNormal, ttf)
}

func (d *Document) RegisterFontVariant(id string, w Weight, s Style, ttf []byte) error {
	f, err := fonts.Parse(ttf)
	if err != nil {
		return fontError(id, err)
	}
	return d.RegisterParsedFont(id, w, s, f)
}

// RegisterParsedFont registers an already parsed font. A *fonts.Font may
// be shared by many documents; usage is tracked per document.
func (d *Document) RegisterParsedFont(id string, w Weight, s Style, f *fonts.Font) error {
	if f == nil {
		return fontError(id, fonts.ErrInvalidFont)
	}
	fam, ok := d.families[id]
	if !ok {
		fam = &family{}
		d.families[id] = fam
	}
	fr := &fontResource{
		name:     fmt.Sprintf("%s/%s-%s", id, w, s),
		font:     f,
		usage:    fonts.NewUsage(),
		encoding: fonts.NewEncoding(),
	}
	fam.variants[variantIndex(w, s)] = fr
	d.fontList = append(d.fontList, fr)
	d.logger.Debug("font registered",
		observability.String("family", id),
		observability.String("variant", fr.name),
		observability.String("postscript", f.PostScriptName),
		observability.Int("glyphs", f.NumGlyphs()))
	return nil
}

// RegisterFontFamily parses every payload of fam before registering any,
// so a bad variant leaves the document unchanged.
func (d *Document) RegisterFontFamily(id string, fam FontFamilyData) error {
	if len(fam.Regular) == 0 {
		return fmt.Errorf("%w: %s: regular variant is required", ErrInvalidFont, id)
	}
	type pending struct {
		w Weight
		s Style
		f *fonts.Font
	}
	var parsed []pending
	for _, v := range []struct {
		w    Weight
		s    Style
		data []byte
	}{
		{WeightRegular, StyleNormal, fam.Regular},
		{WeightBold, StyleNormal, fam.Bold},
		{WeightRegular, StyleItalic, fam.Italic},
		{WeightBold, StyleItalic, fam.BoldItalic},
	} {
		if len(v.data) == 0 {
			continue
		}
		f, err := fonts.Parse(v.data)
		if err != nil {
			return fontError(fmt.Sprintf("%s/%s-%s", id, v.w, v.s), err)
		}
		parsed = append(parsed, pending{v.w, v.s, f})
	}
	for _, p := range parsed {
		if err := d.RegisterParsedFont(id, p.w, p.s, p.f); err != nil {
			return err
		}
	}
	return nil
}

// Cursor returns the current text style.
func (d *Document) Cursor() Cursor { return d.cursor }

// SetFont selects family id at size. Weight and style are kept.
func (d *Document) SetFont(id string, size float64) error {
	if _, ok := d.families[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFont, id)
	}
	d.cursor.Family = id
	d.cursor.Size = size
	return nil
}

func (d *Document) SetFontSize(size float64) { d.cursor.Size = size }

// SetFontWeight fails with ErrUnknownFont unless the current family has
// the requested variant.
func (d *Document) SetFontWeight(w Weight) error {
	if err := d.checkVariant(w, d.cursor.Style); err != nil {
		return err
	}
	d.cursor.Weight = w
	return nil
}

func (d *Document) SetFontStyle(s Style) error {
	if err := d.checkVariant(d.cursor.Weight, s); err != nil {
		return err
	}
	d.cursor.Style = s
	return nil
}

func (d *Document) SetTextColor(c Color) { d.cursor.Color = c }

func (d *Document) checkVariant(w Weight, s Style) error {
	if d.cursor.Family == "" {
		return ErrNoFontSelected
	}
	if d.families[d.cursor.Family].variant(w, s) == nil {
		return fmt.Errorf("%w: %q has no %s %s variant", ErrUnknownFont, d.cursor.Family, w, s)
	}
	return nil
}

// SetFontFallback sets the families tried, in order, for characters the
// family id cannot draw.
func (d *Document) SetFontFallback(id string, fallbacks ...string) error {
	for _, name := range append([]string{id}, fallbacks...) {
		if _, ok := d.families[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFont, name)
		}
	}
	d.fallbacks[id] = append([]string(nil), fallbacks...)
	return nil
}

// currentFont resolves the cursor to a registered variant.
func (d *Document) currentFont() (*fontResource, error) {
	if d.cursor.Family == "" {
		return nil, ErrNoFontSelected
	}
	fr := d.families[d.cursor.Family].variant(d.cursor.Weight, d.cursor.Style)
	if fr == nil {
		return nil, fmt.Errorf("%w: %q has no %s %s variant", ErrUnknownFont, d.cursor.Family, d.cursor.Weight, d.cursor.Style)
	}
	return fr, nil
}

// textRun is a stretch of text drawn with one font.
type textRun struct {
	font  *fontResource
	text  string
	width float64
}

// splitRuns assigns every rune the first font of the chain that covers
// it. Fallback families use the cursor's variant, or their regular face
// when that variant is missing.
func (d *Document) splitRuns(primary *fontResource, text string, size float64) ([]textRun, error) {
	chain := []*fontResource{primary}
	for _, id := range d.fallbacks[d.cursor.Family] {
		fam := d.families[id]
		fr := fam.variant(d.cursor.Weight, d.cursor.Style)
		if fr == nil {
			fr = fam.variant(WeightRegular, StyleNormal)
		}
		if fr != nil {
			chain = append(chain, fr)
		}
	}

	var runs []textRun
	start := 0
	var current *fontResource
	for i, r := range text {
		fr := pick(chain, r)
		if fr == nil {
			if d.missing != Notdef {
				return nil, fmt.Errorf("%w: %q (U+%04X) in %s", ErrMissingGlyph, r, r, primary.name)
			}
			fr = primary
		}
		if current != nil && fr != current {
			runs = append(runs, textRun{font: current, text: text[start:i]})
			start = i
		}
		current = fr
	}
	if current != nil {
		runs = append(runs, textRun{font: current, text: text[start:]})
	}
	for i := range runs {
		runs[i].width = runs[i].font.font.TextWidth(runs[i].text, size)
	}
	return runs, nil
}

func pick(chain []*fontResource, r rune) *fontResource {
	for _, fr := range chain {
		if fr.font.Covers(r) {
			return fr
		}
	}
	return nil
}

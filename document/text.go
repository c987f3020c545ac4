package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/thaipdf/fonts"
	"github.com/wudi/thaipdf/observability"
	"github.com/wudi/thaipdf/thai"
)

// Align positions text relative to the x coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	}
	return "left"
}

// ParseAlign accepts "left", "center" and "right".
func ParseAlign(s string) (Align, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return AlignLeft, nil
	case "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return AlignLeft, fmt.Errorf("unknown alignment %q", s)
}

// offset returns the shift applied to x for a line of the given width.
func (a Align) offset(width float64) float64 {
	switch a {
	case AlignCenter:
		return -width / 2
	case AlignRight:
		return -width
	}
	return 0
}

// txn stages an insertion. Every fallible step runs against staged
// state; commit then applies the page, resource and usage changes, none
// of which can fail.
type txn struct {
	d         *Document
	ctx       context.Context
	pages     map[int]*pageContent
	encodings map[*fontResource]*fonts.Encoding
	apply     []func()
}

func (d *Document) begin() *txn {
	return &txn{
		d:         d,
		ctx:       context.Background(),
		pages:     make(map[int]*pageContent),
		encodings: make(map[*fontResource]*fonts.Encoding),
	}
}

func (t *txn) page(n int) (*pageContent, error) {
	if pc, ok := t.d.content[n]; ok {
		return pc, nil
	}
	if pc, ok := t.pages[n]; ok {
		return pc, nil
	}
	pc, err := t.d.loadPage(t.ctx, n)
	if err != nil {
		return nil, err
	}
	t.pages[n] = pc
	return pc, nil
}

func (t *txn) reserve(fr *fontResource, text string) error {
	enc, ok := t.encodings[fr]
	if !ok {
		enc = fr.encoding.Clone()
		t.encodings[fr] = enc
	}
	if err := enc.Reserve(text); err != nil {
		return fmt.Errorf("%s: %w", fr.name, err)
	}
	return nil
}

func (t *txn) commit() {
	for n, pc := range t.pages {
		t.d.content[n] = pc
	}
	for fr, enc := range t.encodings {
		fr.encoding = enc
	}
	for _, f := range t.apply {
		f()
	}
}

// InsertText draws text on page with its baseline starting at (x, y),
// measured from the top-left corner of the page, shifted by align.
// Characters the current font lacks are drawn with the fallback
// families, in one text object.
func (d *Document) InsertText(text string, page int, x, y float64, align Align) error {
	t := d.begin()
	if err := d.planText(t, text, page, x, y, align); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (d *Document) planText(t *txn, text string, page int, x, y float64, align Align) error {
	if page < 1 || page > len(d.pages) {
		return pageError(page, len(d.pages))
	}
	primary, err := d.currentFont()
	if err != nil {
		return err
	}
	box, err := d.box(page)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	size := d.cursor.Size
	color := d.cursor.Color
	runs, err := d.splitRuns(primary, text, size)
	if err != nil {
		return err
	}
	codes := make([][]byte, len(runs))
	var width float64
	for i, run := range runs {
		if err := t.reserve(run.font, run.text); err != nil {
			return err
		}
		if codes[i], err = fonts.EncodeUTF16(run.text); err != nil {
			return err
		}
		width += run.width
	}
	pc, err := t.page(page)
	if err != nil {
		return err
	}

	origin := box.FromTopLeft(x+align.offset(width), y)
	t.apply = append(t.apply, func() {
		b := &pc.ops
		b.BeginText().FillRGB(color.R, color.G, color.B)
		for i, run := range runs {
			run.font.usage.Add(run.text)
			b.Font(pc.fontName(d, run.font), size)
			if i == 0 {
				b.MoveText(origin.X, origin.Y)
			} else {
				b.MoveText(runs[i-1].width, 0)
			}
			b.ShowHex(codes[i])
		}
		b.EndText()
		d.logger.Debug("text inserted",
			observability.Int("page", page),
			observability.Int("runs", len(runs)),
			observability.Float64("x", origin.X),
			observability.Float64("y", origin.Y),
			observability.Float64("width", width))
	})
	return nil
}

// InsertWrappedText breaks text into lines of at most maxChars
// characters at Thai word boundaries and draws them lineHeight apart,
// the first baseline at y. A lineHeight of zero or less means 1.2 times
// the font size. Either every line is drawn or none is.
func (d *Document) InsertWrappedText(text string, page int, x, y float64, maxChars int, lineHeight float64, align Align) (int, error) {
	seg := d.segmenter
	if seg == nil {
		var err error
		if seg, err = thai.DefaultSegmenter(); err != nil {
			return 0, err
		}
		d.segmenter = seg
	}
	if lineHeight <= 0 {
		lineHeight = d.cursor.Size * 1.2
	}
	lines := seg.WordWrap(text, maxChars)
	t := d.begin()
	if len(lines) == 0 {
		if err := d.planText(t, "", page, x, y, align); err != nil {
			return 0, err
		}
	}
	for i, line := range lines {
		if err := d.planText(t, line, page, x, y+float64(i)*lineHeight, align); err != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	t.commit()
	return len(lines), nil
}

// TextWidth measures text in points under the current cursor, with the
// same fallback splitting as InsertText.
func (d *Document) TextWidth(text string) (float64, error) {
	primary, err := d.currentFont()
	if err != nil {
		return 0, err
	}
	runs, err := d.splitRuns(primary, text, d.cursor.Size)
	if err != nil {
		return 0, err
	}
	var w float64
	for _, run := range runs {
		w += run.width
	}
	return w, nil
}

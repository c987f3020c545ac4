// Package document opens an existing PDF, places text and images on its
// pages and writes the result back out. Positions are given from the top
// left corner of the page, y growing downwards.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/wudi/thaipdf/contentstream"
	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/fonts"
	"github.com/wudi/thaipdf/images"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/observability"
	"github.com/wudi/thaipdf/parser"
	"github.com/wudi/thaipdf/recovery"
	"github.com/wudi/thaipdf/security"
	"github.com/wudi/thaipdf/thai"
	"github.com/wudi/thaipdf/writer"
)

// Document is an opened PDF together with the fonts, cursor and pending
// content of one render. It is not safe for concurrent use; open one
// Document per goroutine from the same bytes instead.
type Document struct {
	raw   *raw.Document
	pages []raw.ObjectRef

	families  map[string]*family
	fontList  []*fontResource
	fallbacks map[string][]string
	cursor    Cursor

	content map[int]*pageContent
	images  map[images.Key]*imageResource

	logger    observability.Logger
	tracer    observability.Tracer
	limits    security.Limits
	recovery  recovery.Strategy
	subset    bool
	compress  bool
	missing   GlyphPolicy
	segmenter *thai.Segmenter
}

type imageResource struct {
	img *images.Image
	ref raw.ObjectRef
}

// Open parses data and collects its pages.
func Open(data []byte, opts ...Option) (*Document, error) {
	d := &Document{
		families:  make(map[string]*family),
		fallbacks: make(map[string][]string),
		content:   make(map[int]*pageContent),
		images:    make(map[images.Key]*imageResource),
		cursor:    Cursor{Size: 12},
		logger:    observability.NopLogger{},
		tracer:    observability.NopTracer(),
		limits:    security.DefaultLimits(),
		subset:    true,
		compress:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.recovery == nil {
		d.recovery = recovery.NewLenientStrategy()
	}

	ctx, span := d.tracer.StartSpan(context.Background(), observability.SpanOpen)
	defer span.Finish()

	doc, err := parser.NewDocumentParser(parser.Config{Recovery: d.recovery, Limits: d.limits}).Parse(ctx, bytes.NewReader(data))
	if err != nil {
		span.SetError(err)
		return nil, openError(err)
	}
	if lenient, ok := d.recovery.(*recovery.LenientStrategy); ok {
		for _, e := range lenient.Errors {
			d.logger.Warn("recovered parse problem", observability.Error("error", e))
		}
	}
	d.raw = doc

	pages, err := collectPages(doc, d.limits.MaxPages)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	d.pages = pages
	span.SetTag("pages", len(pages))
	d.logger.Debug("document opened",
		observability.String("version", doc.Version),
		observability.Int("pages", len(pages)),
		observability.Int("objects", len(doc.Objects)))
	return d, nil
}

// PageCount returns the number of leaf pages in page tree order.
func (d *Document) PageCount() int { return len(d.pages) }

// Version returns the header version of the input.
func (d *Document) Version() string { return d.raw.Version }

// ToBytes serialises the document with every pending change applied.
// The live document is left untouched, so ToBytes can be called again
// and insertions can continue afterwards.
func (d *Document) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	ctx, span := d.tracer.StartSpan(context.Background(), observability.SpanWrite)
	defer span.Finish()

	out, err := d.finalize(ctx)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	n, err := writer.New(writer.Config{}).Write(ctx, out, w)
	if err != nil {
		span.SetError(err)
		return n, fmt.Errorf("write document: %w", err)
	}
	d.logger.Debug("document written", observability.Int64("bytes", n), observability.Int("objects", len(out.Objects)))
	return n, nil
}

// finalize applies pending fonts, images and page content to a copy of
// the object graph.
func (d *Document) finalize(ctx context.Context) (*raw.Document, error) {
	out := d.raw.Clone()

	for _, fr := range d.fontList {
		if !fr.placed || fr.usage.Len() == 0 {
			continue
		}
		_, span := d.tracer.StartSpan(ctx, observability.SpanSubset)
		span.SetTag("font", fr.name)
		err := fonts.Embed(out, fr.ref, fonts.Embedding{
			Font:     fr.font,
			Usage:    fr.usage,
			Encoding: fr.encoding,
			Subset:   d.subset,
			Compress: d.compress,
		})
		span.Finish()
		if err != nil {
			return nil, fmt.Errorf("embed font %s: %w", fr.name, err)
		}
		d.logger.Debug("font embedded",
			observability.String("font", fr.name),
			observability.Int("characters", fr.usage.Len()),
			observability.Bool("subset", d.subset))
	}

	for _, im := range d.images {
		out.Objects[im.ref] = im.img.XObject(d.compress)
	}

	var replaced []raw.ObjectRef
	pages := maps.Keys(d.content)
	slices.Sort(pages)
	for _, n := range pages {
		pc := d.content[n]
		if pc.ops.Len() == 0 {
			continue
		}
		page, ok := out.Dict(raw.Ref(pc.ref))
		if !ok {
			return nil, fmt.Errorf("%w: page %d vanished", ErrCorrupt, n)
		}
		data := d.mergeContent(ctx, n, pc)
		dict := raw.Dict()
		if d.compress {
			dict.Set("Filter", raw.NameLiteral("FlateDecode"))
			data = filters.FlateEncode(data)
		}
		page.Set("Contents", raw.Ref(out.Add(raw.NewStream(dict, data))))
		replaced = append(replaced, pc.contentRefs...)
	}
	dropUnreferencedContent(out, d.pages, replaced)
	return out, nil
}

// mergeContent wraps the existing content in q/Q, closing any saves it
// left open, and appends the new operators.
func (d *Document) mergeContent(ctx context.Context, page int, pc *pageContent) []byte {
	var buf bytes.Buffer
	if len(bytes.TrimSpace(pc.base)) > 0 {
		open, err := contentstream.UnbalancedSaves(ctx, pc.base)
		if err != nil {
			d.logger.Warn("existing content could not be scanned for q/Q balance",
				observability.Int("page", page), observability.Error("error", err))
			open = 0
		}
		buf.WriteString("q\n")
		buf.Write(pc.base)
		if pc.base[len(pc.base)-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.WriteString(strings.Repeat("Q\n", open+1))
	}
	buf.Write(pc.ops.Bytes())
	return buf.Bytes()
}

// dropUnreferencedContent removes replaced content streams that no page
// still draws.
func dropUnreferencedContent(doc *raw.Document, pages []raw.ObjectRef, replaced []raw.ObjectRef) {
	if len(replaced) == 0 {
		return
	}
	inUse := make(map[raw.ObjectRef]bool)
	for _, ref := range pages {
		page, ok := doc.Dict(raw.Ref(ref))
		if !ok {
			continue
		}
		for _, c := range contentRefs(doc, page) {
			inUse[c] = true
		}
	}
	for _, ref := range replaced {
		if !inUse[ref] {
			delete(doc.Objects, ref)
		}
	}
}

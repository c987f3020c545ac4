package document

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/wudi/thaipdf/contentstream"
	"github.com/wudi/thaipdf/coords"
	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/images"
	"github.com/wudi/thaipdf/ir/raw"
)

// maxInheritDepth bounds /Parent walks for inherited attributes.
const maxInheritDepth = 64

// collectPages walks the page tree from the catalog and returns the leaf
// pages in order. Kids already visited are skipped, so cyclic trees end.
func collectPages(doc *raw.Document, limit int) ([]raw.ObjectRef, error) {
	catalog, ok := doc.Catalog()
	if !ok {
		return nil, fmt.Errorf("%w: no catalog", ErrCorrupt)
	}
	root, ok := catalog.Get("Pages")
	if !ok {
		return nil, fmt.Errorf("%w: catalog has no /Pages", ErrCorrupt)
	}
	rootRef, ok := root.(raw.RefObj)
	if !ok {
		return nil, fmt.Errorf("%w: /Pages is not an indirect object", ErrCorrupt)
	}

	var pages []raw.ObjectRef
	visited := make(map[raw.ObjectRef]bool)
	var walk func(ref raw.ObjectRef) error
	walk = func(ref raw.ObjectRef) error {
		if visited[ref] {
			return nil
		}
		visited[ref] = true
		node, ok := doc.Dict(raw.Ref(ref))
		if !ok {
			return nil
		}
		typ, _ := doc.Name(doc.Get(node, "Type"))
		kids, hasKids := doc.Array(doc.Get(node, "Kids"))
		if typ == "Page" || (typ != "Pages" && !hasKids) {
			if limit > 0 && len(pages) >= limit {
				return fmt.Errorf("%w: more than %d pages", ErrCorrupt, limit)
			}
			pages = append(pages, ref)
			return nil
		}
		if !hasKids {
			return nil
		}
		for _, kid := range kids.Items {
			if kidRef, ok := kid.(raw.RefObj); ok {
				if err := walk(kidRef.R); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(rootRef.R); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: page tree has no pages", ErrCorrupt)
	}
	return pages, nil
}

func (d *Document) pageDict(page int) (*raw.DictObj, error) {
	if page < 1 || page > len(d.pages) {
		return nil, pageError(page, len(d.pages))
	}
	dict, ok := d.raw.Dict(raw.Ref(d.pages[page-1]))
	if !ok {
		return nil, fmt.Errorf("%w: page %d is not a dictionary", ErrCorrupt, page)
	}
	return dict, nil
}

// inherited looks key up on the page and then on its ancestors.
func (d *Document) inherited(page *raw.DictObj, key string) (raw.Object, bool) {
	node := page
	for i := 0; i < maxInheritDepth && node != nil; i++ {
		if v, ok := node.Get(key); ok && d.raw.Resolve(v) != nil {
			return v, true
		}
		parent, ok := node.Get("Parent")
		if !ok {
			break
		}
		node, _ = d.raw.Dict(parent)
	}
	return nil, false
}

// box returns the page's crop box, or its media box when it has none.
func (d *Document) box(page int) (coords.Box, error) {
	dict, err := d.pageDict(page)
	if err != nil {
		return coords.Box{}, err
	}
	for _, key := range []string{"CropBox", "MediaBox"} {
		v, ok := d.inherited(dict, key)
		if !ok {
			continue
		}
		r, ok := d.raw.Rect(v)
		if !ok || r[2]-r[0] <= 0 || r[3]-r[1] <= 0 {
			continue
		}
		return coords.Box{LLX: r[0], LLY: r[1], URX: r[2], URY: r[3]}, nil
	}
	return coords.Box{}, fmt.Errorf("%w: page %d", ErrMissingGeometry, page)
}

// PageHeight returns the height of the page's visible box in points.
func (d *Document) PageHeight(page int) (float64, error) {
	b, err := d.box(page)
	if err != nil {
		return 0, err
	}
	return b.Height(), nil
}

// PageSize returns the width and height of the page's visible box.
func (d *Document) PageSize(page int) (w, h float64, err error) {
	b, err := d.box(page)
	if err != nil {
		return 0, 0, err
	}
	return b.Width(), b.Height(), nil
}

// contentRefs lists the indirect objects making up a page's /Contents.
func contentRefs(doc *raw.Document, page *raw.DictObj) []raw.ObjectRef {
	v, ok := page.Get("Contents")
	if !ok {
		return nil
	}
	var refs []raw.ObjectRef
	if r, ok := v.(raw.RefObj); ok {
		refs = append(refs, r.R)
	}
	if arr, ok := doc.Array(v); ok {
		for _, it := range arr.Items {
			if r, ok := it.(raw.RefObj); ok {
				refs = append(refs, r.R)
			}
		}
	}
	return refs
}

// pageContent is the owned state of a page that received insertions.
type pageContent struct {
	ref  raw.ObjectRef
	dict *raw.DictObj

	// base is the decoded existing content, read once.
	base        []byte
	contentRefs []raw.ObjectRef
	ops         contentstream.Builder

	fontNames  map[*fontResource]string
	imageNames map[images.Key]string

	ownsResources bool
	ownedSubdicts map[string]bool
}

// loadPage decodes the page's existing content. Arrays of streams are
// joined with a newline in array order.
func (d *Document) loadPage(ctx context.Context, page int) (*pageContent, error) {
	dict, err := d.pageDict(page)
	if err != nil {
		return nil, err
	}
	pc := &pageContent{
		ref:           d.pages[page-1],
		dict:          dict,
		contentRefs:   contentRefs(d.raw, dict),
		fontNames:     make(map[*fontResource]string),
		imageNames:    make(map[images.Key]string),
		ownedSubdicts: make(map[string]bool),
	}

	var streams []*raw.StreamObj
	if v, ok := dict.Get("Contents"); ok {
		switch obj := d.raw.Resolve(v).(type) {
		case *raw.StreamObj:
			streams = append(streams, obj)
		case *raw.ArrayObj:
			for _, it := range obj.Items {
				if s, ok := d.raw.Stream(it); ok {
					streams = append(streams, s)
				}
			}
		}
	}

	pipeline := filters.NewStandardPipeline(filters.Limits{
		MaxDecompressedSize: d.limits.MaxDecompressedSize,
		MaxDecodeTime:       d.limits.MaxDecodeTime,
	})
	var buf bytes.Buffer
	for i, s := range streams {
		names, params := filters.ExtractFilters(s.Dict, d.raw.Resolve)
		data, err := pipeline.Decode(ctx, s.Data, names, params)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d content stream %d: %w", ErrCorrupt, page, i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	pc.base = buf.Bytes()
	return pc, nil
}

// resources returns the page's own resource dictionary, giving the page
// a private copy first when it inherits its resources or shares them
// through an indirect object.
func (pc *pageContent) resources(d *Document) *raw.DictObj {
	if pc.ownsResources {
		res, _ := pc.dict.Get("Resources")
		return res.(*raw.DictObj)
	}
	pc.ownsResources = true
	if v, ok := pc.dict.Get("Resources"); ok {
		if direct, ok := v.(*raw.DictObj); ok {
			return direct
		}
	}
	var effective *raw.DictObj
	if v, ok := d.inherited(pc.dict, "Resources"); ok {
		effective, _ = d.raw.Dict(v)
	}
	own := raw.ShallowCopyDict(effective)
	pc.dict.Set("Resources", own)
	return own
}

// subdict returns a private copy of a resource category such as /Font.
func (pc *pageContent) subdict(d *Document, category string) *raw.DictObj {
	res := pc.resources(d)
	if pc.ownedSubdicts[category] {
		v, _ := res.Get(category)
		return v.(*raw.DictObj)
	}
	pc.ownedSubdicts[category] = true
	var current *raw.DictObj
	if v, ok := res.Get(category); ok {
		current, _ = d.raw.Dict(v)
	}
	own := raw.ShallowCopyDict(current)
	res.Set(category, own)
	return own
}

// effective returns a category of the page's effective resources, or nil.
func (pc *pageContent) effective(d *Document, category string) *raw.DictObj {
	var res *raw.DictObj
	if pc.ownsResources {
		v, _ := pc.dict.Get("Resources")
		res, _ = v.(*raw.DictObj)
	} else if v, ok := d.inherited(pc.dict, "Resources"); ok {
		res, _ = d.raw.Dict(v)
	}
	if res == nil {
		return nil
	}
	sub, _ := d.raw.Dict(d.raw.Get(res, category))
	return sub
}

// bind returns the name under which target is already bound, or stores
// it under the first unused name prefix1, prefix2, ...
func (pc *pageContent) bind(d *Document, category, prefix string, target raw.RefObj) string {
	sub := pc.effective(d, category)
	if sub != nil {
		for _, name := range sub.Keys() {
			if v, _ := sub.Get(name); v == target {
				return name
			}
		}
	}
	for i := 1; ; i++ {
		name := prefix + strconv.Itoa(i)
		if sub != nil {
			if _, taken := sub.Get(name); taken {
				continue
			}
		}
		pc.subdict(d, category).Set(name, target)
		return name
	}
}

func (pc *pageContent) fontName(d *Document, fr *fontResource) string {
	if name, ok := pc.fontNames[fr]; ok {
		return name
	}
	if !fr.placed {
		fr.ref = d.raw.Reserve()
		fr.placed = true
	}
	name := pc.bind(d, "Font", "F", raw.Ref(fr.ref))
	pc.fontNames[fr] = name
	return name
}

func (pc *pageContent) imageName(d *Document, im *imageResource) string {
	if name, ok := pc.imageNames[im.img.Key]; ok {
		return name
	}
	name := pc.bind(d, "XObject", "Im", raw.Ref(im.ref))
	pc.imageNames[im.img.Key] = name
	return name
}

package document

import (
	"context"
	"fmt"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/observability"
)

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// inheritableKeys are the page attributes a /Pages node passes down.
var inheritableKeys = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// pageTreeRoot returns the root /Pages node and its /Kids array.
func (d *Document) pageTreeRoot() (raw.ObjectRef, *raw.DictObj, *raw.ArrayObj, error) {
	catalog, ok := d.raw.Catalog()
	if !ok {
		return raw.ObjectRef{}, nil, nil, fmt.Errorf("%w: no catalog", ErrCorrupt)
	}
	v, _ := catalog.Get("Pages")
	ref, ok := v.(raw.RefObj)
	if !ok {
		return raw.ObjectRef{}, nil, nil, fmt.Errorf("%w: /Pages is not an indirect object", ErrCorrupt)
	}
	root, ok := d.raw.Dict(ref)
	if !ok {
		return raw.ObjectRef{}, nil, nil, fmt.Errorf("%w: /Pages is not a dictionary", ErrCorrupt)
	}
	kids, ok := d.raw.Array(d.raw.Get(root, "Kids"))
	if !ok {
		return raw.ObjectRef{}, nil, nil, fmt.Errorf("%w: page tree root has no /Kids", ErrCorrupt)
	}
	return ref.R, root, kids, nil
}

// appendPage adds page as the last kid of the page tree root.
func (d *Document) appendPage(page *raw.DictObj) (int, error) {
	rootRef, root, kids, err := d.pageTreeRoot()
	if err != nil {
		return 0, err
	}
	count, ok := d.raw.Int(d.raw.Get(root, "Count"))
	if !ok {
		count = int64(len(d.pages))
	}
	page.Set("Parent", raw.Ref(rootRef))
	ref := d.raw.Add(page)
	kids.Append(raw.Ref(ref))
	root.Set("Count", raw.NumberInt(count+1))
	d.pages = append(d.pages, ref)
	return len(d.pages), nil
}

// AddBlankPage appends an empty page of w x h points and returns its
// number.
func (d *Document) AddBlankPage(w, h float64) (int, error) {
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("%w: blank page size %gx%g", ErrMissingGeometry, w, h)
	}
	if _, _, _, err := d.pageTreeRoot(); err != nil {
		return 0, err
	}
	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("MediaBox", raw.Numbers(0, 0, w, h))
	page.Set("Resources", raw.Dict())
	page.Set("Contents", raw.Ref(d.raw.Add(raw.NewStream(raw.Dict(), nil))))
	n, err := d.appendPage(page)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("blank page added",
		observability.Int("page", n),
		observability.Float64("width", w),
		observability.Float64("height", h))
	return n, nil
}

// DuplicatePage appends a copy of page, including what has been inserted
// on it so far, and returns the copy's number. Attributes the source
// inherits are written onto the copy. Later insertions on either page do
// not show on the other.
func (d *Document) DuplicatePage(page int) (int, error) {
	src, err := d.pageDict(page)
	if err != nil {
		return 0, err
	}
	if _, _, _, err := d.pageTreeRoot(); err != nil {
		return 0, err
	}

	dup := raw.Dict()
	for k, v := range src.KV {
		if k == "Parent" || k == "Contents" {
			continue
		}
		dup.Set(k, raw.DeepCopy(v))
	}
	for _, key := range inheritableKeys {
		if _, ok := dup.Get(key); ok {
			continue
		}
		if v, ok := d.inherited(src, key); ok {
			dup.Set(key, raw.DeepCopy(v))
		}
	}

	if pc, ok := d.content[page]; ok && pc.ops.Len() > 0 {
		data := d.mergeContent(context.Background(), page, pc)
		dict := raw.Dict()
		if d.compress {
			dict.Set("Filter", raw.NameLiteral("FlateDecode"))
			data = filters.FlateEncode(data)
		}
		dup.Set("Contents", raw.Ref(d.raw.Add(raw.NewStream(dict, data))))
	} else if v, ok := src.Get("Contents"); ok {
		dup.Set("Contents", d.copyContents(v))
	}

	n, err := d.appendPage(dup)
	if err != nil {
		return 0, err
	}
	d.logger.Debug("page duplicated", observability.Int("source", page), observability.Int("page", n))
	return n, nil
}

// copyContents gives every content stream of a page a fresh object.
func (d *Document) copyContents(v raw.Object) raw.Object {
	switch obj := v.(type) {
	case raw.RefObj:
		switch target := d.raw.Resolve(obj).(type) {
		case *raw.StreamObj:
			return raw.Ref(d.raw.Add(raw.DeepCopy(target)))
		case *raw.ArrayObj:
			return d.copyContents(target)
		}
	case *raw.ArrayObj:
		out := raw.NewArray()
		for _, it := range obj.Items {
			out.Append(d.copyContents(it))
		}
		return out
	case *raw.StreamObj:
		return raw.Ref(d.raw.Add(raw.DeepCopy(obj)))
	}
	return raw.DeepCopy(v)
}

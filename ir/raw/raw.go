package raw

import (
	"fmt"
	"strings"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
}

// Document is the owned object graph of a parsed PDF file.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g. "1.7"

	maxNum int
}

// NewDocument returns an empty document with the given header version.
func NewDocument(version string) *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: version,
	}
}

// MaxObjectNumber returns the highest object number in use or reserved.
func (d *Document) MaxObjectNumber() int {
	max := d.maxNum
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	d.maxNum = max
	return max
}

// Reserve allocates a fresh object number without storing an object under it.
// The caller must store an object under the returned reference before the
// document is written.
func (d *Document) Reserve() ObjectRef {
	n := d.MaxObjectNumber() + 1
	d.maxNum = n
	return ObjectRef{Num: n}
}

// Add stores obj under a freshly allocated object number.
func (d *Document) Add(obj Object) ObjectRef {
	ref := d.Reserve()
	d.Objects[ref] = obj
	return ref
}

// Catalog returns the document catalog referenced by the trailer's /Root.
func (d *Document) Catalog() (*DictObj, bool) {
	if d.Trailer == nil {
		return nil, false
	}
	root, ok := d.Trailer.Get("Root")
	if !ok {
		return nil, false
	}
	return d.Dict(root)
}

// IsHeaderVersion reports whether v looks like a PDF header version this
// module understands ("1.0" through "1.7", and "2.0").
func IsHeaderVersion(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) != 3 || v[1] != '.' {
		return false
	}
	switch v[0] {
	case '1':
		return v[2] >= '0' && v[2] <= '7'
	case '2':
		return v[2] == '0'
	}
	return false
}

package raw

// maxResolveDepth bounds reference chains such as "1 0 R" pointing at
// another bare reference.
const maxResolveDepth = 32

// Resolve follows indirect references until a direct object is reached.
// Dangling references resolve to nil, as the PDF format treats them as null.
func (d *Document) Resolve(o Object) Object {
	for i := 0; i < maxResolveDepth; i++ {
		ref, ok := o.(RefObj)
		if !ok {
			return o
		}
		target, ok := d.Objects[ref.R]
		if !ok {
			return nil
		}
		o = target
	}
	return nil
}

func (d *Document) Dict(o Object) (*DictObj, bool) {
	switch v := d.Resolve(o).(type) {
	case *DictObj:
		return v, v != nil
	case *StreamObj:
		return v.Dict, v.Dict != nil
	}
	return nil, false
}

func (d *Document) Array(o Object) (*ArrayObj, bool) {
	a, ok := d.Resolve(o).(*ArrayObj)
	return a, ok && a != nil
}

func (d *Document) Stream(o Object) (*StreamObj, bool) {
	s, ok := d.Resolve(o).(*StreamObj)
	return s, ok && s != nil
}

func (d *Document) Number(o Object) (float64, bool) {
	n, ok := d.Resolve(o).(NumberObj)
	if !ok {
		return 0, false
	}
	return n.Float(), true
}

func (d *Document) Int(o Object) (int64, bool) {
	n, ok := d.Resolve(o).(NumberObj)
	if !ok {
		return 0, false
	}
	return n.Int(), true
}

func (d *Document) Name(o Object) (string, bool) {
	n, ok := d.Resolve(o).(NameObj)
	return n.Val, ok
}

// Get resolves dict[key].
func (d *Document) Get(dict *DictObj, key string) Object {
	v, ok := dict.Get(key)
	if !ok {
		return nil
	}
	return d.Resolve(v)
}

// Rect reads a four-number array and normalises it to (llx, lly, urx, ury).
func (d *Document) Rect(o Object) ([4]float64, bool) {
	var r [4]float64
	arr, ok := d.Array(o)
	if !ok || arr.Len() != 4 {
		return r, false
	}
	for i, it := range arr.Items {
		v, ok := d.Number(it)
		if !ok {
			return r, false
		}
		r[i] = v
	}
	if r[0] > r[2] {
		r[0], r[2] = r[2], r[0]
	}
	if r[1] > r[3] {
		r[1], r[3] = r[3], r[1]
	}
	return r, true
}

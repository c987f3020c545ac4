package raw

// DeepCopy returns a copy of o that shares no mutable containers with it.
// Stream payloads are shared since they are never written in place.
func DeepCopy(o Object) Object {
	switch v := o.(type) {
	case *DictObj:
		if v == nil {
			return v
		}
		out := &DictObj{KV: make(map[string]Object, len(v.KV))}
		for k, it := range v.KV {
			out.KV[k] = DeepCopy(it)
		}
		return out
	case *ArrayObj:
		if v == nil {
			return v
		}
		out := &ArrayObj{Items: make([]Object, len(v.Items))}
		for i, it := range v.Items {
			out.Items[i] = DeepCopy(it)
		}
		return out
	case *StreamObj:
		if v == nil {
			return v
		}
		dict, _ := DeepCopy(v.Dict).(*DictObj)
		return &StreamObj{Dict: dict, Data: v.Data}
	case StringObj:
		return StringObj{Bytes: append([]byte(nil), v.Bytes...), Hex: v.Hex}
	default:
		return o
	}
}

// ShallowCopyDict copies the top-level entries of d.
func ShallowCopyDict(d *DictObj) *DictObj {
	out := Dict()
	if d == nil {
		return out
	}
	for k, v := range d.KV {
		out.KV[k] = v
	}
	return out
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Objects: make(map[ObjectRef]Object, len(d.Objects)),
		Version: d.Version,
		maxNum:  d.maxNum,
	}
	for ref, obj := range d.Objects {
		out.Objects[ref] = DeepCopy(obj)
	}
	if d.Trailer != nil {
		out.Trailer, _ = DeepCopy(d.Trailer).(*DictObj)
	}
	return out
}

package filters

import (
	"bytes"
	"compress/zlib"

	"github.com/wudi/thaipdf/ir/raw"
)

// ExtractFilters reads Filter and DecodeParms entries from a stream
// dictionary. resolve follows indirect references and may be nil.
func ExtractFilters(dict *raw.DictObj, resolve func(raw.Object) raw.Object) ([]string, []*raw.DictObj) {
	if resolve == nil {
		resolve = func(o raw.Object) raw.Object { return o }
	}
	var names []string
	var params []*raw.DictObj

	filterObj, ok := dict.Get("Filter")
	if !ok {
		return nil, nil
	}
	switch f := resolve(filterObj).(type) {
	case raw.NameObj:
		names = append(names, f.Val)
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := resolve(item).(raw.NameObj); ok {
				names = append(names, n.Val)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	params = make([]*raw.DictObj, len(names))
	if pObj, ok := dict.Get("DecodeParms"); ok {
		switch p := resolve(pObj).(type) {
		case *raw.DictObj:
			params[0] = p
		case *raw.ArrayObj:
			for i, item := range p.Items {
				if i >= len(params) {
					break
				}
				if d, ok := resolve(item).(*raw.DictObj); ok {
					params[i] = d
				}
			}
		}
	}
	return names, params
}

// FlateEncode compresses data with zlib framing, as FlateDecode expects.
func FlateEncode(data []byte) []byte {
	var buf bytes.Buffer
	zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

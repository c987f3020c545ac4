package xref

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/scanner"
)

// parseStreamSection reads a cross-reference stream at offset, adds its
// entries to table and returns the stream dictionary, which doubles as the
// trailer.
func (rs *Resolver) parseStreamSection(ctx context.Context, data []byte, offset int64, table *Table) (*raw.DictObj, int, error) {
	tr := scanner.NewTokenReader(scanner.NewBytes(data, scanner.Config{Recovery: rs.cfg.Recovery}))
	if err := tr.SeekTo(offset); err != nil {
		return nil, 0, err
	}
	ind, err := scanner.ReadIndirect(tr, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("read xref stream at %d: %w", offset, err)
	}
	stream, ok := ind.Object.(*raw.StreamObj)
	if !ok {
		return nil, 0, fmt.Errorf("object at %d is not an xref stream", offset)
	}
	dict := stream.Dict
	if t, _ := dict.Get("Type"); t != raw.NameLiteral("XRef") {
		return nil, 0, fmt.Errorf("object at %d is not an xref stream", offset)
	}

	widths, err := intArray(dict, "W")
	if err != nil || len(widths) != 3 {
		return nil, 0, errors.New("xref stream /W must hold three integers")
	}
	for _, w := range widths {
		if w < 0 || w > 8 {
			return nil, 0, errors.New("xref stream /W out of range")
		}
	}
	size := 0
	if s, ok := dict.Get("Size"); ok {
		if n, ok := s.(raw.NumberObj); ok {
			size = int(n.Int())
		}
	}
	index, err := intArray(dict, "Index")
	if err != nil || len(index) == 0 {
		index = []int{0, size}
	}
	if len(index)%2 != 0 {
		return nil, 0, errors.New("xref stream /Index must hold pairs")
	}

	names, params := filters.ExtractFilters(dict, nil)
	decoded, err := filters.NewStandardPipeline(rs.cfg.Limits).Decode(ctx, stream.Data, names, params)
	if err != nil {
		return nil, 0, fmt.Errorf("decode xref stream: %w", err)
	}

	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, 0, errors.New("xref stream rows are empty")
	}
	pos, count := 0, 0
	for i := 0; i < len(index); i += 2 {
		start, n := index[i], index[i+1]
		for j := 0; j < n; j++ {
			if pos+rowLen > len(decoded) {
				return dict, count, nil
			}
			rowData := decoded[pos : pos+rowLen]
			pos += rowLen
			typ := 1
			if widths[0] > 0 {
				typ = int(field(rowData[:widths[0]]))
			}
			f2 := field(rowData[widths[0] : widths[0]+widths[1]])
			f3 := field(rowData[widths[0]+widths[1]:])
			var e Entry
			switch typ {
			case 0:
				e = Entry{Kind: Free, Gen: int(f3)}
			case 1:
				e = Entry{Kind: InUse, Offset: f2, Gen: int(f3)}
			case 2:
				e = Entry{Kind: Compressed, Stream: int(f2), Index: int(f3)}
			default:
				// Unknown types are treated as null references.
				continue
			}
			table.add(start+j, e)
			count++
		}
	}
	return dict, count, nil
}

func field(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func intArray(dict *raw.DictObj, key string) ([]int, error) {
	v, ok := dict.Get(key)
	if !ok {
		return nil, nil
	}
	arr, ok := v.(*raw.ArrayObj)
	if !ok {
		return nil, fmt.Errorf("/%s is not an array", key)
	}
	out := make([]int, 0, arr.Len())
	for _, it := range arr.Items {
		n, ok := it.(raw.NumberObj)
		if !ok {
			return nil, fmt.Errorf("/%s holds a non-number", key)
		}
		out = append(out, int(n.Int()))
	}
	return out, nil
}

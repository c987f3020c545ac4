package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/recovery"
	"github.com/wudi/thaipdf/scanner"
	"github.com/wudi/thaipdf/security"
	"github.com/wudi/thaipdf/xref"
)

var errNotFound = errors.New("object not found in xref")

// objectLoader reads individual objects located by an xref table.
type objectLoader struct {
	data     []byte
	table    *xref.Table
	limits   security.Limits
	recovery recovery.Strategy
	pipeline *filters.Pipeline
	tr       *scanner.TokenReader
	objstm   map[int]map[int]raw.Object
}

func newObjectLoader(data []byte, table *xref.Table, limits security.Limits, rec recovery.Strategy) *objectLoader {
	o := &objectLoader{
		data:     data,
		table:    table,
		limits:   limits,
		recovery: rec,
		objstm:   make(map[int]map[int]raw.Object),
		pipeline: filters.NewStandardPipeline(filters.Limits{
			MaxDecompressedSize: limits.MaxDecompressedSize,
			MaxDecodeTime:       limits.MaxDecodeTime,
		}),
	}
	o.tr = scanner.NewTokenReader(o.newScanner())
	return o
}

func (o *objectLoader) newScanner() scanner.Scanner {
	return scanner.NewBytes(o.data, scanner.Config{
		Recovery:        o.recovery,
		MaxStringLength: o.limits.MaxStringLength,
		MaxNestingDepth: o.limits.MaxNestingDepth,
		MaxStreamLength: o.limits.MaxStreamLength,
	})
}

func (o *objectLoader) Load(ctx context.Context, num int) (raw.ObjectRef, raw.Object, error) {
	e, ok := o.table.Lookup(num)
	if !ok || e.Kind == xref.Free {
		return raw.ObjectRef{}, nil, errNotFound
	}
	if e.Kind == xref.Compressed {
		obj, err := o.loadFromObjectStream(ctx, num, e.Stream, e.Index)
		return raw.ObjectRef{Num: num}, obj, err
	}
	ref := raw.ObjectRef{Num: num, Gen: e.Gen}
	obj, err := o.loadAtOffset(ctx, o.tr, ref, e.Offset)
	return ref, obj, err
}

func (o *objectLoader) loadAtOffset(ctx context.Context, tr *scanner.TokenReader, ref raw.ObjectRef, offset int64) (raw.Object, error) {
	if err := tr.SeekTo(offset); err != nil {
		return nil, err
	}
	ind, err := scanner.ReadIndirect(tr, o.streamLength)
	if err != nil {
		return nil, err
	}
	if ind.Ref.Num != ref.Num {
		return nil, fmt.Errorf("object header number mismatch: want %d, found %d", ref.Num, ind.Ref.Num)
	}
	if ind.Unterminated {
		err := errors.New("dictionary not closed before endobj")
		if !o.allow(ctx, err, ref, offset) {
			return nil, err
		}
	}
	return ind.Object, nil
}

// streamLength resolves an indirect /Length with a private scanner so the
// caller's scan position is untouched.
func (o *objectLoader) streamLength(ref raw.ObjectRef) (int64, bool) {
	e, ok := o.table.Lookup(ref.Num)
	if !ok || e.Kind != xref.InUse {
		return 0, false
	}
	tr := scanner.NewTokenReader(o.newScanner())
	if err := tr.SeekTo(e.Offset); err != nil {
		return 0, false
	}
	ind, err := scanner.ReadIndirect(tr, nil)
	if err != nil {
		return 0, false
	}
	n, ok := ind.Object.(raw.NumberObj)
	if !ok {
		return 0, false
	}
	return n.Int(), true
}

func (o *objectLoader) loadFromObjectStream(ctx context.Context, num, streamNum, idx int) (raw.Object, error) {
	objs, ok := o.objstm[streamNum]
	if !ok {
		var err error
		objs, err = o.parseObjectStream(ctx, streamNum)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
		}
		o.objstm[streamNum] = objs
	}
	obj, ok := objs[num]
	if !ok {
		return nil, fmt.Errorf("object %d not in object stream %d at index %d", num, streamNum, idx)
	}
	return obj, nil
}

// parseObjectStream decodes an /ObjStm and returns its objects keyed by
// object number.
func (o *objectLoader) parseObjectStream(ctx context.Context, streamNum int) (map[int]raw.Object, error) {
	e, ok := o.table.Lookup(streamNum)
	if !ok || e.Kind != xref.InUse {
		return nil, errors.New("object stream entry missing")
	}
	obj, err := o.loadAtOffset(ctx, scanner.NewTokenReader(o.newScanner()), raw.ObjectRef{Num: streamNum, Gen: e.Gen}, e.Offset)
	if err != nil {
		return nil, err
	}
	st, ok := obj.(*raw.StreamObj)
	if !ok {
		return nil, errors.New("object stream is not a stream")
	}
	n := intFromDict(st.Dict, "N")
	first := intFromDict(st.Dict, "First")

	names, params := filters.ExtractFilters(st.Dict, nil)
	data, err := o.pipeline.Decode(ctx, st.Data, names, params)
	if err != nil {
		return nil, err
	}
	if first < 0 || first > len(data) || n < 0 {
		return nil, errors.New("object stream /First or /N out of range")
	}

	header := scanner.NewTokenReader(scanner.NewBytes(data[:first], scanner.Config{Content: true}))
	type slot struct{ num, off int }
	slots := make([]slot, 0, n)
	for i := 0; i < n; i++ {
		numTok, err1 := header.Next()
		offTok, err2 := header.Next()
		if err1 != nil || err2 != nil || numTok.Type != scanner.TokenNumber || offTok.Type != scanner.TokenNumber {
			break
		}
		slots = append(slots, slot{num: int(numTok.Int), off: int(offTok.Int)})
	}

	body := scanner.NewTokenReader(scanner.NewBytes(data, scanner.Config{
		MaxStringLength: o.limits.MaxStringLength,
		MaxNestingDepth: o.limits.MaxNestingDepth,
	}))
	out := make(map[int]raw.Object, len(slots))
	for _, s := range slots {
		if err := body.SeekTo(int64(first + s.off)); err != nil {
			continue
		}
		obj, err := scanner.ReadObject(body)
		if err != nil {
			if !o.allow(ctx, err, raw.ObjectRef{Num: s.num}, int64(first+s.off)) {
				return nil, err
			}
			continue
		}
		if _, dup := out[s.num]; !dup {
			out[s.num] = obj
		}
	}
	return out, nil
}

// allow asks the recovery strategy whether a problem in ref may be
// tolerated.
func (o *objectLoader) allow(ctx context.Context, err error, ref raw.ObjectRef, offset int64) bool {
	if o.recovery == nil {
		return false
	}
	return o.recovery.OnError(ctx, err, recovery.Location{
		ByteOffset: offset,
		ObjectNum:  ref.Num,
		ObjectGen:  ref.Gen,
		Component:  "parser",
	}).Continue()
}

func intFromDict(d *raw.DictObj, key string) int {
	v, ok := d.Get(key)
	if !ok {
		return -1
	}
	n, ok := v.(raw.NumberObj)
	if !ok {
		return -1
	}
	return int(n.Int())
}

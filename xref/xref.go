package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/recovery"
	"github.com/wudi/thaipdf/scanner"
	"golang.org/x/exp/maps"
)

type Kind int

const (
	Free Kind = iota
	InUse
	Compressed
)

// Entry locates one object. InUse entries carry a byte offset; Compressed
// entries name the object stream and the index inside it.
type Entry struct {
	Kind   Kind
	Offset int64
	Gen    int
	Stream int
	Index  int
}

// Table is the merged cross-reference data of every revision, newest
// entries taking precedence.
type Table struct {
	entries  map[int]Entry
	trailer  *raw.DictObj
	repaired bool
}

func newTable() *Table {
	return &Table{entries: make(map[int]Entry), trailer: raw.Dict()}
}

func (t *Table) Lookup(objNum int) (Entry, bool) {
	e, ok := t.entries[objNum]
	return e, ok
}

// Objects lists every object number with an in-use or compressed entry.
func (t *Table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	nums := maps.Keys(t.entries)
	slices.Sort(nums)
	for _, num := range nums {
		if t.entries[num].Kind != Free {
			out = append(out, num)
		}
	}
	return out
}

func (t *Table) Trailer() *raw.DictObj { return t.trailer }

// Repaired reports whether the table was rebuilt by scanning the file.
func (t *Table) Repaired() bool { return t.repaired }

// add records e unless a newer revision already defined objNum.
func (t *Table) add(objNum int, e Entry) {
	if _, exists := t.entries[objNum]; !exists {
		t.entries[objNum] = e
	}
}

// mergeTrailer copies keys from an older trailer that newer ones lack.
func (t *Table) mergeTrailer(older *raw.DictObj) {
	if older == nil {
		return
	}
	for k, v := range older.KV {
		switch k {
		case "Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length":
			continue
		}
		if _, ok := t.trailer.Get(k); !ok {
			t.trailer.Set(k, v)
		}
	}
}

type ResolverConfig struct {
	MaxXRefDepth int
	Recovery     recovery.Strategy
	Limits       filters.Limits
}

// Resolver locates and merges the cross-reference sections of a PDF.
type Resolver struct {
	cfg ResolverConfig
}

func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.MaxXRefDepth <= 0 {
		cfg.MaxXRefDepth = 32
	}
	return &Resolver{cfg: cfg}
}

// Resolve reads the xref chain starting at the final startxref. When the
// chain is damaged and the recovery strategy allows it, the table is
// rebuilt by scanning the file for object headers.
func (rs *Resolver) Resolve(ctx context.Context, r io.ReaderAt) (*Table, error) {
	data := readAll(r)
	table, err := rs.resolveChain(ctx, data)
	if err == nil {
		return table, nil
	}
	if rs.cfg.Recovery == nil {
		return nil, err
	}
	action := rs.cfg.Recovery.OnError(ctx, err, recovery.Location{Component: "xref"})
	if !action.Continue() {
		return nil, err
	}
	return Repair(ctx, data)
}

func (rs *Resolver) resolveChain(ctx context.Context, data []byte) (*Table, error) {
	offset, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	table := newTable()
	visited := make(map[int64]bool)
	first := true
	for depth := 0; offset >= 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if depth >= rs.cfg.MaxXRefDepth {
			return nil, fmt.Errorf("xref chain deeper than %d sections", rs.cfg.MaxXRefDepth)
		}
		if visited[offset] {
			break
		}
		visited[offset] = true

		trailer, err := rs.loadSection(ctx, data, offset, table)
		if err != nil {
			return nil, err
		}
		if first {
			table.trailer = raw.ShallowCopyDict(trailer)
			for _, k := range []string{"Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length"} {
				table.trailer.Delete(k)
			}
			first = false
		} else {
			table.mergeTrailer(trailer)
		}

		offset = -1
		if prev, ok := trailer.Get("Prev"); ok {
			if n, ok := prev.(raw.NumberObj); ok {
				offset = n.Int()
			}
		}
	}
	if _, ok := table.trailer.Get("Root"); !ok {
		return nil, errors.New("trailer has no /Root")
	}
	return table, nil
}

// loadSection reads the classic table or xref stream at offset into table
// and returns its trailer dictionary.
func (rs *Resolver) loadSection(ctx context.Context, data []byte, offset int64, table *Table) (*raw.DictObj, error) {
	if offset <= 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("xref offset out of range: %d", offset)
	}
	start := offset
	for start < int64(len(data)) && isSpace(data[start]) {
		start++
	}
	if bytes.HasPrefix(data[start:], []byte("xref")) {
		trailer, entries, err := parseClassic(data, start)
		if err != nil {
			return nil, err
		}
		// A hybrid file's /XRefStm entries belong to the same revision and
		// take precedence over the classic rows.
		if stm, ok := trailer.Get("XRefStm"); ok {
			if n, ok := stm.(raw.NumberObj); ok {
				if _, _, err := rs.parseStreamSection(ctx, data, n.Int(), table); err != nil && rs.cfg.Recovery == nil {
					return nil, err
				}
			}
		}
		for _, row := range entries {
			table.add(row.num, row.entry)
		}
		return trailer, nil
	}
	trailer, _, err := rs.parseStreamSection(ctx, data, start, table)
	return trailer, err
}

type row struct {
	num   int
	entry Entry
}

func parseClassic(data []byte, offset int64) (*raw.DictObj, []row, error) {
	tr := scanner.NewTokenReader(scanner.NewBytes(data, scanner.Config{}))
	if err := tr.SeekTo(offset); err != nil {
		return nil, nil, err
	}
	if tok, err := tr.Next(); err != nil || tok.Type != scanner.TokenKeyword || tok.Str != "xref" {
		return nil, nil, errors.New("xref keyword not found at offset")
	}
	var rows []row
	for {
		tok, err := tr.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("unexpected end of xref section: %w", err)
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			break
		}
		countTok, err := tr.Next()
		if err != nil || tok.Type != scanner.TokenNumber || countTok.Type != scanner.TokenNumber {
			return nil, nil, fmt.Errorf("invalid xref subsection header at %d", tok.Pos)
		}
		startObj, count := int(tok.Int), int(countTok.Int)
		if startObj < 0 || count < 0 {
			return nil, nil, fmt.Errorf("invalid xref subsection %d %d", startObj, count)
		}
		for i := 0; i < count; i++ {
			off, err1 := tr.Next()
			gen, err2 := tr.Next()
			kind, err3 := tr.Next()
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, nil, fmt.Errorf("unexpected end of xref section: %w", err)
			}
			if off.Type != scanner.TokenNumber || gen.Type != scanner.TokenNumber || kind.Type != scanner.TokenKeyword {
				return nil, nil, fmt.Errorf("invalid xref entry at %d", off.Pos)
			}
			e := Entry{Kind: Free, Offset: off.Int, Gen: int(gen.Int)}
			if kind.Str == "n" {
				e.Kind = InUse
			}
			rows = append(rows, row{num: startObj + i, entry: e})
		}
	}
	obj, err := scanner.ReadObject(tr)
	if err != nil {
		return nil, nil, fmt.Errorf("parse trailer: %w", err)
	}
	trailer, ok := obj.(*raw.DictObj)
	if !ok {
		return nil, nil, errors.New("trailer is not a dictionary")
	}
	return trailer, rows, nil
}

func findStartXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	rest := bytes.TrimLeft(data[idx+len("startxref"):], "\x00\t\n\f\r ")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	val, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse startxref: %w", err)
	}
	return val, nil
}

func isSpace(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func readAll(r io.ReaderAt) []byte {
	if br, ok := r.(*bytes.Reader); ok {
		out := make([]byte, br.Size())
		n, _ := br.ReadAt(out, 0)
		return out[:n]
	}
	var buf bytes.Buffer
	const chunk = int64(32 * 1024)
	tmp := make([]byte, chunk)
	for off := int64(0); ; off += chunk {
		n, err := r.ReadAt(tmp, off)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil || int64(n) < chunk {
			break
		}
	}
	return buf.Bytes()
}

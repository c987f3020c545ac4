package xref

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/scanner"
)

var objHeader = regexp.MustCompile(`(?:^|[^0-9])(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// Repair rebuilds a cross-reference table by scanning data for
// "<num> <gen> obj" headers. Later definitions of an object win, matching
// incremental-update order. The trailer is taken from the last parseable
// "trailer" dictionary; when none exists the table has an empty trailer and
// the caller must locate the catalog itself.
func Repair(ctx context.Context, data []byte) (*Table, error) {
	table := newTable()
	table.repaired = true
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil || num <= 0 {
			continue
		}
		table.entries[num] = Entry{Kind: InUse, Offset: int64(m[2]), Gen: gen}
	}
	if len(table.entries) == 0 {
		return nil, errors.New("repair failed: no objects found")
	}

	rest := data
	for {
		idx := bytes.LastIndex(rest, []byte("trailer"))
		if idx < 0 {
			break
		}
		tr := scanner.NewTokenReader(scanner.NewBytes(data, scanner.Config{}))
		if err := tr.SeekTo(int64(idx + len("trailer"))); err == nil {
			if obj, err := scanner.ReadObject(tr); err == nil {
				if dict, ok := obj.(*raw.DictObj); ok {
					table.trailer = dict
					table.trailer.Delete("Prev")
					table.trailer.Delete("XRefStm")
					break
				}
			}
		}
		rest = rest[:idx]
	}
	return table, nil
}

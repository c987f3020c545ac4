package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/maps"

	"github.com/wudi/thaipdf/ir/raw"
)

type Config struct {
	// Version overrides the document's header version when set.
	Version string
}

type Writer struct {
	cfg Config
}

func New(cfg Config) *Writer { return &Writer{cfg: cfg} }

// Write serialises doc as a complete, non-incremental PDF file with a
// classic cross-reference table. Objects are written in object-number
// order so identical documents produce identical bytes.
func (w *Writer) Write(ctx context.Context, doc *raw.Document, out io.Writer) (int64, error) {
	if _, ok := doc.Catalog(); !ok {
		return 0, fmt.Errorf("document has no catalog")
	}
	version := w.cfg.Version
	if version == "" {
		version = doc.Version
	}
	if !raw.IsHeaderVersion(version) {
		version = "1.7"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version)

	refs := maps.Keys(doc.Objects)
	slices.SortFunc(refs, func(a, b raw.ObjectRef) int { return a.Num - b.Num })
	offsets := make(map[int]int64, len(refs))
	gens := make(map[int]int, len(refs))
	hash, _ := blake2b.New256(nil)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if _, dup := offsets[ref.Num]; dup {
			continue
		}
		offsets[ref.Num] = int64(buf.Len())
		gens[ref.Num] = ref.Gen
		body := SerializeObject(ref, doc.Objects[ref])
		hash.Write(body)
		buf.Write(body)
	}

	maxNum := 0
	if len(refs) > 0 {
		maxNum = refs[len(refs)-1].Num
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, gens[i])
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(maxNum+1)))
	root, _ := doc.Trailer.Get("Root")
	trailer.Set("Root", root)
	if info, ok := doc.Trailer.Get("Info"); ok {
		trailer.Set("Info", info)
	}
	trailer.Set("ID", fileID(doc, hash.Sum(nil)))

	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	n, err := out.Write(buf.Bytes())
	return int64(n), err
}

// fileID keeps the permanent first identifier of an existing document and
// derives the second from the written content.
func fileID(doc *raw.Document, digest []byte) *raw.ArrayObj {
	changing := raw.HexStr(append([]byte(nil), digest[:16]...))
	if ids, ok := doc.Array(doc.Trailer.KV["ID"]); ok && ids.Len() == 2 {
		if first, ok := doc.Resolve(ids.Items[0]).(raw.StringObj); ok && len(first.Bytes) > 0 {
			return raw.NewArray(raw.HexStr(first.Bytes), changing)
		}
	}
	return raw.NewArray(changing, changing)
}

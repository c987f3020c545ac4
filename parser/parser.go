package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/recovery"
	"github.com/wudi/thaipdf/security"
	"github.com/wudi/thaipdf/xref"
)

var (
	ErrNoHeader           = errors.New("missing %PDF- header")
	ErrUnsupportedVersion = errors.New("unsupported PDF version")
	ErrEncrypted          = errors.New("encrypted documents are not supported")
	ErrNoCatalog          = errors.New("document catalog not found")
)

// Config controls high-level PDF parsing (xref resolution + object loading).
type Config struct {
	Recovery recovery.Strategy
	Limits   security.Limits
}

// DocumentParser builds a raw.Document using xref tables/streams and the
// object loader.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Limits == (security.Limits{}) {
		cfg.Limits = security.DefaultLimits()
	}
	return &DocumentParser{cfg: cfg}
}

func (p *DocumentParser) Parse(ctx context.Context, r io.ReaderAt) (*raw.Document, error) {
	data := readAll(r)
	version, err := detectHeaderVersion(data)
	if err != nil {
		return nil, err
	}

	resolver := xref.NewResolver(xref.ResolverConfig{
		MaxXRefDepth: p.cfg.Limits.MaxXRefDepth,
		Recovery:     p.cfg.Recovery,
		Limits:       p.filterLimits(),
	})
	table, err := resolver.Resolve(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("resolve xref: %w", err)
	}

	doc, err := p.load(ctx, data, table, version)
	if err == nil || table.Repaired() || p.cfg.Recovery == nil {
		return doc, err
	}
	// The table looked intact but did not lead to a usable catalog; try
	// once more from a scan of the whole file.
	if !p.cfg.Recovery.OnError(ctx, err, recovery.Location{Component: "parser"}).Continue() {
		return nil, err
	}
	repaired, rerr := xref.Repair(ctx, data)
	if rerr != nil {
		return nil, err
	}
	return p.load(ctx, data, repaired, version)
}

func (p *DocumentParser) filterLimits() filters.Limits {
	return filters.Limits{MaxDecompressedSize: p.cfg.Limits.MaxDecompressedSize, MaxDecodeTime: p.cfg.Limits.MaxDecodeTime}
}

func (p *DocumentParser) load(ctx context.Context, data []byte, table *xref.Table, version string) (*raw.Document, error) {
	trailer := raw.ShallowCopyDict(table.Trailer())
	if _, ok := trailer.Get("Encrypt"); ok {
		return nil, ErrEncrypted
	}

	loader := newObjectLoader(data, table, p.cfg.Limits, p.cfg.Recovery)
	doc := raw.NewDocument(version)
	doc.Trailer = trailer

	for _, num := range table.Objects() {
		if num == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref, obj, err := loader.Load(ctx, num)
		if err != nil {
			if loader.allow(ctx, err, raw.ObjectRef{Num: num}, 0) {
				continue
			}
			return nil, fmt.Errorf("load object %d: %w", num, err)
		}
		if isStructural(obj) {
			continue
		}
		doc.Objects[ref] = obj
	}

	if err := p.ensureRoot(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ensureRoot checks that /Root resolves to a catalog and, for repaired
// files without a trailer, points it at the highest-numbered catalog.
func (p *DocumentParser) ensureRoot(doc *raw.Document) error {
	if cat, ok := doc.Catalog(); ok && hasPages(doc, cat) {
		return nil
	}
	var best raw.ObjectRef
	found := false
	for ref, obj := range doc.Objects {
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			continue
		}
		if name, _ := doc.Name(dict.KV["Type"]); name != "Catalog" || !hasPages(doc, dict) {
			continue
		}
		if !found || ref.Num > best.Num {
			best, found = ref, true
		}
	}
	if !found {
		return ErrNoCatalog
	}
	doc.Trailer.Set("Root", raw.Ref(best))
	return nil
}

func hasPages(doc *raw.Document, catalog *raw.DictObj) bool {
	_, ok := doc.Dict(catalog.KV["Pages"])
	return ok
}

// isStructural reports objects that only describe file layout. Their
// content is folded into the parsed document and they are regenerated
// on write.
func isStructural(obj raw.Object) bool {
	st, ok := obj.(*raw.StreamObj)
	if !ok {
		return false
	}
	t, _ := st.Dict.Get("Type")
	name, _ := t.(raw.NameObj)
	return name.Val == "ObjStm" || name.Val == "XRef"
}

// detectHeaderVersion finds "%PDF-x.y" within the first kilobyte.
func detectHeaderVersion(data []byte) (string, error) {
	head := data[:min(len(data), 1024)]
	idx := bytes.Index(head, []byte("%PDF-"))
	if idx < 0 {
		return "", ErrNoHeader
	}
	rest := data[idx+5:]
	end := 0
	for end < len(rest) && end < 8 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	version := string(rest[:end])
	if !raw.IsHeaderVersion(version) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	return version, nil
}

func readAll(r io.ReaderAt) []byte {
	if br, ok := r.(*bytes.Reader); ok {
		out := make([]byte, br.Size())
		n, _ := br.ReadAt(out, 0)
		return out[:n]
	}
	var buf bytes.Buffer
	const chunk = 32 * 1024
	tmp := make([]byte, chunk)
	for off := int64(0); ; off += chunk {
		n, err := r.ReadAt(tmp, off)
		buf.Write(tmp[:n])
		if err != nil || n < chunk {
			break
		}
	}
	return buf.Bytes()
}

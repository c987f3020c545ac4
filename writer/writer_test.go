package writer

import (
	"bytes"
	"context"
	"regexp"
	"strconv"
	"testing"

	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/parser"
)

func sampleDocument() *raw.Document {
	doc := raw.NewDocument("1.6")
	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.Ref(raw.ObjectRef{Num: 2}))
	doc.Objects[raw.ObjectRef{Num: 1}] = catalog

	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray(raw.Ref(raw.ObjectRef{Num: 3})))
	pages.Set("Count", raw.NumberInt(1))
	doc.Objects[raw.ObjectRef{Num: 2}] = pages

	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("Parent", raw.Ref(raw.ObjectRef{Num: 2}))
	page.Set("MediaBox", raw.Numbers(0, 0, 595.28, 841.89))
	page.Set("Contents", raw.Ref(raw.ObjectRef{Num: 5}))
	doc.Objects[raw.ObjectRef{Num: 3}] = page

	// Object 4 is left as a gap.
	doc.Objects[raw.ObjectRef{Num: 5}] = raw.NewStream(nil, []byte("q Q\n"))
	doc.Objects[raw.ObjectRef{Num: 6}] = raw.StringObj{Bytes: []byte("a(b)\\c\n")}
	doc.Trailer.Set("Root", raw.Ref(raw.ObjectRef{Num: 1}))
	return doc
}

func TestWriteProducesValidXRef(t *testing.T) {
	var buf bytes.Buffer
	if _, err := New(Config{}).Write(context.Background(), sampleDocument(), &buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte("%PDF-1.6\n%\xE2\xE3\xCF\xD3\n")) {
		t.Fatalf("unexpected header %q", data[:16])
	}

	rows := regexp.MustCompile(`(\d{10}) (\d{5}) n \n`).FindAllSubmatch(data, -1)
	if len(rows) != 5 {
		t.Fatalf("expected 5 in-use rows, got %d", len(rows))
	}
	for _, row := range rows {
		off, _ := strconv.Atoi(string(row[1]))
		if !regexp.MustCompile(`^\d+ 0 obj\n`).Match(data[off:]) {
			t.Fatalf("xref offset %d does not point at an object header", off)
		}
	}
	if !bytes.Contains(data, []byte("xref\n0 7\n")) {
		t.Fatalf("expected subsection covering 0..6")
	}
	if !bytes.Contains(data, []byte("/Length 4")) {
		t.Fatalf("stream length not written")
	}
}

func TestWriteRoundTripsThroughParser(t *testing.T) {
	doc := sampleDocument()
	var buf bytes.Buffer
	if _, err := New(Config{}).Write(context.Background(), doc, &buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	parsed, err := parser.NewDocumentParser(parser.Config{}).Parse(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Objects) != len(doc.Objects) {
		t.Fatalf("object count changed: %d -> %d", len(doc.Objects), len(parsed.Objects))
	}
	s, ok := parsed.Objects[raw.ObjectRef{Num: 6}].(raw.StringObj)
	if !ok || string(s.Bytes) != "a(b)\\c\n" {
		t.Fatalf("string did not survive: %#v", parsed.Objects[raw.ObjectRef{Num: 6}])
	}
	box, _ := parsed.Rect(parsed.Objects[raw.ObjectRef{Num: 3}].(*raw.DictObj).KV["MediaBox"])
	if box[2] != 595.28 || box[3] != 841.89 {
		t.Fatalf("unexpected media box %v", box)
	}
	if ids, ok := parsed.Array(parsed.Trailer.KV["ID"]); !ok || ids.Len() != 2 {
		t.Fatalf("expected /ID pair in trailer")
	}
}

func TestWriteIsDeterministicAndKeepsFirstID(t *testing.T) {
	doc := sampleDocument()
	doc.Trailer.Set("ID", raw.NewArray(raw.HexStr([]byte{0xAB, 0xCD}), raw.HexStr([]byte{0x01})))

	var a, b bytes.Buffer
	New(Config{}).Write(context.Background(), doc, &a)
	New(Config{}).Write(context.Background(), doc, &b)
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("output is not deterministic")
	}
	if !bytes.Contains(a.Bytes(), []byte("/ID [<ABCD> <")) {
		t.Fatalf("first identifier not preserved")
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		12:        "12",
		-0.00001:  "0",
		1.5:       "1.5",
		841.8898:  "841.8898",
		3.14159:   "3.1416",
		-72.25000: "-72.25",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestNameLiteral(t *testing.T) {
	cases := map[string]string{
		"F1":        "/F1",
		"A B":       "/A#20B",
		"Name#1":    "/Name#231",
		"ThaiPDF-H": "/ThaiPDF-H",
	}
	for in, want := range cases {
		if got := NameLiteral(in); got != want {
			t.Errorf("NameLiteral(%q) = %q, want %q", in, got, want)
		}
	}
}

package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/recovery"
)

// pdfBuilder writes numbered objects and a classic xref table.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets map[int]int
	maxNum  int
}

func newPDFBuilder(version string) *pdfBuilder {
	b := &pdfBuilder{offsets: make(map[int]int)}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n", version)
	return b
}

func (b *pdfBuilder) obj(num int, body string) {
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	b.maxNum = max(b.maxNum, num)
}

func (b *pdfBuilder) finish(trailer string) []byte {
	xrefOffset := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n0000000000 65535 f \n", b.maxNum+1)
	for i := 1; i <= b.maxNum; i++ {
		if off, ok := b.offsets[i]; ok {
			fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
		} else {
			b.buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", b.maxNum+1, trailer, xrefOffset)
	return b.buf.Bytes()
}

func minimalPDF() []byte {
	b := newPDFBuilder("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	return b.finish("/Root 1 0 R")
}

func TestDocumentParserParsesClassicXRef(t *testing.T) {
	doc, err := NewDocumentParser(Config{}).Parse(context.Background(), bytes.NewReader(minimalPDF()))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := doc.Version; got != "1.7" {
		t.Fatalf("expected version 1.7, got %q", got)
	}
	if len(doc.Objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(doc.Objects))
	}
	if _, ok := doc.Catalog(); !ok {
		t.Fatalf("catalog missing")
	}
}

func TestDocumentParserFollowsPrevChain(t *testing.T) {
	data := minimalPDF()
	firstXRef := bytes.LastIndex(data, []byte("\nxref\n")) + 1
	buf := bytes.NewBuffer(data)

	off2 := buf.Len()
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>\nendobj\n")
	off4 := buf.Len()
	buf.WriteString("4 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n")
	xref2 := buf.Len()
	fmt.Fprintf(buf, "xref\n2 1\n%010d 00000 n \n4 1\n%010d 00000 n \n", off2, off4)
	fmt.Fprintf(buf, "trailer\n<< /Size 5 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", firstXRef, xref2)

	doc, err := NewDocumentParser(Config{}).Parse(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	pages := doc.Objects[raw.ObjectRef{Num: 2}].(*raw.DictObj)
	if n, _ := doc.Int(pages.KV["Count"]); n != 2 {
		t.Fatalf("expected updated Count 2, got %d", n)
	}
	if _, ok := doc.Objects[raw.ObjectRef{Num: 4}]; !ok {
		t.Fatalf("incremental object missing")
	}
}

func TestDocumentParserObjectStreams(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	off1 := buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	pagesObj := "<< /Type /Pages /Kids [3 0 R] /Count 1 >> "
	objs := pagesObj + "<< /Type /Page /Parent 2 0 R >>"
	header := fmt.Sprintf("2 0 3 %d ", len(pagesObj))
	payload := filters.FlateEncode([]byte(header + objs))
	off4 := buf.Len()
	fmt.Fprintf(&buf, "4 0 obj\n<< /Type /ObjStm /N 2 /First %d /Filter /FlateDecode /Length 5 0 R >>\nstream\n", len(header))
	buf.Write(payload)
	buf.WriteString("\nendstream\nendobj\n")
	off5 := buf.Len()
	fmt.Fprintf(&buf, "5 0 obj\n%d\nendobj\n", len(payload))

	rows := []byte{
		0, 0, 0, 0,
		1, byte(off1 >> 8), byte(off1), 0,
		2, 0, 4, 0,
		2, 0, 4, 1,
		1, byte(off4 >> 8), byte(off4), 0,
		1, byte(off5 >> 8), byte(off5), 0,
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "6 0 obj\n<< /Type /XRef /Size 6 /W [1 2 1] /Root 1 0 R /Length %d >>\nstream\n", len(rows))
	buf.Write(rows)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	doc, err := NewDocumentParser(Config{}).Parse(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	page, ok := doc.Objects[raw.ObjectRef{Num: 3}].(*raw.DictObj)
	if !ok {
		t.Fatalf("page from object stream missing: %#v", doc.Objects[raw.ObjectRef{Num: 3}])
	}
	if name, _ := doc.Name(page.KV["Type"]); name != "Page" {
		t.Fatalf("unexpected page type %q", name)
	}
	if _, ok := doc.Objects[raw.ObjectRef{Num: 4}]; ok {
		t.Fatalf("object stream container should not be kept")
	}
}

func TestDocumentParserRejects(t *testing.T) {
	encrypted := newPDFBuilder("1.7")
	encrypted.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	encrypted.obj(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	encrypted.obj(3, "<< /Filter /Standard /V 2 >>")

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"encrypted", encrypted.finish("/Root 1 0 R /Encrypt 3 0 R"), ErrEncrypted},
		{"version", bytes.Replace(minimalPDF(), []byte("%PDF-1.7"), []byte("%PDF-3.1"), 1), ErrUnsupportedVersion},
		{"header", []byte("hello world"), ErrNoHeader},
	}
	for _, tc := range cases {
		_, err := NewDocumentParser(Config{Recovery: recovery.NewLenientStrategy()}).Parse(context.Background(), bytes.NewReader(tc.data))
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDocumentParserIndirectLength(t *testing.T) {
	b := newPDFBuilder("1.4")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R >>")
	b.obj(4, "<< /Length 5 0 R >>\nstream\nBT ET endstream inside\nendstream")
	b.obj(5, "22")
	doc, err := NewDocumentParser(Config{}).Parse(context.Background(), bytes.NewReader(b.finish("/Root 1 0 R")))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	st, ok := doc.Stream(raw.Ref(raw.ObjectRef{Num: 4}))
	if !ok || string(st.Data) != "BT ET endstream inside" {
		t.Fatalf("unexpected stream data %q", st.Data)
	}
}

func TestDocumentParserRecoversMissingTrailer(t *testing.T) {
	data := []byte("%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Pages /Kids [2 0 R] /Count 1 >>\nendobj\n" +
		"2 0 obj\n<< /Type /Page /Parent 1 0 R >>\nendobj\n" +
		"3 0 obj\n<< /Type /Catalog /Pages 1 0 R >>\nendobj\n")

	if _, err := NewDocumentParser(Config{}).Parse(context.Background(), bytes.NewReader(data)); err == nil {
		t.Fatalf("strict parsing should fail without an xref")
	}
	doc, err := NewDocumentParser(Config{Recovery: recovery.NewLenientStrategy()}).Parse(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("lenient parse failed: %v", err)
	}
	root, _ := doc.Trailer.Get("Root")
	if root.(raw.RefObj).R.Num != 3 {
		t.Fatalf("expected catalog 3 as root, got %v", root)
	}
}

func TestDocumentParserSkipsBrokenObjectWhenLenient(t *testing.T) {
	b := newPDFBuilder("1.7")
	b.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	b.obj(3, "<< /Type /Page /Parent 2 0 R >>")
	data := b.finish("/Root 1 0 R")
	// Point object 3's xref row at garbage.
	row := fmt.Sprintf("%010d 00000 n ", b.offsets[3])
	data = bytes.Replace(data, []byte(row), []byte("0000000003 00000 n "), 1)

	if _, err := NewDocumentParser(Config{}).Parse(context.Background(), bytes.NewReader(data)); err == nil {
		t.Fatalf("strict parsing should fail on a broken offset")
	}
	strategy := recovery.NewLenientStrategy()
	doc, err := NewDocumentParser(Config{Recovery: strategy}).Parse(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("lenient parse failed: %v", err)
	}
	if len(strategy.Errors) == 0 {
		t.Fatalf("expected the broken object to be reported")
	}
	if _, ok := doc.Catalog(); !ok {
		t.Fatalf("catalog missing")
	}
}

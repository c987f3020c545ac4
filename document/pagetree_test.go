package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wudi/thaipdf/ir/raw"
)

func pageText(t *testing.T, d *Document, page int) string {
	t.Helper()
	pc, err := d.loadPage(context.Background(), page)
	if err != nil {
		t.Fatalf("load page %d: %v", page, err)
	}
	return string(pc.base)
}

func rootCount(t *testing.T, d *Document) int64 {
	t.Helper()
	_, root, _, err := d.pageTreeRoot()
	if err != nil {
		t.Fatalf("page tree: %v", err)
	}
	n, _ := d.raw.Int(root.KV["Count"])
	return n
}

func TestDuplicatePageCarriesPendingContent(t *testing.T) {
	d := mustOpen(t, twoPagePDF())
	withRegular(t, d)
	if err := d.InsertText("A", 1, 10, 10, AlignLeft); err != nil {
		t.Fatalf("insert: %v", err)
	}
	n, err := d.DuplicatePage(1)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if n != 3 || d.PageCount() != 3 {
		t.Fatalf("expected page 3 of 3, got %d of %d", n, d.PageCount())
	}
	if w, h, err := d.PageSize(3); err != nil || w != 612 || h != 792 {
		t.Fatalf("inherited media box not copied: %g x %g, %v", w, h, err)
	}

	if err := d.InsertText("B", 3, 10, 30, AlignLeft); err != nil {
		t.Fatalf("insert on copy: %v", err)
	}
	if got := string(d.content[3].ops.Bytes()); !strings.Contains(got, "/F2 12 Tf") {
		t.Fatalf("copy did not reuse the font name bound on the source:\n%s", got)
	}
	if strings.Contains(string(d.content[1].ops.Bytes()), "<0042>") {
		t.Fatalf("insertion on the copy reached the source page")
	}

	out, err := d.ToBytes()
	if err != nil {
		t.Fatalf("serialise: %v", err)
	}
	again := mustOpen(t, out)
	if again.PageCount() != 3 || rootCount(t, again) != 3 {
		t.Fatalf("expected 3 pages and /Count 3, got %d and %d", again.PageCount(), rootCount(t, again))
	}
	first, dup := pageText(t, again, 1), pageText(t, again, 3)
	if !strings.Contains(first, "<0041> Tj") || strings.Contains(first, "<0042> Tj") {
		t.Fatalf("unexpected source content:\n%s", first)
	}
	if !strings.Contains(dup, "<0041> Tj") || !strings.Contains(dup, "<0042> Tj") || !strings.Contains(dup, "0 0 m 10 10 l S") {
		t.Fatalf("unexpected copy content:\n%s", dup)
	}
}

func TestDuplicatePageCopiesContentStreams(t *testing.T) {
	d := mustOpen(t, twoPagePDF())
	n, err := d.DuplicatePage(2)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	dict, err := d.pageDict(n)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	arr, ok := d.raw.Array(dict.KV["Contents"])
	if !ok || arr.Len() != 2 {
		t.Fatalf("expected a two-stream content array, got %v", dict.KV["Contents"])
	}
	for i, it := range arr.Items {
		ref := it.(raw.RefObj).R
		if ref.Num == 7 || ref.Num == 8 {
			t.Fatalf("content stream %d is shared with the source", i)
		}
	}
	if got := pageText(t, d, n); got != "0 0 m\n5 5 l S" {
		t.Fatalf("unexpected content %q", got)
	}
	if w, h, err := d.PageSize(n); err != nil || w != 300 || h != 400 {
		t.Fatalf("crop box not copied: %g x %g, %v", w, h, err)
	}
	if dict.KV["Parent"] != raw.Ref(raw.ObjectRef{Num: 2}) {
		t.Fatalf("copy is not a kid of the root: %v", dict.KV["Parent"])
	}

	if _, err := d.DuplicatePage(0); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if d.PageCount() != 3 {
		t.Fatalf("failed duplication changed the page count")
	}
}

func TestAddBlankPage(t *testing.T) {
	d := mustOpen(t, twoPagePDF())
	if _, err := d.AddBlankPage(0, 100); !errors.Is(err, ErrMissingGeometry) {
		t.Fatalf("expected ErrMissingGeometry, got %v", err)
	}
	objects := len(d.raw.Objects)
	if d.PageCount() != 2 || objects != 9 {
		t.Fatalf("rejected blank page changed the document")
	}

	n, err := d.AddBlankPage(A4Width, A4Height)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected page 3, got %d", n)
	}
	withRegular(t, d)
	if err := d.InsertText("A", n, 0, 100, AlignLeft); err != nil {
		t.Fatalf("insert on blank page: %v", err)
	}
	out, err := d.ToBytes()
	if err != nil {
		t.Fatalf("serialise: %v", err)
	}
	again := mustOpen(t, out)
	if again.PageCount() != 3 || rootCount(t, again) != 3 {
		t.Fatalf("expected 3 pages and /Count 3, got %d and %d", again.PageCount(), rootCount(t, again))
	}
	if w, h, err := again.PageSize(3); err != nil || !near(w, A4Width) || !near(h, A4Height) {
		t.Fatalf("unexpected blank page size %g x %g, %v", w, h, err)
	}
	if got := pageText(t, again, 3); !strings.HasPrefix(got, "BT\n") || !strings.Contains(got, "0 741.89 Td") {
		t.Fatalf("unexpected blank page content:\n%s", got)
	}
}

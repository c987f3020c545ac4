package raw

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveFollowsReferenceChains(t *testing.T) {
	doc := NewDocument("1.7")
	doc.Objects[ObjectRef{Num: 1}] = NumberInt(42)
	doc.Objects[ObjectRef{Num: 2}] = Ref(ObjectRef{Num: 1})

	got, ok := doc.Int(Ref(ObjectRef{Num: 2}))
	if !ok || got != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", got, ok)
	}
	if doc.Resolve(Ref(ObjectRef{Num: 9})) != nil {
		t.Fatalf("dangling reference should resolve to nil")
	}
}

func TestResolveStopsOnCycles(t *testing.T) {
	doc := NewDocument("1.7")
	doc.Objects[ObjectRef{Num: 1}] = Ref(ObjectRef{Num: 2})
	doc.Objects[ObjectRef{Num: 2}] = Ref(ObjectRef{Num: 1})
	if got := doc.Resolve(Ref(ObjectRef{Num: 1})); got != nil {
		t.Fatalf("expected nil for cyclic references, got %#v", got)
	}
}

func TestReserveAndAdd(t *testing.T) {
	doc := NewDocument("1.7")
	doc.Objects[ObjectRef{Num: 7}] = NullObj{}

	r1 := doc.Reserve()
	if r1.Num != 8 {
		t.Fatalf("expected reserved number 8, got %d", r1.Num)
	}
	r2 := doc.Add(NumberInt(1))
	if r2.Num != 9 {
		t.Fatalf("expected added number 9, got %d", r2.Num)
	}
}

func TestRectNormalises(t *testing.T) {
	doc := NewDocument("1.7")
	got, ok := doc.Rect(NewArray(NumberInt(612), NumberInt(792), NumberInt(0), NumberFloat(0)))
	if !ok {
		t.Fatalf("rect not parsed")
	}
	want := [4]float64{0, 0, 612, 792}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rect mismatch (-want +got):\n%s", diff)
	}
	if _, ok := doc.Rect(NewArray(NumberInt(1), NameLiteral("x"), NumberInt(2), NumberInt(3))); ok {
		t.Fatalf("expected failure for non-numeric rect")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := NewDocument("1.7")
	page := Dict()
	page.Set("Type", NameLiteral("Page"))
	page.Set("Kids", NewArray(NumberInt(1)))
	doc.Objects[ObjectRef{Num: 1}] = page
	doc.Trailer.Set("Root", Ref(ObjectRef{Num: 1}))

	cp := doc.Clone()
	cpPage := cp.Objects[ObjectRef{Num: 1}].(*DictObj)
	cpPage.Set("Type", NameLiteral("Changed"))
	cpPage.KV["Kids"].(*ArrayObj).Append(NumberInt(2))
	cp.Trailer.Set("Info", NullObj{})

	if name, _ := doc.Name(page.KV["Type"]); name != "Page" {
		t.Fatalf("original dict mutated: %q", name)
	}
	if n := page.KV["Kids"].(*ArrayObj).Len(); n != 1 {
		t.Fatalf("original array mutated: len %d", n)
	}
	if _, ok := doc.Trailer.Get("Info"); ok {
		t.Fatalf("original trailer mutated")
	}
}

func TestDictKeysSorted(t *testing.T) {
	d := Dict()
	d.Set("Type", NameLiteral("Font"))
	d.Set("BaseFont", NameLiteral("X"))
	d.Set("Subtype", NameLiteral("Type0"))
	if diff := cmp.Diff([]string{"BaseFont", "Subtype", "Type"}, d.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestIsHeaderVersion(t *testing.T) {
	cases := map[string]bool{"1.4": true, "1.7": true, "2.0": true, "1.8": false, "3.0": false, "": false, "1.": false}
	for v, want := range cases {
		if got := IsHeaderVersion(v); got != want {
			t.Errorf("IsHeaderVersion(%q) = %v, want %v", v, got, want)
		}
	}
}

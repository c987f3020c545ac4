package scanner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/recovery"
)

func newScanner(t *testing.T, data string, cfg Config) Scanner {
	t.Helper()
	return New(bytes.NewReader([]byte(data)), cfg)
}

func nextToken(t *testing.T, s Scanner) Token {
	t.Helper()
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tok
}

func TestScanner_ObjectHeaderAndDict(t *testing.T) {
	s := newScanner(t, "%PDF-1.7\n1 0 obj\n<< /Name /Value /Nums [1 2.5 -3] /Flag true >>\nendobj", Config{})

	tok := nextToken(t, s)
	if tok.Type != TokenNumber || !tok.IsInt || tok.Int != 1 {
		t.Fatalf("expected object number 1, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenNumber || tok.Int != 0 {
		t.Fatalf("expected generation 0, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != "obj" {
		t.Fatalf("expected obj keyword, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenDict {
		t.Fatalf("expected dict start, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Name" {
		t.Fatalf("expected Name key, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Value" {
		t.Fatalf("expected Value, got %+v", tok)
	}
	nextToken(t, s) // /Nums
	if tok = nextToken(t, s); tok.Type != TokenArray {
		t.Fatalf("expected array start, got %+v", tok)
	}
	want := []float64{1, 2.5, -3}
	for _, w := range want {
		tok = nextToken(t, s)
		if tok.Type != TokenNumber || tok.Number() != w {
			t.Fatalf("expected %v, got %+v", w, tok)
		}
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != "]" {
		t.Fatalf("expected array close, got %+v", tok)
	}
	nextToken(t, s) // /Flag
	if tok = nextToken(t, s); tok.Type != TokenBoolean || !tok.Bool {
		t.Fatalf("expected true, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != ">>" {
		t.Fatalf("expected dict close, got %+v", tok)
	}
}

func TestScanner_NameHexEscapes(t *testing.T) {
	tok := nextToken(t, newScanner(t, "/Name#20With#23Hash", Config{}))
	if tok.Type != TokenName || tok.Str != "Name With#Hash" {
		t.Fatalf("unexpected name decode: %+v", tok)
	}
}

func TestScanner_LiteralStrings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`(Hi\n\050\051\t)`, "Hi\n()\t"},
		{"(Line\\\r\ncontinued)", "Linecontinued"},
		{"(a (nested) b)", "a (nested) b"},
		{`(\101\102C)`, "ABC"},
	}
	for _, tc := range cases {
		tok := nextToken(t, newScanner(t, tc.in, Config{}))
		if tok.Type != TokenString || string(tok.Bytes) != tc.want {
			t.Errorf("%q: got %q", tc.in, tok.Bytes)
		}
	}
}

func TestScanner_HexStringOddLength(t *testing.T) {
	tok := nextToken(t, newScanner(t, "<48656c6c6f3>", Config{}))
	if tok.Type != TokenString || !tok.Hex || string(tok.Bytes) != "Hello0" {
		t.Fatalf("expected padded hex string, got %+v", tok)
	}
}

func TestScanner_ReferenceDetection(t *testing.T) {
	s := newScanner(t, "12 5 R %comment\n7 8 9", Config{})
	tok := nextToken(t, s)
	if tok.Type != TokenRef || tok.Int != 12 || tok.Gen != 5 {
		t.Fatalf("expected ref 12 5, got %+v", tok)
	}
	for _, want := range []int64{7, 8, 9} {
		tok = nextToken(t, s)
		if tok.Type != TokenNumber || tok.Int != want {
			t.Fatalf("expected %d, got %+v", want, tok)
		}
	}
}

func TestScanner_ContentModeSkipsReferences(t *testing.T) {
	s := NewBytes([]byte("1 0 0 1 0 0 cm"), Config{Content: true})
	var ops []string
	for {
		tok, err := s.Next()
		if err != nil {
			break
		}
		if tok.Type == TokenKeyword {
			ops = append(ops, tok.Str)
		}
	}
	if diff := cmp.Diff([]string{"cm"}, ops); diff != "" {
		t.Fatalf("operators mismatch (-want +got):\n%s", diff)
	}
}

func TestScanner_Streams(t *testing.T) {
	cases := []struct {
		name string
		data string
		hint int64
		want string
	}{
		{"length hint", "stream\r\nabcde\r\nendstream", 5, "abcde"},
		{"search", "stream\nabc\r\nendstream\n", -1, "abc"},
		{"cr only", "stream\rdata\rendstream\r", -1, "data"},
		{"wrong hint", "stream\nabcdef\nendstream", 3, "abcdef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newScanner(t, tc.data, Config{Recovery: recovery.NewLenientStrategy()})
			s.SetNextStreamLength(tc.hint)
			tok := nextToken(t, s)
			if tok.Type != TokenStream || string(tok.Bytes) != tc.want {
				t.Fatalf("got %+v", tok)
			}
		})
	}
}

func TestScanner_Limits(t *testing.T) {
	cases := []struct {
		name string
		data string
		cfg  Config
		want string
	}{
		{"hex", "<000102>", Config{MaxStringLength: 2}, "hex string too long"},
		{"literal", "(abcdef)", Config{MaxStringLength: 3}, "literal string too long"},
		{"nesting", "<< /A << /B << >> >> >>", Config{MaxNestingDepth: 2}, "nesting depth exceeded"},
	}
	for _, tc := range cases {
		s := newScanner(t, tc.data, tc.cfg)
		var err error
		for err == nil {
			_, err = s.Next()
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestScanner_UnterminatedStrict(t *testing.T) {
	for _, in := range []string{"(abc", "<abc"} {
		if _, err := newScanner(t, in, Config{}).Next(); err == nil || !strings.Contains(err.Error(), "unterminated") {
			t.Errorf("%q: expected unterminated error, got %v", in, err)
		}
	}
}

type recordRecovery struct {
	locs []recovery.Location
}

func (r *recordRecovery) OnError(ctx context.Context, err error, loc recovery.Location) recovery.Action {
	r.locs = append(r.locs, loc)
	return recovery.ActionFix
}

func TestScanner_RecoveryContinues(t *testing.T) {
	rec := &recordRecovery{}
	s := New(bytes.NewReader([]byte("<4142")), Config{Recovery: rec})
	tok := nextToken(t, s)
	if tok.Type != TokenString || string(tok.Bytes) != "AB" {
		t.Fatalf("unexpected token after recovery: %+v", tok)
	}
	if len(rec.locs) != 1 || rec.locs[0].Component != "scanner:hex" {
		t.Fatalf("unexpected recovery calls: %+v", rec.locs)
	}
}

func TestScanner_SmallWindow(t *testing.T) {
	data := "<< /Type /Page /MediaBox [0 0 612 792] >>"
	s := New(bytes.NewReader([]byte(data)), Config{WindowSize: 3})
	obj, err := ReadObject(NewTokenReader(s))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	dict := obj.(*raw.DictObj)
	if dict.Len() != 2 {
		t.Fatalf("expected 2 keys, got %v", dict.Keys())
	}
}

func TestReadIndirect(t *testing.T) {
	data := "4 0 obj\n<< /Length 5 0 R /Filter /FlateDecode >>\nstream\nxyz\nendstream\nendobj\n"
	tr := NewTokenReader(NewBytes([]byte(data), Config{}))
	ind, err := ReadIndirect(tr, func(ref raw.ObjectRef) (int64, bool) {
		if ref.Num == 5 {
			return 3, true
		}
		return 0, false
	})
	if err != nil {
		t.Fatalf("read indirect: %v", err)
	}
	if ind.Ref != (raw.ObjectRef{Num: 4}) {
		t.Fatalf("unexpected ref %v", ind.Ref)
	}
	stream, ok := ind.Object.(*raw.StreamObj)
	if !ok || string(stream.Data) != "xyz" {
		t.Fatalf("unexpected object %#v", ind.Object)
	}
	if _, err := tr.Next(); err == nil {
		t.Fatalf("expected endobj to be consumed")
	}
}

func TestReadIndirectUnterminatedDict(t *testing.T) {
	data := "3 0 obj\n<< /Type /Pages /Count 1\nendobj\n"
	ind, err := ReadIndirect(NewTokenReader(NewBytes([]byte(data), Config{})), nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !ind.Unterminated {
		t.Fatalf("expected unterminated flag")
	}
	if ind.Object.(*raw.DictObj).Len() != 2 {
		t.Fatalf("expected partial dictionary to be kept")
	}
}

func TestReadObjectDropsNullEntries(t *testing.T) {
	obj, err := ReadObject(NewTokenReader(NewBytes([]byte("<< /A null /B 1 >>"), Config{})))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]string{"B"}, obj.(*raw.DictObj).Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	_, err = ReadObject(NewTokenReader(NewBytes([]byte("endobj"), Config{})))
	if !errors.Is(err, ErrUnexpectedEndobj) {
		t.Fatalf("expected ErrUnexpectedEndobj, got %v", err)
	}
}

package filters

import (
	"bytes"
	"compress/flate"
	stdlzw "compress/lzw"
	"context"
	"errors"
	"testing"

	"github.com/wudi/thaipdf/ir/raw"
)

func predictorParams(predictor, columns int64) *raw.DictObj {
	params := raw.Dict()
	params.Set("Predictor", raw.NumberInt(predictor))
	params.Set("Colors", raw.NumberInt(1))
	params.Set("BitsPerComponent", raw.NumberInt(8))
	params.Set("Columns", raw.NumberInt(columns))
	return params
}

func TestFlateRoundTrip(t *testing.T) {
	dec := NewFlateDecoder()
	out, err := dec.Decode(context.Background(), FlateEncode([]byte("hello world")), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlateAcceptsRawDeflate(t *testing.T) {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.BestSpeed)
	w.Write([]byte("no zlib header"))
	w.Close()

	out, err := NewFlateDecoder().Decode(context.Background(), buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if string(out) != "no zlib header" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestFlateDecodeWithPNGPredictor(t *testing.T) {
	// Two rows: Sub then Up.
	encoded := FlateEncode([]byte{1, 10, 2, 10, 2, 1, 1, 1})
	out, err := NewFlateDecoder().Decode(context.Background(), encoded, predictorParams(12, 3))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	want := []byte{10, 12, 22, 11, 13, 23}
	if !bytes.Equal(out, want) {
		t.Fatalf("predictor output mismatch: got %v want %v", out, want)
	}
}

func TestTIFFPredictor(t *testing.T) {
	out, err := applyPredictor([]byte{5, 1, 1, 7, 2, 2}, predictorParams(2, 3))
	if err != nil {
		t.Fatalf("predictor: %v", err)
	}
	want := []byte{5, 6, 7, 7, 9, 11}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v want %v", out, want)
	}
}

func TestLZWDecodeEarlyChangeZero(t *testing.T) {
	var buf bytes.Buffer
	w := stdlzw.NewWriter(&buf, stdlzw.MSB, 8)
	input := []byte("hello hello hello")
	w.Write(input)
	w.Close()

	params := raw.Dict()
	params.Set("EarlyChange", raw.NumberInt(0))
	out, err := NewLZWDecoder().Decode(context.Background(), buf.Bytes(), params)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestASCIIDecoders(t *testing.T) {
	cases := []struct {
		dec  Decoder
		in   string
		want string
	}{
		{NewASCIIHexDecoder(), "48 65 6C\n6C 6F>", "Hello"},
		{NewASCIIHexDecoder(), "414>", "A@"},
		{NewASCII85Decoder(), "<~87cURD]i,\"Ebo80~>", "Hello World!"},
		{NewASCII85Decoder(), "z~>", "\x00\x00\x00\x00"},
		{NewRunLengthDecoder(), "\x02abc\xfdz\x80", "abczzzz"},
	}
	for _, tc := range cases {
		out, err := tc.dec.Decode(context.Background(), []byte(tc.in), nil)
		if err != nil {
			t.Errorf("%s %q: %v", tc.dec.Name(), tc.in, err)
			continue
		}
		if string(out) != tc.want {
			t.Errorf("%s %q: got %q want %q", tc.dec.Name(), tc.in, out, tc.want)
		}
	}
}

func TestPipelineChainsAndLimits(t *testing.T) {
	encoded := []byte("78DA")
	p := NewStandardPipeline(Limits{})
	hexed := []byte("")
	for _, b := range FlateEncode([]byte("chained")) {
		hexed = append(hexed, "0123456789ABCDEF"[b>>4], "0123456789ABCDEF"[b&0xF])
	}
	out, err := p.Decode(context.Background(), hexed, []string{"AHx", "FlateDecode"}, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != "chained" {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := p.Decode(context.Background(), encoded, []string{"JBIG2Decode"}, nil); !errors.Is(err, ErrUnsupportedFilter) {
		t.Fatalf("expected ErrUnsupportedFilter, got %v", err)
	}

	limited := NewStandardPipeline(Limits{MaxDecompressedSize: 4})
	if _, err := limited.Decode(context.Background(), FlateEncode([]byte("too large")), []string{"FlateDecode"}, nil); !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
}

func TestExtractFilters(t *testing.T) {
	dict := raw.Dict()
	dict.Set("Filter", raw.NewArray(raw.NameLiteral("ASCIIHexDecode"), raw.NameLiteral("FlateDecode")))
	dict.Set("DecodeParms", raw.NewArray(raw.NullObj{}, predictorParams(12, 4)))

	names, params := ExtractFilters(dict, nil)
	if len(names) != 2 || names[1] != "FlateDecode" {
		t.Fatalf("unexpected names %v", names)
	}
	if params[0] != nil || params[1] == nil {
		t.Fatalf("params not aligned with filters: %v", params)
	}
}

package thai

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func testSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	d, err := LoadDictionary(strings.NewReader("# test words\nสวัสดี\nครับ\nค่ะ\nประเทศ\nไทย\nกรุงเทพ\nมหา\nนคร\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return NewSegmenter(d)
}

func TestDictionary(t *testing.T) {
	d, err := NewDictionary([]string{" ก ", "กก", "กกก", ""})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if d.Len() != 3 || d.MaxWordLen() != 3 || !d.Contains("ก") {
		t.Fatalf("unexpected dictionary: len %d max %d", d.Len(), d.MaxWordLen())
	}
	if _, err := LoadDictionary(strings.NewReader("# only a comment\n\n")); !errors.Is(err, ErrEmptyDictionary) {
		t.Fatalf("expected ErrEmptyDictionary, got %v", err)
	}
}

func TestDictionaryNormalizesEntries(t *testing.T) {
	d, err := NewDictionary([]string{"e\u0301"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !d.Contains("\u00e9") || !d.Contains("e\u0301") {
		t.Fatalf("lookup is not normalization-insensitive")
	}
}

func TestSegment(t *testing.T) {
	s := testSegmenter(t)
	cases := []struct {
		in   string
		want []string
	}{
		{"สวัสดีครับ", []string{"สวัสดี", "ครับ"}},
		{"ประเทศไทย", []string{"ประเทศ", "ไทย"}},
		{"กรุงเทพมหานคร", []string{"กรุงเทพ", "มหา", "นคร"}},
		{"สวัสดีXYZครับ", []string{"สวัสดี", "X", "Y", "Z", "ครับ"}},
		{"ไทย 24, ok", []string{"ไทย", " ", "2", "4", ",", " ", "o", "k"}},
		{"ขอบ", []string{"ข", "อ", "บ"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := s.Segment(tc.in)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Segment(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
		if strings.Join(got, "") != tc.in {
			t.Errorf("Segment(%q) altered the text", tc.in)
		}
	}
}

func TestSegmentConcurrentUse(t *testing.T) {
	s := testSegmenter(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := s.Segment("สวัสดีครับประเทศไทย"); len(got) != 4 {
					t.Errorf("unexpected segments %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestWordWrap(t *testing.T) {
	s := testSegmenter(t)
	text := "สวัสดีครับประเทศไทย"
	lines := s.WordWrap(text, 10)
	if diff := cmp.Diff([]string{"สวัสดีครับ", "ประเทศไทย"}, lines); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	for _, l := range lines {
		if n := len([]rune(l)); n > 10 {
			t.Errorf("line %q has %d runes", l, n)
		}
	}

	if got := s.WordWrap("สวัสดี", 0); !cmp.Equal(got, []string{"สวัสดี"}) {
		t.Fatalf("maxChars 0: %q", got)
	}
	if got := s.WordWrap("", 10); got != nil {
		t.Fatalf("empty text: %q", got)
	}
	// An over-long segment stands alone.
	if got := s.WordWrap("สวัสดีไทย", 3); !cmp.Equal(got, []string{"สวัสดี", "ไทย"}) {
		t.Fatalf("over-long segment: %q", got)
	}
	// Whitespace is preserved, including at the start of a line.
	spaced := "ไทย ไทย ไทย"
	if got := s.WordWrap(spaced, 4); strings.Join(got, "") != spaced || len(got) != 3 {
		t.Fatalf("spaced: %q", got)
	}
}

func TestWordWrapFallbackSegments(t *testing.T) {
	s := testSegmenter(t)
	cases := []struct {
		text string
		max  int
		want []string
	}{
		// "ก่" is unknown: the fallback yields ก and the tone mark separately.
		{"ไทยก่", 4, []string{"ไทยก", "่"}},
		{"กิ", 1, []string{"ก", "ิ"}},
		{"ไทยเก", 4, []string{"ไทยเ", "ก"}},
		{"abcdef", 4, []string{"abcd", "ef"}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, s.WordWrap(tc.text, tc.max)); diff != "" {
			t.Errorf("WordWrap(%q, %d) mismatch (-want +got):\n%s", tc.text, tc.max, diff)
		}
	}
}

func TestWordWrapLinesFitOrHoldOneSegment(t *testing.T) {
	s := testSegmenter(t)
	alphabet := []rune("สวัสดีครับไทยประเทศกรุงเทพมหานครก่ิเแ ab1,")
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		text := make([]rune, rng.IntN(40))
		for j := range text {
			text[j] = alphabet[rng.IntN(len(alphabet))]
		}
		maxChars := 1 + rng.IntN(12)
		lines := s.WordWrap(string(text), maxChars)
		if strings.Join(lines, "") != string(text) {
			t.Fatalf("WordWrap(%q, %d) altered the text: %q", string(text), maxChars, lines)
		}
		for _, line := range lines {
			if n := utf8.RuneCountInString(line); n > maxChars && len(s.Segment(line)) != 1 {
				t.Fatalf("WordWrap(%q, %d): line %q has %d runes and several segments", string(text), maxChars, line, n)
			}
		}
	}
}

func TestDefaultDictionary(t *testing.T) {
	d, err := DefaultDictionary()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if d.Len() < 200 {
		t.Fatalf("default dictionary too small: %d", d.Len())
	}
	got := Segment("ใบเสร็จรับเงินบริษัทจำกัด")
	if diff := cmp.Diff([]string{"ใบเสร็จรับเงิน", "บริษัท", "จำกัด"}, got); diff != "" {
		t.Fatalf("segments mismatch (-want +got):\n%s", diff)
	}
	if lines := WordWrap("ใบเสร็จรับเงินบริษัทจำกัด", 14); len(lines) != 2 {
		t.Fatalf("unexpected wrap %q", lines)
	}
}

func TestCharClasses(t *testing.T) {
	if !IsThai('ก') || !IsThai('๐') || IsThai('A') {
		t.Fatalf("IsThai")
	}
	for _, r := range "เแโใไ" {
		if !IsLeadingVowel(r) {
			t.Fatalf("%q should be a leading vowel", r)
		}
	}
	if IsLeadingVowel('า') || !IsAboveMark('่') || !IsBelowMark('ุ') || !IsCombining('ั') {
		t.Fatalf("mark classes")
	}
	cases := []struct {
		a, b rune
		want bool
	}{
		{'เ', 'ก', false},
		{'ก', '่', false},
		{'ก', 'า', false},
		{'ก', 'ข', true},
		{'ก', 'เ', true},
		{'a', 'b', false},
		{'a', ' ', true},
	}
	for _, tc := range cases {
		if got := CanBreakBetween(tc.a, tc.b); got != tc.want {
			t.Errorf("CanBreakBetween(%q, %q) = %v", tc.a, tc.b, got)
		}
	}
	if diff := cmp.Diff([]int{0, 3, 9, 12}, BreakPoints("กเขค")); diff != "" {
		t.Fatalf("break points (-want +got):\n%s", diff)
	}
}

func TestNumberWords(t *testing.T) {
	cases := map[int64]string{
		0:          "ศูนย์",
		1:          "หนึ่ง",
		10:         "สิบ",
		11:         "สิบเอ็ด",
		20:         "ยี่สิบ",
		21:         "ยี่สิบเอ็ด",
		100:        "หนึ่งร้อย",
		101:        "หนึ่งร้อยเอ็ด",
		999:        "เก้าร้อยเก้าสิบเก้า",
		100000:     "หนึ่งแสน",
		1000000:    "หนึ่งล้าน",
		21000000:   "ยี่สิบเอ็ดล้าน",
		1000001:    "หนึ่งล้านเอ็ด",
		-5:         "ลบห้า",
		1234567890: "หนึ่งพันสองร้อยสามสิบสี่ล้านห้าแสนหกหมื่นเจ็ดพันแปดร้อยเก้าสิบ",
	}
	for in, want := range cases {
		if got := NumberWords(in); got != want {
			t.Errorf("NumberWords(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestBahtWords(t *testing.T) {
	cases := map[float64]string{
		0:      "-",
		1:      "หนึ่งบาทถ้วน",
		0.25:   "ยี่สิบห้าสตางค์",
		0.50:   "ห้าสิบสตางค์",
		100.25: "หนึ่งร้อยบาทยี่สิบห้าสตางค์",
		1.999:  "สองบาทถ้วน",
	}
	for in, want := range cases {
		if got := BahtWords(in); got != want {
			t.Errorf("BahtWords(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2025, time.January, 22, 0, 0, 0, 0, time.UTC)
	cases := map[DateFormat]string{
		DateShort: "22 ม.ค. 68",
		DateLong:  "22 มกราคม 2568",
		DateYear:  "ปี 2568",
	}
	for f, want := range cases {
		if got := FormatDate(d, f); got != want {
			t.Errorf("FormatDate(%d) = %q, want %q", f, got, want)
		}
	}
	if got := FormatDate(time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC), DateShort); got != "31 ธ.ค. 68" {
		t.Errorf("December: %q", got)
	}
}

func TestFormatFloat(t *testing.T) {
	cases := []struct {
		v       float64
		pattern string
		want    string
	}{
		{1234.56, "#,###.##", "1,234.56"},
		{1000000, "#,###.##", "1,000,000.00"},
		{-100.5, "#,###.##", "-100.50"},
		{1234.6, "#,###", "1,235"},
		{1234.5, "0.0", "1234.5"},
		{-0.001, "#.##", "0.00"},
		{42, "", "42.00"},
	}
	for _, tc := range cases {
		if got := FormatFloat(tc.v, tc.pattern); got != tc.want {
			t.Errorf("FormatFloat(%v, %q) = %q, want %q", tc.v, tc.pattern, got, tc.want)
		}
	}
}

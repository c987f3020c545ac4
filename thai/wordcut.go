package thai

import "unicode/utf8"

// Segmenter splits text into words by longest dictionary match. It holds
// no mutable state and is safe for concurrent use.
type Segmenter struct {
	dict *Dictionary
}

func NewSegmenter(d *Dictionary) *Segmenter {
	return &Segmenter{dict: d}
}

// DefaultSegmenter uses the built-in dictionary.
func DefaultSegmenter() (*Segmenter, error) {
	d, err := DefaultDictionary()
	if err != nil {
		return nil, err
	}
	return NewSegmenter(d), nil
}

func (s *Segmenter) Dictionary() *Dictionary { return s.dict }

// Segment partitions text. Thai runs are scanned longest-match-first,
// falling back to a single rune when nothing matches. Every other rune,
// whitespace included, is a segment of its own and is never looked up.
// Concatenating the result always gives back text.
func (s *Segmenter) Segment(text string) []string {
	var out []string
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !IsThai(r) {
			out = append(out, text[i:i+size])
			i += size
			continue
		}
		end := i + size
		for end < len(text) {
			r, n := utf8.DecodeRuneInString(text[end:])
			if !IsThai(r) {
				break
			}
			end += n
		}
		out = s.segmentThai(text[i:end], out)
		i = end
	}
	return out
}

func (s *Segmenter) segmentThai(run string, out []string) []string {
	// byte offset of every rune boundary
	bounds := make([]int, 0, len(run)/3+1)
	for i := range run {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(run))

	for pos := 0; pos < len(bounds)-1; {
		n := 1
		for l := min(s.dict.maxLen, len(bounds)-1-pos); l >= 1; l-- {
			if s.dict.Contains(run[bounds[pos]:bounds[pos+l]]) {
				n = l
				break
			}
		}
		out = append(out, run[bounds[pos]:bounds[pos+n]])
		pos += n
	}
	return out
}

var defaultSegmenter = func() *Segmenter {
	s, err := DefaultSegmenter()
	if err != nil {
		panic(err)
	}
	return s
}

// Segment splits text with the built-in dictionary.
func Segment(text string) []string {
	return defaultSegmenter().Segment(text)
}

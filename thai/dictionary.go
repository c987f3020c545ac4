// Package thai segments, wraps and formats Thai text.
package thai

import (
	"bufio"
	_ "embed"
	"errors"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyDictionary is returned when a word list yields no words.
var ErrEmptyDictionary = errors.New("dictionary has no words")

//go:embed default.dic
var defaultWords string

// Dictionary is an immutable set of words used by the segmenter.
type Dictionary struct {
	words  map[string]struct{}
	maxLen int
}

// NewDictionary builds a dictionary from words. Entries are trimmed and
// stored in NFC; blank entries are ignored.
func NewDictionary(words []string) (*Dictionary, error) {
	d := &Dictionary{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = norm.NFC.String(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		d.words[w] = struct{}{}
		d.maxLen = max(d.maxLen, utf8.RuneCountInString(w))
	}
	if len(d.words) == 0 {
		return nil, ErrEmptyDictionary
	}
	return d, nil
}

// LoadDictionary reads one word per line. Lines starting with '#' are
// comments.
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewDictionary(words)
}

// DefaultDictionary returns the built-in word list, loaded once.
var DefaultDictionary = sync.OnceValues(func() (*Dictionary, error) {
	return LoadDictionary(strings.NewReader(defaultWords))
})

// Contains reports whether word is in the dictionary.
func (d *Dictionary) Contains(word string) bool {
	if !norm.NFC.IsNormalString(word) {
		word = norm.NFC.String(word)
	}
	_, ok := d.words[word]
	return ok
}

// MaxWordLen is the length in runes of the longest word.
func (d *Dictionary) MaxWordLen() int { return d.maxLen }

func (d *Dictionary) Len() int { return len(d.words) }

package thai

import (
	"strings"
	"unicode/utf8"
)

// WordWrap breaks text into lines of at most maxChars runes along segment
// boundaries. A segment longer than maxChars gets a line of its own.
// maxChars <= 0 disables wrapping. Joining the lines gives back text.
func (s *Segmenter) WordWrap(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}
	var (
		lines []string
		line  strings.Builder
		count int
	)
	for _, seg := range s.Segment(text) {
		n := utf8.RuneCountInString(seg)
		if count > 0 && count+n > maxChars {
			lines = append(lines, line.String())
			line.Reset()
			count = 0
		}
		line.WriteString(seg)
		count += n
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// WordWrap wraps text with the built-in dictionary.
func WordWrap(text string, maxChars int) []string {
	return defaultSegmenter().WordWrap(text, maxChars)
}

package thai

import (
	"unicode"
	"unicode/utf8"
)

// IsThai reports whether r is in the Thai block (U+0E00..U+0E7F).
func IsThai(r rune) bool { return r >= 0x0E00 && r <= 0x0E7F }

// IsLeadingVowel reports the vowels written before their consonant.
func IsLeadingVowel(r rune) bool { return r >= 'เ' && r <= 'ไ' }

// IsAboveMark reports vowels and tone marks drawn above the base.
func IsAboveMark(r rune) bool {
	return r == 0x0E31 || (r >= 0x0E34 && r <= 0x0E37) || (r >= 0x0E47 && r <= 0x0E4E)
}

// IsBelowMark reports vowels and marks drawn below the base.
func IsBelowMark(r rune) bool { return r >= 0x0E38 && r <= 0x0E3A }

// IsCombining reports marks that attach to the preceding character.
func IsCombining(r rune) bool { return IsAboveMark(r) || IsBelowMark(r) }

// isFollowingVowel reports spacing vowels that close the preceding syllable.
func isFollowingVowel(r rune) bool {
	return r == 'ะ' || r == 'า' || r == 'ำ' || r == 'ๅ'
}

// CanBreakBetween reports whether a line may end between a and b.
func CanBreakBetween(a, b rune) bool {
	switch {
	case IsCombining(b), isFollowingVowel(b), IsLeadingVowel(a):
		return false
	case unicode.IsSpace(a), unicode.IsSpace(b):
		return true
	case !IsThai(a) && !IsThai(b):
		// inside a Latin word or number
		return false
	}
	return true
}

// BreakPoints returns the byte offsets at which text may be broken,
// including 0 and len(text).
func BreakPoints(text string) []int {
	if text == "" {
		return []int{0}
	}
	out := []int{0}
	prev, size := utf8.DecodeRuneInString(text)
	for i := size; i < len(text); {
		r, n := utf8.DecodeRuneInString(text[i:])
		if CanBreakBetween(prev, r) {
			out = append(out, i)
		}
		prev = r
		i += n
	}
	return append(out, len(text))
}

package fonts

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Usage is the growing set of runes drawn with one font.
type Usage struct {
	runes map[rune]struct{}
}

func NewUsage() *Usage {
	return &Usage{runes: make(map[rune]struct{})}
}

// Add records every rune of text.
func (u *Usage) Add(text string) {
	for _, r := range text {
		u.runes[r] = struct{}{}
	}
}

func (u *Usage) Contains(r rune) bool {
	_, ok := u.runes[r]
	return ok
}

func (u *Usage) Len() int { return len(u.runes) }

// Runes returns the recorded runes in ascending order.
func (u *Usage) Runes() []rune {
	runes := maps.Keys(u.runes)
	slices.Sort(runes)
	return runes
}

// GIDs maps the recorded runes to glyph ids of f. Glyph 0 is always
// present.
func (u *Usage) GIDs(f *Font) map[uint16]bool {
	out := map[uint16]bool{0: true}
	for r := range u.runes {
		if gid, ok := f.GlyphID(r); ok {
			out[gid] = true
		}
	}
	return out
}

func (u *Usage) Clone() *Usage {
	c := NewUsage()
	for r := range u.runes {
		c.runes[r] = struct{}{}
	}
	return c
}

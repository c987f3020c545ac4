package fonts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"

	"golang.org/x/exp/maps"
	"golang.org/x/text/encoding/unicode"

	"github.com/wudi/thaipdf/ir/raw"
)

// ErrTooManyGlyphs is returned when a font runs out of CIDs for
// supplementary-plane characters.
var ErrTooManyGlyphs = errors.New("too many supplementary characters for one font")

const (
	// CMapName is the /CMapName of the embedded encoding.
	CMapName = "ThaiPDF-UTF16-H"

	supplementaryBase  = 0xD800
	supplementarySlots = 2048
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// EncodeUTF16 returns the UTF-16BE code units of text, as written in Tj
// operands.
func EncodeUTF16(text string) ([]byte, error) {
	out, err := utf16BE.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode utf-16: %w", err)
	}
	return out, nil
}

// Encoding assigns CIDs to characters drawn with one font. BMP characters
// use their code unit as CID; supplementary characters get CIDs from the
// surrogate range in first-use order, which is never a valid BMP code.
type Encoding struct {
	supplementary map[rune]uint16
}

func NewEncoding() *Encoding {
	return &Encoding{supplementary: make(map[rune]uint16)}
}

// Reserve allocates CIDs for the supplementary characters of text. Either
// every character gets a CID or the encoding is left unchanged.
func (e *Encoding) Reserve(text string) error {
	var fresh []rune
	for _, r := range text {
		if r <= 0xFFFF {
			continue
		}
		if _, ok := e.supplementary[r]; ok || slices.Contains(fresh, r) {
			continue
		}
		fresh = append(fresh, r)
	}
	if len(e.supplementary)+len(fresh) > supplementarySlots {
		return fmt.Errorf("%w: limit is %d", ErrTooManyGlyphs, supplementarySlots)
	}
	for _, r := range fresh {
		e.supplementary[r] = uint16(supplementaryBase + len(e.supplementary))
	}
	return nil
}

// CID returns the character identifier for r.
func (e *Encoding) CID(r rune) (uint16, bool) {
	if r >= 0xD800 && r <= 0xDFFF {
		return 0, false
	}
	if r <= 0xFFFF {
		return uint16(r), true
	}
	cid, ok := e.supplementary[r]
	return cid, ok
}

func (e *Encoding) Clone() *Encoding {
	c := NewEncoding()
	for r, cid := range e.supplementary {
		c.supplementary[r] = cid
	}
	return c
}

// code returns the UTF-16BE byte code selecting r.
func code(r rune) string {
	if r > 0xFFFF {
		hi, lo := utf16.EncodeRune(r)
		return fmt.Sprintf("%04X%04X", hi, lo)
	}
	return fmt.Sprintf("%04X", r)
}

const codespace = `3 begincodespacerange
<0000> <D7FF>
<E000> <FFFF>
<D800DC00> <DBFFDFFF>
endcodespacerange
`

func cmapHeader(name string, buf *bytes.Buffer) {
	buf.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	buf.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> def\n")
	fmt.Fprintf(buf, "/CMapName /%s def\n/CMapType %d def\n", name, cmapType(name))
	buf.WriteString(codespace)
}

func cmapType(name string) int {
	if strings.HasSuffix(name, "-UCS") {
		return 2
	}
	return 1
}

func cmapTrailer(buf *bytes.Buffer) {
	buf.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
}

// CMapProgram builds the embedded encoding CMap: identity ranges for BMP
// codes and one cidchar per supplementary character in use.
func (e *Encoding) CMapProgram(runes []rune) []byte {
	var buf bytes.Buffer
	cmapHeader(CMapName, &buf)
	buf.WriteString("2 begincidrange\n<0000> <D7FF> 0\n<E000> <FFFF> 57344\nendcidrange\n")

	var supp []rune
	for _, r := range runes {
		if _, ok := e.supplementary[r]; ok {
			supp = append(supp, r)
		}
	}
	for chunk := range slices.Chunk(supp, 100) {
		fmt.Fprintf(&buf, "%d begincidchar\n", len(chunk))
		for _, r := range chunk {
			fmt.Fprintf(&buf, "<%s> %d\n", code(r), e.supplementary[r])
		}
		buf.WriteString("endcidchar\n")
	}
	cmapTrailer(&buf)
	return buf.Bytes()
}

// ToUnicode builds the ToUnicode CMap mapping every used code back to its
// character.
func ToUnicode(runes []rune) []byte {
	var buf bytes.Buffer
	cmapHeader("ThaiPDF-UTF16-UCS", &buf)
	for chunk := range slices.Chunk(runes, 100) {
		fmt.Fprintf(&buf, "%d beginbfchar\n", len(chunk))
		for _, r := range chunk {
			c := code(r)
			fmt.Fprintf(&buf, "<%s> <%s>\n", c, c)
		}
		buf.WriteString("endbfchar\n")
	}
	cmapTrailer(&buf)
	return buf.Bytes()
}

// cidGlyphs maps the CID of each used rune to its glyph in f. Runes the
// font lacks map to .notdef.
func (e *Encoding) cidGlyphs(f *Font, runes []rune) map[uint16]uint16 {
	out := make(map[uint16]uint16, len(runes))
	for _, r := range runes {
		cid, ok := e.CID(r)
		if !ok {
			continue
		}
		gid, _ := f.GlyphID(r)
		out[cid] = gid
	}
	return out
}

// CIDToGIDMap returns the stream payload mapping CIDs to glyph ids, two
// bytes per CID up to the highest CID in use.
func (e *Encoding) CIDToGIDMap(f *Font, runes []rune) []byte {
	glyphs := e.cidGlyphs(f, runes)
	if len(glyphs) == 0 {
		return []byte{0, 0}
	}
	top := slices.Max(maps.Keys(glyphs))
	out := make([]byte, 2*(int(top)+1))
	for cid, gid := range glyphs {
		out[2*int(cid)] = byte(gid >> 8)
		out[2*int(cid)+1] = byte(gid)
	}
	return out
}

// Widths builds the CIDFont /W array as runs of consecutive CIDs.
func (e *Encoding) Widths(f *Font, runes []rune) *raw.ArrayObj {
	glyphs := e.cidGlyphs(f, runes)
	cids := maps.Keys(glyphs)
	slices.Sort(cids)
	out := raw.NewArray()
	for i := 0; i < len(cids); {
		j := i + 1
		for j < len(cids) && cids[j] == cids[j-1]+1 {
			j++
		}
		run := raw.NewArray()
		for _, cid := range cids[i:j] {
			run.Append(raw.NumberInt(int64(math.Round(f.GlyphWidth(glyphs[cid])))))
		}
		out.Append(raw.NumberInt(int64(cids[i])))
		out.Append(run)
		i = j
	}
	return out
}


package fonts

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/thaipdf/filters"
	"github.com/wudi/thaipdf/ir/raw"
)

// Embedding describes one font to be written into a document.
type Embedding struct {
	Font     *Font
	Usage    *Usage
	Encoding *Encoding
	Subset   bool
	Compress bool
}

// Embed stores the Type0 font dictionary under ref and adds its
// descendant font, descriptor, font program and CMaps to doc.
func Embed(doc *raw.Document, ref raw.ObjectRef, e Embedding) error {
	runes := e.Usage.Runes()
	program := e.Font.Data()
	baseFont := e.Font.PostScriptName
	if e.Subset {
		sub, err := Subset(program, e.Usage.GIDs(e.Font))
		if err != nil {
			return fmt.Errorf("subset %s: %w", baseFont, err)
		}
		program = sub
		baseFont = SubsetTag(runes, baseFont) + "+" + baseFont
	}

	fontFile := raw.Dict()
	fontFile.Set("Length1", raw.NumberInt(int64(len(program))))
	fontFileRef := doc.Add(stream(fontFile, program, e.Compress))

	f := e.Font
	descriptor := raw.Dict()
	descriptor.Set("Type", raw.NameLiteral("FontDescriptor"))
	descriptor.Set("FontName", raw.NameLiteral(baseFont))
	descriptor.Set("Flags", raw.NumberInt(int64(f.Flags)))
	descriptor.Set("FontBBox", raw.Numbers(round(f.BBox[0]), round(f.BBox[1]), round(f.BBox[2]), round(f.BBox[3])))
	descriptor.Set("ItalicAngle", raw.NumberFloat(f.ItalicAngle))
	descriptor.Set("Ascent", raw.NumberFloat(round(f.Ascent)))
	descriptor.Set("Descent", raw.NumberFloat(round(f.Descent)))
	descriptor.Set("CapHeight", raw.NumberFloat(round(f.CapHeight)))
	descriptor.Set("StemV", raw.NumberInt(80))
	descriptor.Set("FontFile2", raw.Ref(fontFileRef))
	descriptorRef := doc.Add(descriptor)

	cidToGID := doc.Add(stream(nil, e.Encoding.CIDToGIDMap(f, runes), e.Compress))

	cidFont := raw.Dict()
	cidFont.Set("Type", raw.NameLiteral("Font"))
	cidFont.Set("Subtype", raw.NameLiteral("CIDFontType2"))
	cidFont.Set("BaseFont", raw.NameLiteral(baseFont))
	cidFont.Set("CIDSystemInfo", systemInfo())
	cidFont.Set("FontDescriptor", raw.Ref(descriptorRef))
	cidFont.Set("DW", raw.NumberInt(int64(math.Round(f.GlyphWidth(0)))))
	cidFont.Set("W", e.Encoding.Widths(f, runes))
	cidFont.Set("CIDToGIDMap", raw.Ref(cidToGID))
	cidFontRef := doc.Add(cidFont)

	cmapDict := raw.Dict()
	cmapDict.Set("Type", raw.NameLiteral("CMap"))
	cmapDict.Set("CMapName", raw.NameLiteral(CMapName))
	cmapDict.Set("CIDSystemInfo", systemInfo())
	cmapRef := doc.Add(stream(cmapDict, e.Encoding.CMapProgram(runes), e.Compress))

	toUnicode := doc.Add(stream(nil, ToUnicode(runes), e.Compress))

	type0 := raw.Dict()
	type0.Set("Type", raw.NameLiteral("Font"))
	type0.Set("Subtype", raw.NameLiteral("Type0"))
	type0.Set("BaseFont", raw.NameLiteral(baseFont))
	type0.Set("Encoding", raw.Ref(cmapRef))
	type0.Set("DescendantFonts", raw.NewArray(raw.Ref(cidFontRef)))
	type0.Set("ToUnicode", raw.Ref(toUnicode))
	doc.Objects[ref] = type0
	return nil
}

// SubsetTag derives the six capital letters prefixed to a subset font
// name from the characters it contains.
func SubsetTag(runes []rune, name string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(name))
	var buf [4]byte
	for _, r := range runes {
		binary.BigEndian.PutUint32(buf[:], uint32(r))
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + sum[i]%26
	}
	return string(tag)
}

func systemInfo() *raw.DictObj {
	d := raw.Dict()
	d.Set("Registry", raw.Str([]byte("Adobe")))
	d.Set("Ordering", raw.Str([]byte("Identity")))
	d.Set("Supplement", raw.NumberInt(0))
	return d
}

func stream(dict *raw.DictObj, data []byte, compress bool) *raw.StreamObj {
	if dict == nil {
		dict = raw.Dict()
	}
	if compress {
		dict.Set("Filter", raw.NameLiteral("FlateDecode"))
		data = filters.FlateEncode(data)
	}
	return raw.NewStream(dict, data)
}

func round(v float64) float64 { return math.Round(v) }

package fonts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// keptTables are copied into subsets. Layout tables are dropped because
// glyph selection happens before embedding.
var keptTables = []string{"cmap", "cvt ", "fpgm", "name", "OS/2", "post", "prep"}

// Subset builds a GID-preserving subset of a TrueType font. Glyph 0, the
// requested glyphs, their composite components and their GSUB closure keep
// their outlines; every other glyph becomes empty. loca is rewritten in
// the long format and hmtx carries one full metric per glyph.
func Subset(data []byte, gids map[uint16]bool) ([]byte, error) {
	sf, err := readSFNT(data)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"head", "hhea", "maxp", "hmtx", "loca", "glyf"} {
		if !sf.has(tag) {
			return nil, fmt.Errorf("%w: missing %q table", ErrInvalidFont, tag)
		}
	}
	head := sf.table("head")
	maxp := sf.table("maxp")
	hhea := sf.table("hhea")
	if len(head) < 54 || len(maxp) < 6 || len(hhea) < 36 {
		return nil, fmt.Errorf("%w: truncated header tables", ErrInvalidFont)
	}
	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:6]))
	longLoca := int16(binary.BigEndian.Uint16(head[50:52])) == 1

	keep := map[uint16]bool{0: true}
	for gid := range gids {
		if int(gid) < numGlyphs {
			keep[gid] = true
		}
	}
	if sf.has("GSUB") {
		if err := closeOverGSUB(data, keep); err != nil {
			return nil, fmt.Errorf("gsub closure: %w", err)
		}
	}

	g := glyphTable{loca: sf.table("loca"), glyf: sf.table("glyf"), long: longLoca, numGlyphs: numGlyphs}
	g.closeOverComposites(keep)
	glyf, loca := g.rebuild(keep)

	hmtx, err := rebuildHmtx(sf.table("hmtx"), int(binary.BigEndian.Uint16(hhea[34:36])), numGlyphs)
	if err != nil {
		return nil, err
	}

	newHead := slices.Clone(head)
	binary.BigEndian.PutUint16(newHead[50:52], 1)
	newHhea := slices.Clone(hhea)
	binary.BigEndian.PutUint16(newHhea[34:36], uint16(numGlyphs))

	var w sfntWriter
	w.add("head", newHead)
	w.add("hhea", newHhea)
	w.add("maxp", maxp)
	w.add("hmtx", hmtx)
	w.add("loca", loca)
	w.add("glyf", glyf)
	for _, tag := range keptTables {
		if sf.has(tag) {
			w.add(tag, sf.table(tag))
		}
	}
	return w.bytes(), nil
}

// sfntFile is a parsed table directory.
type sfntFile struct {
	data   []byte
	tables map[string][]byte
}

func readSFNT(data []byte) (*sfntFile, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: header truncated", ErrInvalidFont)
	}
	if bytes.Equal(data[:4], []byte("OTTO")) {
		return nil, fmt.Errorf("%w: CFF outlines are not supported", ErrInvalidFont)
	}
	n := int(binary.BigEndian.Uint16(data[4:6]))
	sf := &sfntFile{data: data, tables: make(map[string][]byte, n)}
	for i := 0; i < n; i++ {
		rec := 12 + 16*i
		if rec+16 > len(data) {
			return nil, fmt.Errorf("%w: table directory truncated", ErrInvalidFont)
		}
		tag := string(data[rec : rec+4])
		off := binary.BigEndian.Uint32(data[rec+8:])
		length := binary.BigEndian.Uint32(data[rec+12:])
		if uint64(off)+uint64(length) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: table %q out of bounds", ErrInvalidFont, tag)
		}
		sf.tables[tag] = data[off : off+length]
	}
	return sf, nil
}

func (s *sfntFile) has(tag string) bool { _, ok := s.tables[tag]; return ok }

func (s *sfntFile) table(tag string) []byte { return s.tables[tag] }

type glyphTable struct {
	loca, glyf []byte
	long       bool
	numGlyphs  int
}

func (g glyphTable) bounds(gid int) (uint32, uint32, bool) {
	if gid+1 > g.numGlyphs {
		return 0, 0, false
	}
	var start, end uint32
	if g.long {
		if (gid+2)*4 > len(g.loca) {
			return 0, 0, false
		}
		start = binary.BigEndian.Uint32(g.loca[gid*4:])
		end = binary.BigEndian.Uint32(g.loca[gid*4+4:])
	} else {
		if (gid+2)*2 > len(g.loca) {
			return 0, 0, false
		}
		start = uint32(binary.BigEndian.Uint16(g.loca[gid*2:])) * 2
		end = uint32(binary.BigEndian.Uint16(g.loca[gid*2+2:])) * 2
	}
	if start >= end || end > uint32(len(g.glyf)) {
		return 0, 0, false
	}
	return start, end, true
}

// Composite glyph flags.
const (
	argsAreWords   = 0x0001
	haveScale      = 0x0008
	moreComponents = 0x0020
	haveXYScale    = 0x0040
	haveTwoByTwo   = 0x0080
)

// closeOverComposites adds the components of every kept composite glyph.
func (g glyphTable) closeOverComposites(keep map[uint16]bool) {
	queue := make([]uint16, 0, len(keep))
	for gid := range keep {
		queue = append(queue, gid)
	}
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		start, end, ok := g.bounds(int(gid))
		if !ok || end-start < 10 {
			continue
		}
		glyph := g.glyf[start:end]
		if int16(binary.BigEndian.Uint16(glyph)) >= 0 {
			continue
		}
		for off := 10; off+4 <= len(glyph); {
			flags := binary.BigEndian.Uint16(glyph[off:])
			component := binary.BigEndian.Uint16(glyph[off+2:])
			if int(component) < g.numGlyphs && !keep[component] {
				keep[component] = true
				queue = append(queue, component)
			}
			off += 4
			if flags&argsAreWords != 0 {
				off += 4
			} else {
				off += 2
			}
			switch {
			case flags&haveScale != 0:
				off += 2
			case flags&haveXYScale != 0:
				off += 4
			case flags&haveTwoByTwo != 0:
				off += 8
			}
			if flags&moreComponents == 0 {
				break
			}
		}
	}
}

// rebuild writes glyf with only kept outlines and a long-format loca.
func (g glyphTable) rebuild(keep map[uint16]bool) (glyf, loca []byte) {
	var out bytes.Buffer
	loca = make([]byte, 4*(g.numGlyphs+1))
	for gid := 0; gid < g.numGlyphs; gid++ {
		binary.BigEndian.PutUint32(loca[gid*4:], uint32(out.Len()))
		if !keep[uint16(gid)] {
			continue
		}
		if start, end, ok := g.bounds(gid); ok {
			out.Write(g.glyf[start:end])
			for out.Len()%4 != 0 {
				out.WriteByte(0)
			}
		}
	}
	binary.BigEndian.PutUint32(loca[g.numGlyphs*4:], uint32(out.Len()))
	return out.Bytes(), loca
}

// rebuildHmtx expands hmtx so every glyph has its own advance and lsb.
func rebuildHmtx(hmtx []byte, numHMetrics, numGlyphs int) ([]byte, error) {
	if numHMetrics == 0 || len(hmtx) < numHMetrics*4 {
		return nil, errors.New("hmtx shorter than numberOfHMetrics")
	}
	out := make([]byte, 4*numGlyphs)
	lastAdvance := hmtx[(numHMetrics-1)*4 : (numHMetrics-1)*4+2]
	for gid := 0; gid < numGlyphs; gid++ {
		dst := out[gid*4:]
		if gid < numHMetrics {
			copy(dst[:4], hmtx[gid*4:])
			continue
		}
		copy(dst[:2], lastAdvance)
		lsb := numHMetrics*4 + (gid-numHMetrics)*2
		if lsb+2 <= len(hmtx) {
			copy(dst[2:4], hmtx[lsb:])
		}
	}
	return out, nil
}

type sfntWriter struct {
	tags []string
	data map[string][]byte
}

func (w *sfntWriter) add(tag string, data []byte) {
	if w.data == nil {
		w.data = make(map[string][]byte)
	}
	if _, dup := w.data[tag]; !dup {
		w.tags = append(w.tags, tag)
	}
	w.data[tag] = data
}

// bytes assembles the font with tables in tag order and fixes up
// head.checkSumAdjustment.
func (w *sfntWriter) bytes() []byte {
	slices.Sort(w.tags)
	n := len(w.tags)
	selector := 0
	for 1<<(selector+1) <= n {
		selector++
	}
	searchRange := (1 << selector) * 16

	out := make([]byte, 12+16*n)
	binary.BigEndian.PutUint32(out[0:], 0x00010000)
	binary.BigEndian.PutUint16(out[4:], uint16(n))
	binary.BigEndian.PutUint16(out[6:], uint16(searchRange))
	binary.BigEndian.PutUint16(out[8:], uint16(selector))
	binary.BigEndian.PutUint16(out[10:], uint16(n*16-searchRange))

	headOffset := -1
	for i, tag := range w.tags {
		data := w.data[tag]
		offset := len(out)
		if tag == "head" {
			headOffset = offset
			data = slices.Clone(data)
			binary.BigEndian.PutUint32(data[8:], 0)
		}
		rec := out[12+16*i:]
		copy(rec, tag)
		binary.BigEndian.PutUint32(rec[4:], checksum(data))
		binary.BigEndian.PutUint32(rec[8:], uint32(offset))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(data)))
		out = append(out, data...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}
	if headOffset >= 0 {
		binary.BigEndian.PutUint32(out[headOffset+8:], 0xB1B0AFBA-checksum(out))
	}
	return out
}

func checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var word [4]byte
		copy(word[:], data[i:])
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}

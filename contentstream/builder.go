package contentstream

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/wudi/thaipdf/coords"
	"github.com/wudi/thaipdf/writer"
)

// Builder accumulates content stream operators. Numbers are written with
// at most four decimals.
type Builder struct {
	buf bytes.Buffer
}

func (b *Builder) op(operator string, operands ...string) *Builder {
	for _, o := range operands {
		b.buf.WriteString(o)
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(operator)
	b.buf.WriteByte('\n')
	return b
}

func num(f float64) string { return writer.FormatNumber(f) }

func (b *Builder) Save() *Builder    { return b.op("q") }
func (b *Builder) Restore() *Builder { return b.op("Q") }

func (b *Builder) Concat(m coords.Matrix) *Builder {
	return b.op("cm", num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]))
}

func (b *Builder) BeginText() *Builder { return b.op("BT") }
func (b *Builder) EndText() *Builder   { return b.op("ET") }

// FillRGB sets the non-stroking colour; components are in 0..1.
func (b *Builder) FillRGB(r, g, bl float64) *Builder {
	return b.op("rg", num(r), num(g), num(bl))
}

func (b *Builder) Font(resource string, size float64) *Builder {
	return b.op("Tf", writer.NameLiteral(resource), num(size))
}

// MoveText offsets the start of the next line, relative to the current
// line start.
func (b *Builder) MoveText(dx, dy float64) *Builder {
	return b.op("Td", num(dx), num(dy))
}

// ShowHex writes "<hex> Tj".
func (b *Builder) ShowHex(code []byte) *Builder {
	return b.op("Tj", "<"+strings.ToUpper(hex.EncodeToString(code))+">")
}

func (b *Builder) DrawXObject(resource string) *Builder {
	return b.op("Do", writer.NameLiteral(resource))
}

func (b *Builder) Len() int      { return b.buf.Len() }
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

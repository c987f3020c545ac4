package contentstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/thaipdf/coords"
	"github.com/wudi/thaipdf/ir/raw"
	"github.com/wudi/thaipdf/scanner"
)

// Operation is one operator with the operands that preceded it.
type Operation struct {
	Operator string
	Operands []raw.Object
}

// Parse splits a decoded content stream into operations. Inline image data
// (BI ... ID <bytes> EI) is skipped and reported as a single "BI"
// operation without operands.
func Parse(data []byte) ([]Operation, error) {
	s := scanner.NewBytes(data, scanner.Config{Content: true})
	tr := scanner.NewTokenReader(s)
	var ops []Operation
	var operands []raw.Object
	for {
		tok, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ops, err
		}
		if tok.Type != scanner.TokenKeyword {
			tr.Unread(tok)
			obj, err := scanner.ReadObject(tr)
			if err != nil {
				return ops, err
			}
			operands = append(operands, obj)
			continue
		}
		switch tok.Str {
		case "BI":
			end, err := skipInlineImage(data, s.Position())
			if err != nil {
				return ops, err
			}
			if err := tr.SeekTo(end); err != nil {
				return ops, err
			}
			ops = append(ops, Operation{Operator: "BI"})
			operands = nil
			continue
		case "]", ">>", "}", "{", ">":
			return ops, fmt.Errorf("offset %d: unexpected %q", tok.Pos, tok.Str)
		}
		ops = append(ops, Operation{Operator: tok.Str, Operands: operands})
		operands = nil
	}
	return ops, nil
}

// skipInlineImage returns the offset just after the EI that closes the
// inline image whose BI ends at from.
func skipInlineImage(data []byte, from int64) (int64, error) {
	id := bytes.Index(data[from:], []byte("ID"))
	if id < 0 {
		return 0, errors.New("inline image without ID")
	}
	pos := int(from) + id + 3
	for pos < len(data) {
		i := bytes.Index(data[pos:], []byte("EI"))
		if i < 0 {
			break
		}
		at := pos + i
		before := at == 0 || isSpace(data[at-1])
		after := at+2 == len(data) || isSpace(data[at+2])
		if before && after {
			return int64(at + 2), nil
		}
		pos = at + 2
	}
	return 0, errors.New("inline image without EI")
}

func isSpace(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

type OperatorHandler interface {
	Handle(ctx *ExecutionContext, operands []raw.Object) error
}

// HandlerFunc adapts a function to OperatorHandler.
type HandlerFunc func(ctx *ExecutionContext, operands []raw.Object) error

func (f HandlerFunc) Handle(ctx *ExecutionContext, operands []raw.Object) error { return f(ctx, operands) }

type ExecutionContext struct {
	GraphicsState *GraphicsState
}

type GraphicsState struct {
	CTM   coords.Matrix
	stack []coords.Matrix
}

func NewGraphicsState() *GraphicsState { return &GraphicsState{CTM: coords.Identity()} }

func (gs *GraphicsState) Save() { gs.stack = append(gs.stack, gs.CTM) }

func (gs *GraphicsState) Restore() error {
	n := len(gs.stack)
	if n == 0 {
		return errors.New("state stack empty")
	}
	gs.CTM = gs.stack[n-1]
	gs.stack = gs.stack[:n-1]
	return nil
}

// Depth is the number of saves not yet restored.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

type Processor struct {
	handlers map[string]OperatorHandler
}

// NewProcessor returns a processor that tracks q, Q and cm. Further
// operators can be observed through RegisterHandler.
func NewProcessor() *Processor {
	p := &Processor{handlers: make(map[string]OperatorHandler)}
	p.RegisterHandler("q", HandlerFunc(func(ec *ExecutionContext, _ []raw.Object) error {
		ec.GraphicsState.Save()
		return nil
	}))
	p.RegisterHandler("Q", HandlerFunc(func(ec *ExecutionContext, _ []raw.Object) error {
		return ec.GraphicsState.Restore()
	}))
	p.RegisterHandler("cm", HandlerFunc(func(ec *ExecutionContext, operands []raw.Object) error {
		if len(operands) != 6 {
			return fmt.Errorf("cm expects 6 operands, got %d", len(operands))
		}
		var m coords.Matrix
		for i, o := range operands {
			n, ok := o.(raw.NumberObj)
			if !ok {
				return errors.New("cm operand is not a number")
			}
			m[i] = n.Float()
		}
		ec.GraphicsState.CTM = m.Multiply(ec.GraphicsState.CTM)
		return nil
	}))
	return p
}

func (p *Processor) RegisterHandler(op string, h OperatorHandler) { p.handlers[op] = h }

// Process runs every handled operator of stream against state.
func (p *Processor) Process(ctx context.Context, stream []byte, state *GraphicsState) error {
	ops, err := Parse(stream)
	if err != nil {
		return err
	}
	ec := &ExecutionContext{GraphicsState: state}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		h, ok := p.handlers[op.Operator]
		if !ok {
			continue
		}
		if err := h.Handle(ec, op.Operands); err != nil {
			return fmt.Errorf("%s: %w", op.Operator, err)
		}
	}
	return nil
}

// UnbalancedSaves reports how many q operators in stream are never
// matched by Q. Extra Q operators are ignored.
func UnbalancedSaves(ctx context.Context, stream []byte) (int, error) {
	p := NewProcessor()
	p.RegisterHandler("Q", HandlerFunc(func(ec *ExecutionContext, _ []raw.Object) error {
		_ = ec.GraphicsState.Restore()
		return nil
	}))
	state := NewGraphicsState()
	if err := p.Process(ctx, stream, state); err != nil {
		return 0, err
	}
	return state.Depth(), nil
}

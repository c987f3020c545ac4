package scanner

import (
	"errors"
	"fmt"
	"io"

	"github.com/wudi/thaipdf/ir/raw"
)

// TokenReader wraps a Scanner with a small pushback buffer.
type TokenReader struct {
	s   Scanner
	buf []Token
}

func NewTokenReader(s Scanner) *TokenReader { return &TokenReader{s: s} }

func (tr *TokenReader) Next() (Token, error) {
	if n := len(tr.buf); n > 0 {
		tok := tr.buf[n-1]
		tr.buf = tr.buf[:n-1]
		return tok, nil
	}
	return tr.s.Next()
}

func (tr *TokenReader) Unread(tok Token) { tr.buf = append(tr.buf, tok) }

func (tr *TokenReader) Scanner() Scanner { return tr.s }

// SeekTo drops any pushed back tokens and repositions the scanner.
func (tr *TokenReader) SeekTo(offset int64) error {
	tr.buf = tr.buf[:0]
	return tr.s.SeekTo(offset)
}

// ErrUnexpectedEndobj is returned when 'endobj' appears where a value was
// expected, typically because a dictionary was never closed.
var ErrUnexpectedEndobj = errors.New("unexpected endobj")

// ReadObject reads one complete direct object.
func ReadObject(tr *TokenReader) (raw.Object, error) {
	tok, err := tr.Next()
	if err != nil {
		return nil, err
	}
	return objectFrom(tr, tok)
}

func objectFrom(tr *TokenReader, tok Token) (raw.Object, error) {
	switch tok.Type {
	case TokenName:
		return raw.NameLiteral(tok.Str), nil
	case TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int), nil
		}
		return raw.NumberFloat(tok.Float), nil
	case TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case TokenNull:
		return raw.NullObj{}, nil
	case TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case TokenRef:
		return raw.Ref(raw.ObjectRef{Num: int(tok.Int), Gen: tok.Gen}), nil
	case TokenArray:
		return readArray(tr)
	case TokenDict:
		return readDict(tr)
	case TokenKeyword:
		if tok.Str == "endobj" {
			tr.Unread(tok)
			return nil, ErrUnexpectedEndobj
		}
		return nil, fmt.Errorf("offset %d: unexpected keyword %q", tok.Pos, tok.Str)
	}
	return nil, fmt.Errorf("offset %d: unexpected %s token", tok.Pos, tok.Type)
}

func readArray(tr *TokenReader) (raw.Object, error) {
	arr := raw.NewArray()
	for {
		tok, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && tok.Str == "]" {
			return arr, nil
		}
		obj, err := objectFrom(tr, tok)
		if err != nil {
			return nil, err
		}
		arr.Append(obj)
	}
}

func readDict(tr *TokenReader) (raw.Object, error) {
	dict := raw.Dict()
	for {
		tok, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && tok.Str == ">>" {
			return dict, nil
		}
		if tok.Type == TokenKeyword && tok.Str == "endobj" {
			tr.Unread(tok)
			return dict, ErrUnexpectedEndobj
		}
		if tok.Type != TokenName {
			return nil, fmt.Errorf("offset %d: dictionary key must be a name, got %s", tok.Pos, tok.Type)
		}
		val, err := ReadObject(tr)
		if err != nil {
			if errors.Is(err, ErrUnexpectedEndobj) {
				return dict, err
			}
			return nil, err
		}
		// A null value is equivalent to the key being absent.
		if _, isNull := val.(raw.NullObj); isNull {
			continue
		}
		dict.Set(tok.Str, val)
	}
}

// LengthResolver resolves a stream /Length that is an indirect reference.
type LengthResolver func(ref raw.ObjectRef) (int64, bool)

// Indirect is an object read with its "N G obj" header.
type Indirect struct {
	Ref    raw.ObjectRef
	Object raw.Object
	// Unterminated is set when the body ran into endobj before its
	// dictionary was closed. The partial dictionary is returned.
	Unterminated bool
}

// ReadIndirect reads "N G obj <object> [stream ... endstream] endobj" from
// the current position.
func ReadIndirect(tr *TokenReader, lengths LengthResolver) (Indirect, error) {
	var out Indirect
	numTok, err := tr.Next()
	if err != nil {
		return out, err
	}
	genTok, err := tr.Next()
	if err != nil {
		return out, err
	}
	objTok, err := tr.Next()
	if err != nil {
		return out, err
	}
	if numTok.Type != TokenNumber || !numTok.IsInt || genTok.Type != TokenNumber || !genTok.IsInt ||
		objTok.Type != TokenKeyword || objTok.Str != "obj" {
		return out, fmt.Errorf("offset %d: expected object header", numTok.Pos)
	}
	out.Ref = raw.ObjectRef{Num: int(numTok.Int), Gen: int(genTok.Int)}

	first, err := tr.Next()
	if err != nil {
		return out, err
	}
	if first.Type == TokenKeyword && first.Str == "endobj" {
		out.Object = raw.NullObj{}
		return out, nil
	}
	if first.Type == TokenDict {
		obj, err := readDict(tr)
		if errors.Is(err, ErrUnexpectedEndobj) {
			out.Unterminated = true
			out.Object = obj
			_, _ = tr.Next()
			return out, nil
		}
		if err != nil {
			return out, err
		}
		dict := obj.(*raw.DictObj)
		if hint, ok := streamLength(dict, lengths); ok {
			tr.Scanner().SetNextStreamLength(hint)
		}
		next, err := tr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				out.Object = dict
				return out, nil
			}
			return out, err
		}
		if next.Type == TokenStream {
			out.Object = raw.NewStream(dict, next.Bytes)
			next, err = tr.Next()
			if err != nil && !errors.Is(err, io.EOF) {
				return out, err
			}
		} else {
			tr.Scanner().SetNextStreamLength(-1)
			out.Object = dict
		}
		if err == nil && !(next.Type == TokenKeyword && next.Str == "endobj") {
			tr.Unread(next)
		}
		return out, nil
	}

	obj, err := objectFrom(tr, first)
	if err != nil {
		return out, err
	}
	out.Object = obj
	next, err := tr.Next()
	if err == nil && !(next.Type == TokenKeyword && next.Str == "endobj") {
		tr.Unread(next)
	}
	return out, nil
}

func streamLength(dict *raw.DictObj, lengths LengthResolver) (int64, bool) {
	v, ok := dict.Get("Length")
	if !ok {
		return 0, false
	}
	switch l := v.(type) {
	case raw.NumberObj:
		if n := l.Int(); n >= 0 {
			return n, true
		}
	case raw.RefObj:
		if lengths != nil {
			if n, ok := lengths(l.R); ok && n >= 0 {
				return n, true
			}
		}
	}
	return 0, false
}

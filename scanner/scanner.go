package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wudi/thaipdf/recovery"
)

type TokenType int

const (
	TokenDict    TokenType = iota // '<<'
	TokenArray                    // '['
	TokenName                     // '/Name'
	TokenString                   // literal or hex string
	TokenNumber                   // numeric value
	TokenBoolean                  // true/false
	TokenNull                     // null
	TokenRef                      // indirect ref '5 0 R'
	TokenStream                   // 'stream' keyword with its payload
	TokenKeyword                  // other keywords (obj, endobj, >>, ], operators)
)

func (t TokenType) String() string {
	switch t {
	case TokenDict:
		return "dict"
	case TokenArray:
		return "array"
	case TokenName:
		return "name"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenBoolean:
		return "boolean"
	case TokenNull:
		return "null"
	case TokenRef:
		return "ref"
	case TokenStream:
		return "stream"
	case TokenKeyword:
		return "keyword"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical element. Only the fields matching Type are set.
type Token struct {
	Type  TokenType
	Str   string  // name, keyword
	Bytes []byte  // string, stream payload
	Int   int64   // integer number, ref object number
	Float float64 // real number
	IsInt bool
	Bool  bool
	Gen   int   // ref generation
	Hex   bool  // string was written in hex form
	Pos   int64 // byte offset of the token start
}

// Number returns the numeric value of a number token.
func (t Token) Number() float64 {
	if t.IsInt {
		return float64(t.Int)
	}
	return t.Float
}

type Scanner interface {
	Next() (Token, error)
	Position() int64
	SeekTo(offset int64) error
	SetNextStreamLength(n int64)
}

type Config struct {
	MaxStringLength int64
	MaxNestingDepth int
	MaxStreamLength int64
	WindowSize      int64
	Recovery        recovery.Strategy
	// Content disables reference detection ("1 0 R"), which is not
	// valid inside content streams where R is never an operator anyway
	// but numbers are frequently followed by other numbers.
	Content bool
}

// pdfScanner incrementally buffers PDF data from a ReaderAt in fixed-size windows.
type pdfScanner struct {
	reader        io.ReaderAt
	data          []byte
	pos           int64
	cfg           Config
	nextStreamLen int64
	chunkSize     int64
	eof           bool
	depth         int
}

// New returns a scanner reading from r.
func New(r io.ReaderAt, cfg Config) Scanner {
	chunk := cfg.WindowSize
	if chunk <= 0 {
		chunk = 64 * 1024
	}
	return &pdfScanner{reader: r, cfg: cfg, nextStreamLen: -1, chunkSize: chunk}
}

// NewBytes returns a scanner over an in-memory buffer.
func NewBytes(data []byte, cfg Config) Scanner {
	return &pdfScanner{data: data, eof: true, cfg: cfg, nextStreamLen: -1, chunkSize: 1}
}

func (s *pdfScanner) Position() int64 { return s.pos }

func (s *pdfScanner) SeekTo(offset int64) error {
	if offset < 0 {
		return errors.New("seek out of range")
	}
	if err := s.ensure(offset); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if offset > int64(len(s.data)) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	s.depth = 0
	return nil
}

func (s *pdfScanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func (s *pdfScanner) Next() (Token, error) {
	if err := s.skipWSAndComments(); err != nil {
		return Token{}, err
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' {
			s.pos += 2
			return s.emit(Token{Type: TokenDict, Str: "<<", Pos: start})
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return s.emit(Token{Type: TokenKeyword, Str: ">>", Pos: start})
		}
		s.pos++
		return Token{Type: TokenKeyword, Str: ">", Pos: start}, nil
	case '[':
		s.pos++
		return s.emit(Token{Type: TokenArray, Str: "[", Pos: start})
	case ']':
		s.pos++
		return s.emit(Token{Type: TokenKeyword, Str: "]", Pos: start})
	case '{', '}':
		s.pos++
		return Token{Type: TokenKeyword, Str: string(c), Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isNumberStart(c) {
		return s.scanNumberOrRef()
	}
	return s.scanKeyword()
}

func (s *pdfScanner) skipWSAndComments() error {
	for {
		if err := s.ensure(s.pos); err != nil {
			return err
		}
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for {
				s.pos++
				if err := s.ensure(s.pos); err != nil {
					return err
				}
				if isEOL(s.data[s.pos]) {
					break
				}
			}
			continue
		}
		return nil
	}
}

// ensure makes s.data[n] addressable, or returns io.EOF.
func (s *pdfScanner) ensure(n int64) error {
	for int64(len(s.data)) <= n {
		if s.eof {
			return io.EOF
		}
		if err := s.loadMore(); err != nil {
			return err
		}
	}
	return nil
}

func (s *pdfScanner) loadMore() error {
	buf := make([]byte, s.chunkSize)
	n, err := s.reader.ReadAt(buf, int64(len(s.data)))
	if n > 0 {
		s.data = append(s.data, buf[:n]...)
	}
	if err == io.EOF || (err == nil && n == 0) {
		s.eof = true
		return nil
	}
	return err
}

// byteAt returns the byte at off and whether it exists.
func (s *pdfScanner) byteAt(off int64) (byte, bool) {
	if s.ensure(off) != nil {
		return 0, false
	}
	return s.data[off], true
}

func (s *pdfScanner) peekAhead(n int64) byte {
	c, _ := s.byteAt(s.pos + n)
	return c
}

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++
	var out bytes.Buffer
	for {
		c, ok := s.byteAt(s.pos)
		if !ok || isDelimiter(c) {
			break
		}
		if c == '#' {
			h1, ok1 := s.byteAt(s.pos + 1)
			h2, ok2 := s.byteAt(s.pos + 2)
			if ok1 && ok2 && isHex(h1) && isHex(h2) {
				out.WriteByte(fromHex(h1)<<4 | fromHex(h2))
				s.pos += 3
				continue
			}
		}
		out.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Str: out.String(), Pos: start}, nil
}

func (s *pdfScanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++
	var buf bytes.Buffer
	depth := 1
	for depth > 0 {
		c, ok := s.byteAt(s.pos)
		if !ok {
			break
		}
		s.pos++
		switch c {
		case '\\':
			esc, ok := s.byteAt(s.pos)
			if !ok {
				break
			}
			s.pos++
			switch {
			case esc == '\r':
				if n, ok := s.byteAt(s.pos); ok && n == '\n' {
					s.pos++
				}
			case esc == '\n':
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				for k := 0; k < 2; k++ {
					d, ok := s.byteAt(s.pos)
					if !ok || d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
			}
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(c)
			}
		default:
			buf.WriteByte(c)
		}
		if s.cfg.MaxStringLength > 0 && int64(buf.Len()) > s.cfg.MaxStringLength {
			return Token{}, s.fail(errors.New("literal string too long"), "literal")
		}
	}
	if depth != 0 {
		if err := s.recover(errors.New("unterminated literal string"), "literal"); err != nil {
			return Token{}, err
		}
	}
	return Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start}, nil
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++
	var nibbles []byte
	closed := false
	for {
		c, ok := s.byteAt(s.pos)
		if !ok {
			break
		}
		s.pos++
		if c == '>' {
			closed = true
			break
		}
		if isWhitespace(c) {
			continue
		}
		if !isHex(c) {
			if err := s.recover(fmt.Errorf("invalid hex digit %q", c), "hex"); err != nil {
				return Token{}, err
			}
			continue
		}
		nibbles = append(nibbles, c)
	}
	if !closed {
		if err := s.recover(errors.New("unterminated hex string"), "hex"); err != nil {
			return Token{}, err
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, '0')
	}
	if s.cfg.MaxStringLength > 0 && int64(len(nibbles)/2) > s.cfg.MaxStringLength {
		return Token{}, s.fail(errors.New("hex string too long"), "hex")
	}
	out := make([]byte, len(nibbles)/2)
	for i := range out {
		out[i] = fromHex(nibbles[2*i])<<4 | fromHex(nibbles[2*i+1])
	}
	return Token{Type: TokenString, Bytes: out, Hex: true, Pos: start}, nil
}

// scanStream reads the payload following a 'stream' keyword, using the
// length hint when one was set and searching for 'endstream' otherwise.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	hint := s.nextStreamLen
	s.nextStreamLen = -1

	// 7.3.8: the keyword is followed by CRLF or LF. A lone CR is tolerated.
	c, ok := s.byteAt(s.pos)
	if !ok {
		return Token{}, s.fail(errors.New("stream missing data"), "stream")
	}
	switch c {
	case '\r':
		s.pos++
		if n, ok := s.byteAt(s.pos); ok && n == '\n' {
			s.pos++
		}
	case '\n':
		s.pos++
	default:
		if err := s.recover(errors.New("stream keyword not followed by EOL"), "stream"); err != nil {
			return Token{}, err
		}
	}
	dataStart := s.pos
	needle := []byte("endstream")

	if hint >= 0 {
		if s.cfg.MaxStreamLength > 0 && hint > s.cfg.MaxStreamLength {
			return Token{}, s.fail(errors.New("stream too long"), "stream")
		}
		end := dataStart + hint
		if err := s.ensure(end + int64(len(needle)) + 2); err != nil && !errors.Is(err, io.EOF) {
			return Token{}, err
		}
		if s.hasEndstreamNear(end) {
			payload := append([]byte(nil), s.data[dataStart:end]...)
			s.skipEndstream(end)
			return Token{Type: TokenStream, Bytes: payload, Pos: start}, nil
		}
		if err := s.recover(errors.New("stream /Length does not match endstream position"), "stream"); err != nil {
			return Token{}, err
		}
	}

	for {
		if err := s.ensure(int64(len(s.data))); err != nil && !errors.Is(err, io.EOF) {
			return Token{}, err
		}
		if s.eof {
			break
		}
	}
	rel := bytes.Index(s.data[dataStart:], needle)
	if rel < 0 {
		if err := s.recover(errors.New("endstream not found"), "stream"); err != nil {
			return Token{}, err
		}
		payload := append([]byte(nil), s.data[dataStart:]...)
		s.pos = int64(len(s.data))
		return Token{Type: TokenStream, Bytes: payload, Pos: start}, nil
	}
	idx := dataStart + int64(rel)
	end := idx
	if end > dataStart && s.data[end-1] == '\n' {
		end--
	}
	if end > dataStart && s.data[end-1] == '\r' {
		end--
	}
	if s.cfg.MaxStreamLength > 0 && end-dataStart > s.cfg.MaxStreamLength {
		return Token{}, s.fail(errors.New("stream too long"), "stream")
	}
	payload := append([]byte(nil), s.data[dataStart:end]...)
	s.pos = idx + int64(len(needle))
	return Token{Type: TokenStream, Bytes: payload, Pos: start}, nil
}

// hasEndstreamNear reports whether 'endstream' follows off after optional
// whitespace.
func (s *pdfScanner) hasEndstreamNear(off int64) bool {
	if off > int64(len(s.data)) {
		return false
	}
	rest := s.data[off:]
	rest = bytes.TrimLeft(rest, "\x00\t\n\f\r ")
	return bytes.HasPrefix(rest, []byte("endstream"))
}

func (s *pdfScanner) skipEndstream(off int64) {
	for off < int64(len(s.data)) && isWhitespace(s.data[off]) {
		off++
	}
	s.pos = off + int64(len("endstream"))
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	var buf bytes.Buffer
	for {
		c, ok := s.byteAt(s.pos)
		if !ok || (isDelimiter(c) && buf.Len() > 0) {
			break
		}
		buf.WriteByte(c)
		s.pos++
		if isDelimiter(c) {
			break
		}
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Bool: kw == "true", Str: kw, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Str: kw, Pos: start}, nil
	case "stream":
		if s.cfg.Content {
			return Token{Type: TokenKeyword, Str: kw, Pos: start}, nil
		}
		return s.scanStream(start)
	}
	return Token{Type: TokenKeyword, Str: kw, Pos: start}, nil
}

func (s *pdfScanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	first := s.scanNumberString()
	if first == "" {
		s.pos++
		return Token{Type: TokenKeyword, Str: string(s.data[start]), Pos: start}, nil
	}
	tok := numberToken(first, start)
	if s.cfg.Content || !tok.IsInt || tok.Int < 0 {
		return tok, nil
	}

	// "<num> <gen> R" is a reference; anything else rewinds to just after
	// the first number.
	after := s.pos
	if s.skipWSAndComments() == nil {
		if second := s.scanNumberString(); second != "" {
			gen, err := strconv.Atoi(second)
			if err == nil && gen >= 0 && s.skipWSAndComments() == nil && s.data[s.pos] == 'R' {
				next, ok := s.byteAt(s.pos + 1)
				if !ok || isDelimiter(next) {
					s.pos++
					return Token{Type: TokenRef, Int: tok.Int, Gen: gen, IsInt: true, Pos: start}, nil
				}
			}
		}
	}
	s.pos = after
	return tok, nil
}

func numberToken(text string, pos int64) Token {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Token{Type: TokenNumber, Int: i, IsInt: true, Str: text, Pos: pos}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		// Malformed reals such as "1.2.3" or "--5" read as zero, the way
		// most readers treat them.
		f = 0
	}
	return Token{Type: TokenNumber, Float: f, Str: text, Pos: pos}
}

func (s *pdfScanner) scanNumberString() string {
	start := s.pos
	var buf bytes.Buffer
	seenDigit := false
	for {
		c, ok := s.byteAt(s.pos)
		if !ok {
			break
		}
		if c == '+' || c == '-' {
			if buf.Len() > 0 {
				break
			}
		} else if c != '.' && (c < '0' || c > '9') {
			break
		}
		if c >= '0' && c <= '9' {
			seenDigit = true
		}
		buf.WriteByte(c)
		s.pos++
	}
	if !seenDigit {
		s.pos = start
		return ""
	}
	return buf.String()
}

func (s *pdfScanner) emit(tok Token) (Token, error) {
	switch {
	case tok.Type == TokenArray || tok.Type == TokenDict:
		s.depth++
		if s.cfg.MaxNestingDepth > 0 && s.depth > s.cfg.MaxNestingDepth {
			return Token{}, s.fail(errors.New("nesting depth exceeded"), "nesting")
		}
	case tok.Type == TokenKeyword && (tok.Str == "]" || tok.Str == ">>"):
		if s.depth > 0 {
			s.depth--
		}
	}
	return tok, nil
}

// recover consults the recovery strategy and returns nil when scanning may
// continue past the problem. Without a strategy every problem is fatal.
func (s *pdfScanner) recover(err error, component string) error {
	if s.cfg.Recovery == nil {
		return fmt.Errorf("offset %d: %w", s.pos, err)
	}
	action := s.cfg.Recovery.OnError(context.Background(), err, recovery.Location{
		ByteOffset: s.pos,
		Component:  "scanner:" + component,
	})
	if action.Continue() {
		return nil
	}
	return fmt.Errorf("offset %d: %w", s.pos, err)
}

// fail reports a problem that cannot be skipped, such as a limit breach.
func (s *pdfScanner) fail(err error, component string) error {
	if s.cfg.Recovery != nil {
		s.cfg.Recovery.OnError(context.Background(), err, recovery.Location{ByteOffset: s.pos, Component: "scanner:" + component})
	}
	return fmt.Errorf("offset %d: %w", s.pos, err)
}

func isNumberStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isEOL(c byte) bool { return c == '\r' || c == '\n' }

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return isWhitespace(c)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	}
	return c
}

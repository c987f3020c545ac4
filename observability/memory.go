package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Entry is one record captured by a MemoryLogger.
type Entry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// MemoryLogger keeps log records in memory. It is meant for tests and for
// hosts that want to inspect what happened during a render.
type MemoryLogger struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []Field
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (l *MemoryLogger) Debug(msg string, fields ...Field) { l.add("debug", msg, fields) }
func (l *MemoryLogger) Info(msg string, fields ...Field)  { l.add("info", msg, fields) }
func (l *MemoryLogger) Warn(msg string, fields ...Field)  { l.add("warn", msg, fields) }
func (l *MemoryLogger) Error(msg string, fields ...Field) { l.add("error", msg, fields) }

func (l *MemoryLogger) With(fields ...Field) Logger {
	return &MemoryLogger{mu: l.mu, entries: l.entries, fields: append(append([]Field(nil), l.fields...), fields...)}
}

func (l *MemoryLogger) add(level, msg string, fields []Field) {
	e := Entry{Level: level, Message: msg, Fields: make(map[string]interface{}, len(l.fields)+len(fields))}
	for _, f := range l.fields {
		e.Fields[f.Key()] = f.Value()
	}
	for _, f := range fields {
		e.Fields[f.Key()] = f.Value()
	}
	l.mu.Lock()
	*l.entries = append(*l.entries, e)
	l.mu.Unlock()
}

// Entries returns a copy of the captured records.
func (l *MemoryLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), (*l.entries)...)
}

// WriterLogger writes one line per record: "level msg key=value ...".
type WriterLogger struct {
	mu     *sync.Mutex
	w      io.Writer
	min    int
	fields []Field
}

var levels = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// NewWriterLogger logs records at minLevel ("debug", "info", "warn" or
// "error") and above to w.
func NewWriterLogger(w io.Writer, minLevel string) *WriterLogger {
	return &WriterLogger{mu: &sync.Mutex{}, w: w, min: levels[minLevel]}
}

func (l *WriterLogger) Debug(msg string, fields ...Field) { l.write("debug", msg, fields) }
func (l *WriterLogger) Info(msg string, fields ...Field)  { l.write("info", msg, fields) }
func (l *WriterLogger) Warn(msg string, fields ...Field)  { l.write("warn", msg, fields) }
func (l *WriterLogger) Error(msg string, fields ...Field) { l.write("error", msg, fields) }

func (l *WriterLogger) With(fields ...Field) Logger {
	return &WriterLogger{mu: l.mu, w: l.w, min: l.min, fields: append(append([]Field(nil), l.fields...), fields...)}
}

func (l *WriterLogger) write(level, msg string, fields []Field) {
	if levels[level] < l.min {
		return
	}
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range append(append([]Field(nil), l.fields...), fields...) {
		fmt.Fprintf(&b, " %s=%v", f.Key(), f.Value())
	}
	b.WriteByte('\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.w, b.String())
}

// Package logger writes one JSON object per line for the HTTP edge and the
// media store. Each line is flat: ts, level, msg, optional caller, then the
// fields in the order they were attached.
package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"debug", "info", "warn", "error"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel reads LOG_LEVEL values. Unknown input means info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is one key/value pair on a line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Err renders err as its message; nil errors are omitted from the line.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Request fields.
func RequestID(id string) Field     { return String("request_id", id) }
func Method(m string) Field         { return String("method", m) }
func Path(p string) Field           { return String("path", p) }
func StatusCode(code int) Field     { return Int("status", code) }
func RemoteAddr(addr string) Field  { return String("remote_addr", addr) }
func Component(name string) Field   { return String("component", name) }
func ObjectKey(key string) Field    { return String("object_key", key) }
func Latency(d time.Duration) Field { return Field{Key: "latency_ms", Value: float64(d.Microseconds()) / 1000} }

// Ledger fields.
func UserID(id string) Field       { return String("user_id", id) }
func ActionKind(kind string) Field { return String("action_kind", kind) }
func XPAmount(xp int) Field        { return Int("xp_amount", xp) }

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// Options configures New.
type Options struct {
	Output    io.Writer
	Level     Level
	AddCaller bool
}

// Logger is safe for concurrent use. Loggers derived with With share the
// parent's writer and lock.
type Logger struct {
	out       *syncWriter
	level     Level
	addCaller bool
	fields    []Field
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(p)
}

// New creates a Logger. A nil Output means stdout.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		out:       &syncWriter{w: opts.Output},
		level:     opts.Level,
		addCaller: opts.AddCaller,
	}
}

// Default logs info and above to stdout.
func Default() *Logger {
	return New(Options{Level: LevelInfo})
}

// With returns a child logger that always writes fields.
func (l *Logger) With(fields ...Field) *Logger {
	child := *l
	child.fields = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

func (l *Logger) write(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	writePair(&buf, "ts", time.Now().UTC().Format(time.RFC3339Nano), true)
	writePair(&buf, "level", level.String(), false)
	writePair(&buf, "msg", msg, false)
	if l.addCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			writePair(&buf, "caller", fmt.Sprintf("%s:%d", file[strings.LastIndex(file, "/")+1:], line), false)
		}
	}
	for _, set := range [][]Field{l.fields, fields} {
		for _, f := range set {
			if f.Value == nil {
				continue
			}
			writePair(&buf, f.Key, f.Value, false)
		}
	}
	buf.WriteString("}\n")
	l.out.write(buf.Bytes())
}

func writePair(buf *bytes.Buffer, key string, value any, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
	v, err := json.Marshal(value)
	if err != nil {
		v, _ = json.Marshal(fmt.Sprint(value))
	}
	buf.Write(v)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or Default when none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

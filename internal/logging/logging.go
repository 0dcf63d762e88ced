// Package logging writes one JSON object per line, stamped with "ts" and "level".
package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger emits JSON lines to a writer. It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	enc *json.Encoder
	loc *time.Location
}

// New returns a Logger writing to w with timestamps rendered in loc.
// A nil loc means UTC.
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{enc: json.NewEncoder(w), loc: loc}
}

// Default logs to stdout in UTC.
func Default() *Logger {
	return New(os.Stdout, time.UTC)
}

// Discard drops every entry. Useful in tests.
func Discard() *Logger {
	return New(io.Discard, time.UTC)
}

// LoadLocation resolves name, falling back to UTC when it is unknown.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Location returns the timezone used for "ts".
func (l *Logger) Location() *time.Location {
	return l.loc
}

// Info logs msg at info level with the given fields.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.write("info", msg, fields)
}

// Error logs msg at error level with the given fields.
func (l *Logger) Error(msg string, fields map[string]any) {
	l.write("error", msg, fields)
}

// Log writes data as-is after adding "ts" and, if missing, "level".
// The level defaults to "error" when data["status"] is "error".
func (l *Logger) Log(data map[string]any) {
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}
	l.encode(data)
}

func (l *Logger) write(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["level"] = level
	if msg != "" {
		entry["msg"] = msg
	}
	l.encode(entry)
}

func (l *Logger) encode(entry map[string]any) {
	entry["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(entry)
}

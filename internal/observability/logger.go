package observability

import (
	"encoding/json"
	"io"
	"log"
	"maps"
	"os"
	"strings"
	"time"
)

const redacted = "[REDACTED]"

// Field names whose values never reach the log output.
var sensitiveFields = map[string]struct{}{
	"password":      {},
	"token":         {},
	"authorization": {},
	"jwt-token":     {},
	"secret":        {},
}

// Logger writes one JSON object per line. Fields bound with With are added
// to every entry; call site fields win over bound ones.
type Logger struct {
	base  *log.Logger
	bound map[string]any
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{base: log.New(w, "", 0)}
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}

	bound := make(map[string]any, len(l.bound)+len(fields))
	maps.Copy(bound, l.bound)
	maps.Copy(bound, fields)
	return &Logger{base: l.base, bound: bound}
}

func (l *Logger) Info(event string, fields map[string]any) {
	l.write("info", event, fields)
}

func (l *Logger) Warn(event string, fields map[string]any) {
	l.write("warn", event, fields)
}

func (l *Logger) Error(event string, fields map[string]any) {
	l.write("error", event, fields)
}

func (l *Logger) write(level, event string, fields map[string]any) {
	if l == nil {
		return
	}

	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"message":   event,
	}
	for _, source := range []map[string]any{l.bound, fields} {
		for key, value := range source {
			if key == "timestamp" || key == "level" || key == "message" {
				continue
			}
			if _, secret := sensitiveFields[strings.ToLower(key)]; secret {
				value = redacted
			}
			entry[key] = value
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		l.base.Printf(`{"level":"error","message":"log_encode_failed","event":%q}`, event)
		return
	}
	l.base.Print(string(line))
}

// Package logger defines the structured logging interface used across the
// token broker. The production implementation lives in
// internal/infrastructure/monitoring and is backed by zap; this package
// carries only the contract and the field helpers so domain code never
// imports a logging library directly.
package logger

import (
	"strings"
	"time"
)

// Logger is the structured, context-aware logging contract.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)

	// WithComponent returns a child logger tagged with a component name.
	WithComponent(component string) Logger

	// WithFields returns a child logger carrying the given base fields.
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates an RFC3339 time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field of any type.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// sensitiveKeys are substrings of field keys whose values must never be
// logged in the clear, regardless of which call site produced them.
var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"private_key",
	"credential",
}

// Sanitize masks the value of sensitive fields. Implementations apply it to
// every field before encoding.
func Sanitize(f Field) Field {
	keyLower := strings.ToLower(f.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(keyLower, s) {
			if str, ok := f.Value.(string); ok && len(str) > 0 {
				return Field{Key: f.Key, Value: maskString(str)}
			}
			return Field{Key: f.Key, Value: "***REDACTED***"}
		}
	}
	return f
}

// maskString keeps the first and last four characters of long values so
// operators can correlate secrets without exposing them.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

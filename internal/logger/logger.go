package logger

import (
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Redacted replaces the value of a secret field outside development.
const Redacted = "[REDACTED]"

// secretFields are dropped from log output outside development. Keys are
// matched case-insensitively.
var secretFields = map[string]bool{
	"otp":            true,
	"otp_code":       true,
	"token":          true,
	"payment_token":  true,
	"secret":         true,
	"webhook_secret": true,
	"token_secret":   true,
	"password":       true,
	"authorization":  true,
}

// maskedFields keep their last four characters so support staff can still
// match a citizen's record.
var maskedFields = map[string]bool{
	"phone": true,
}

// Logger wraps zerolog.Logger and provides structured logging capabilities.
// Outside development it scrubs secret and personal fields before writing.
type Logger struct {
	zlog   zerolog.Logger
	redact bool
}

// New creates a new Logger writing to stdout for the given environment.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a Logger writing to w. Development gets colored
// console output at debug level with values shown as is; every other
// environment gets JSON at info level with redaction on.
func NewWithWriter(env string, w io.Writer) *Logger {
	development := env == "development"

	output := w
	level := zerolog.InfoLevel
	if development {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zlog: zlog, redact: !development}
}

// Debug logs a debug message with optional fields.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.write(l.zlog.Debug(), msg, fields)
}

// Info logs an info message with optional fields.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.write(l.zlog.Info(), msg, fields)
}

// Warn logs a warning message with optional fields.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.write(l.zlog.Warn(), msg, fields)
}

// Error logs an error message with an error and optional fields.
func (l *Logger) Error(msg string, err error, fields map[string]interface{}) {
	l.write(l.zlog.Error().Err(err), msg, fields)
}

// Fatal logs a fatal message and exits the application.
func (l *Logger) Fatal(msg string, err error, fields map[string]interface{}) {
	l.write(l.zlog.Fatal().Err(err), msg, fields)
}

func (l *Logger) write(event *zerolog.Event, msg string, fields map[string]interface{}) {
	for key, value := range fields {
		event = event.Interface(key, l.scrub(key, value))
	}
	event.Msg(msg)
}

// With creates a child logger with additional context fields. The fields
// are scrubbed the same way as per-call fields.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for key, value := range fields {
		ctx = ctx.Interface(key, l.scrub(key, value))
	}
	return &Logger{zlog: ctx.Logger(), redact: l.redact}
}

// WithRequestID creates a child logger with a request ID field.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		zlog:   l.zlog.With().Str("request_id", requestID).Logger(),
		redact: l.redact,
	}
}

// Redacts reports whether this logger scrubs sensitive fields.
func (l *Logger) Redacts() bool {
	return l.redact
}

// ScrubQuery returns a raw query string with the values of sensitive
// parameters replaced. Unparseable queries are dropped entirely when
// redaction is on.
func (l *Logger) ScrubQuery(raw string) string {
	if !l.redact || raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Redacted
	}
	for key := range values {
		if secretFields[strings.ToLower(key)] {
			values[key] = []string{Redacted}
		}
	}
	return values.Encode()
}

func (l *Logger) scrub(key string, value interface{}) interface{} {
	if !l.redact {
		return value
	}
	k := strings.ToLower(key)
	switch {
	case secretFields[k]:
		return Redacted
	case maskedFields[k]:
		if s, ok := value.(string); ok {
			return maskTail(s, 4)
		}
		return Redacted
	}
	return value
}

// maskTail stars out all but the last keep characters of s.
func maskTail(s string, keep int) string {
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}

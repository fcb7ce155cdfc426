package log

import (
	"context"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]any

// Well-known field keys.
const (
	ComponentKey = "component"
	RequestIDKey = "request_id"
	BattleKey    = "battle"
)

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
	Error     error
}

// Logger is the structured logger passed to every battlelog component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger that adds fields to every entry.
	With(fields ...Field) Logger

	// Enabled reports whether entries at level are written.
	Enabled(level Level) bool
	SetLevel(level Level)
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	mu      *sync.RWMutex
	level   Level
	fields  Fields
	format  Formatter
	outputs []Output
	handler *bridgeHandler

	redact           []string
	sampleInitial    int
	sampleThereafter int
}

// NewLogger creates a new logger with the given options. There is no global
// logger; construct one and pass it explicitly.
func NewLogger(options ...LoggerOption) Logger {
	l := &BaseLogger{
		mu:     &sync.RWMutex{},
		level:  InfoLevel,
		fields: Fields{},
		format: &JSONFormatter{},
	}
	for _, option := range options {
		option(l)
	}
	if len(l.outputs) == 0 {
		l.outputs = []Output{&ConsoleOutput{}}
	}
	l.handler = newBridgeHandler(l)
	return l
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) { l.level = level }
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) { l.format = formatter }
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) { l.outputs = append(l.outputs, output) }
}

// WithRedactions replaces the value of the named fields with [REDACTED].
func WithRedactions(keys ...string) LoggerOption {
	return func(l *BaseLogger) { l.redact = append(l.redact, keys...) }
}

// WithSampling keeps the first initial entries of each message and then one
// in every thereafter.
func WithSampling(initial, thereafter int) LoggerOption {
	return func(l *BaseLogger) {
		l.sampleInitial = initial
		l.sampleThereafter = thereafter
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, or fallback.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return fallback
}

package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }

func (l *BaseLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields) }

func (l *BaseLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields) }

func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// With returns a child logger sharing outputs and level lock with the parent.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := &BaseLogger{
		mu:               l.mu,
		level:            l.GetLevel(),
		fields:           make(Fields, len(l.fields)+len(fields)),
		format:           l.format,
		outputs:          l.outputs,
		redact:           l.redact,
		sampleInitial:    l.sampleInitial,
		sampleThereafter: l.sampleThereafter,
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	child.handler = newBridgeHandler(child)
	return child
}

func (l *BaseLogger) Enabled(level Level) bool { return level >= l.GetLevel() }

func (l *BaseLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *BaseLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// log builds the slog record here so the caller PC points at the code that
// invoked Debug/Info/..., not at this package.
func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, pcs[0])
	for _, f := range fields {
		r.AddAttrs(slog.Any(f.Key, f.Value))
	}
	if err := l.handler.Handle(context.Background(), r); err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
	}
}

package log

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
)

// bridgeHandler is the slog.Handler behind BaseLogger. Records go through the
// logger's formatter and outputs rather than a slog output handler.
type bridgeHandler struct {
	core    *BaseLogger
	attrs   []slog.Attr
	prefix  string
	redact  map[string]struct{}
	sampler *sampler
}

func newBridgeHandler(l *BaseLogger) *bridgeHandler {
	h := &bridgeHandler{core: l}
	if len(l.redact) > 0 {
		h.redact = make(map[string]struct{}, len(l.redact))
		for _, k := range l.redact {
			h.redact[k] = struct{}{}
		}
	}
	if l.sampleThereafter > 0 {
		h.sampler = newSampler(l.sampleInitial, l.sampleThereafter)
	}
	for k, v := range l.fields {
		h.attrs = append(h.attrs, slog.Any(k, v))
	}
	return h
}

func (h *bridgeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.core.Enabled(fromSlogLevel(level))
}

func (h *bridgeHandler) Handle(_ context.Context, r slog.Record) error {
	if h.sampler != nil && !h.sampler.allow(r.Level, r.Message) {
		return nil
	}
	fields := make(Fields, len(h.attrs)+r.NumAttrs())
	put := func(a slog.Attr) bool {
		key := h.prefix + a.Key
		if _, ok := h.redact[a.Key]; ok {
			fields[key] = "[REDACTED]"
		} else {
			fields[key] = a.Value.Any()
		}
		return true
	}
	for _, a := range h.attrs {
		put(a)
	}
	r.Attrs(put)

	entry := &Entry{
		Level:     fromSlogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
		Timestamp: r.Time,
		Caller:    callerOf(r.PC),
	}
	formatted, err := h.core.format.Format(entry)
	if err != nil {
		return err
	}
	for _, out := range h.core.outputs {
		_ = out.Write(entry, formatted)
	}
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup prefixes subsequent keys with "name.".
func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

func callerOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// sampler keeps the first initial entries per (level, message) and then one
// in every thereafter.
type sampler struct {
	mu         sync.Mutex
	initial    uint64
	thereafter uint64
	counts     map[string]uint64
}

func newSampler(initial, thereafter int) *sampler {
	return &sampler{
		initial:    uint64(max(initial, 0)),
		thereafter: uint64(max(thereafter, 1)),
		counts:     make(map[string]uint64),
	}
}

func (s *sampler) allow(level slog.Level, message string) bool {
	key := level.String() + ":" + message
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counts[key]
	s.counts[key] = n + 1
	if n < s.initial {
		return true
	}
	return (n-s.initial)%s.thereafter == 0
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fromSlogLevel(level slog.Level) Level {
	switch {
	case level < slog.LevelInfo:
		return DebugLevel
	case level < slog.LevelWarn:
		return InfoLevel
	case level < slog.LevelError:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

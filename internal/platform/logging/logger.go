package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// MirrorFunc receives every emitted record a second time, after the zap
// write. The observability layer installs one to forward logs to OTel.
type MirrorFunc func(ctx context.Context, level Level, msg string, args ...any)

var mirror atomic.Pointer[MirrorFunc]

// SetMirror installs fn as the global log mirror. Passing nil removes it.
func SetMirror(fn MirrorFunc) {
	if fn == nil {
		mirror.Store(nil)
		return
	}
	mirror.Store(&fn)
}

func currentMirror() MirrorFunc {
	ptr := mirror.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// NewJSONEncoder returns the JSON encoder every core of this process uses,
// so stdout and shipped logs share one schema.
func NewJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
}

// NewJSON builds the process logger: an slog front backed by a zap JSON
// core, with trace ids appended from the context and records copied to the
// installed mirror.
func NewJSON(level Level) *slog.Logger {
	core := zapcore.NewCore(
		NewJSONEncoder(),
		zapcore.Lock(os.Stdout),
		level,
	)

	return FromCore(core)
}

// FromCore wraps an arbitrary zap core, for callers that tee output to
// several sinks.
func FromCore(core zapcore.Core) *slog.Logger {
	if core == nil {
		core = zapcore.NewNopCore()
	}
	return slog.New(&zapHandler{core: core})
}

// NewNop returns a logger that drops everything. Used in tests and as the
// nil fallback.
func NewNop() *slog.Logger {
	return FromCore(zapcore.NewNopCore())
}

// zapHandler adapts a zapcore.Core to the slog.Handler interface. Groups
// are flattened into dot-prefixed keys.
type zapHandler struct {
	core   zapcore.Core
	attrs  []slog.Attr
	prefix string
}

func (h *zapHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.core.Enabled(toZapLevel(level))
}

func (h *zapHandler) Handle(ctx context.Context, record slog.Record) error {
	fields := make([]zap.Field, 0, len(h.attrs)+record.NumAttrs()+2)
	args := make([]any, 0, 2*(len(h.attrs)+record.NumAttrs()))

	// Stored attrs were prefixed by WithAttrs already.
	for _, attr := range h.attrs {
		fields, args = appendAttr(fields, args, "", attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields, args = appendAttr(fields, args, h.prefix, attr)
		return true
	})

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}

	level := toZapLevel(record.Level)
	if ce := h.core.Check(zapcore.Entry{
		Level:   level,
		Time:    record.Time,
		Message: record.Message,
	}, nil); ce != nil {
		ce.Write(fields...)
	}

	if fn := currentMirror(); fn != nil {
		fn(ctx, level, record.Message, args...)
	}

	return nil
}

func (h *zapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.prefix + attr.Key
		merged = append(merged, attr)
	}
	return &zapHandler{core: h.core, attrs: merged, prefix: h.prefix}
}

func (h *zapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &zapHandler{core: h.core, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func appendAttr(fields []zap.Field, args []any, prefix string, attr slog.Attr) ([]zap.Field, []any) {
	if attr.Equal(slog.Attr{}) {
		return fields, args
	}

	key := prefix + attr.Key
	value := attr.Value.Resolve().Any()
	if err, ok := value.(error); ok {
		fields = append(fields, zap.NamedError(key, err))
	} else {
		fields = append(fields, zap.Any(key, value))
	}
	args = append(args, key, value)

	return fields, args
}

func toZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level < slog.LevelInfo:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

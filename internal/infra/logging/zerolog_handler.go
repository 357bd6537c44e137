package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// loggerKey is the attribute GetLogger tags every logger with; package level
// filters are matched against its value.
const loggerKey = "logger"

// ZerologHandler implements slog.Handler by rendering records through a zerolog.Logger.
// The zerolog logger decides the wire format (JSON or console), the handler decides
// which records pass.
type ZerologHandler struct {
	// Logger receives every record that passes the level checks
	Logger zerolog.Logger
	// Level is the minimum level for log records to be processed
	Level slog.Leveler
	// PkgLevels maps logger names (and their dotted parents) to minimum log levels
	PkgLevels map[string]slog.Level

	attrs  []slog.Attr
	groups []string
	pkg    string
}

var _ slog.Handler = (*ZerologHandler)(nil)

// NewZerologHandler creates a handler writing through the given zerolog logger.
func NewZerologHandler(logger zerolog.Logger, level slog.Leveler, pkgLevels map[string]slog.Level) *ZerologHandler {
	return &ZerologHandler{
		Logger:    logger,
		Level:     level,
		PkgLevels: pkgLevels,
	}
}

// Handle implements slog.Handler.
func (h *ZerologHandler) Handle(_ context.Context, r slog.Record) error {
	pkg := h.pkg
	prefix := h.groupPrefix()

	var attrs []slog.Attr

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == loggerKey && pkg == "" {
			pkg = a.Value.String()
		}

		attrs = append(attrs, prefixAttr(prefix, a))

		return true
	})

	if !h.pkgEnabled(pkg, r.Level) {
		return nil
	}

	event := h.Logger.WithLevel(zerologLevel(r.Level))
	if event == nil {
		return nil
	}

	if !r.Time.IsZero() {
		event = event.Time(zerolog.TimestampFieldName, r.Time)
	}

	for _, attr := range h.attrs {
		event = addAttr(event, "", attr)
	}

	for _, attr := range attrs {
		event = addAttr(event, "", attr)
	}

	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		event = event.Str(zerolog.CallerFieldName, shortFile(frame.File)+":"+strconv.Itoa(frame.Line))
	}

	event.Msg(r.Message)

	return nil
}

// pkgEnabled walks the dotted logger name from most to least specific and applies
// the first matching filter. An empty key acts as the catch-all filter.
func (h *ZerologHandler) pkgEnabled(pkg string, level slog.Level) bool {
	if len(h.PkgLevels) == 0 {
		return true
	}

	parts := strings.Split(pkg, ".")

	for i := len(parts); i >= 0; i-- {
		minLevel, ok := h.PkgLevels[strings.Join(parts[:i], ".")]
		if ok {
			return level >= minLevel
		}
	}

	return true
}

func (h *ZerologHandler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}

	return strings.Join(h.groups, ".") + "."
}

// WithAttrs implements slog.Handler.
func (h *ZerologHandler) WithAttrs(attrs []slog.Attr) Handler {
	pkg := h.pkg
	prefix := h.groupPrefix()
	prefixed := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	prefixed = append(prefixed, h.attrs...)

	for _, attr := range attrs {
		if attr.Key == loggerKey && pkg == "" {
			pkg = attr.Value.String()
		}

		prefixed = append(prefixed, prefixAttr(prefix, attr))
	}

	return &ZerologHandler{
		Logger:    h.Logger,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		attrs:     prefixed,
		groups:    h.groups,
		pkg:       pkg,
	}
}

// WithGroup implements slog.Handler.
func (h *ZerologHandler) WithGroup(name string) Handler {
	if name == "" {
		return h
	}

	return &ZerologHandler{
		Logger:    h.Logger,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		attrs:     h.attrs,
		groups:    append(h.groups[:len(h.groups):len(h.groups)], name),
		pkg:       h.pkg,
	}
}

// Enabled implements slog.Handler.
func (h *ZerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.Level.Level() <= level
}

func prefixAttr(prefix string, attr slog.Attr) slog.Attr {
	if prefix == "" {
		return attr
	}

	return slog.Attr{Key: prefix + attr.Key, Value: attr.Value}
}

// addAttr flattens groups into dotted keys, which keeps console output readable
// and JSON output greppable.
//
//nolint:cyclop
func addAttr(event *zerolog.Event, prefix string, attr slog.Attr) *zerolog.Event {
	value := attr.Value.Resolve()
	key := prefix + attr.Key

	//nolint:exhaustive
	switch value.Kind() {
	case slog.KindGroup:
		for _, member := range value.Group() {
			event = addAttr(event, key+".", member)
		}

		return event
	case slog.KindString:
		return event.Str(key, value.String())
	case slog.KindInt64:
		return event.Int64(key, value.Int64())
	case slog.KindUint64:
		return event.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, value.Float64())
	case slog.KindBool:
		return event.Bool(key, value.Bool())
	case slog.KindDuration:
		return event.Dur(key, value.Duration())
	case slog.KindTime:
		return event.Time(key, value.Time())
	}

	switch v := value.Any().(type) {
	case error:
		return event.AnErr(key, v)
	case []string:
		return event.Strs(key, v)
	case []int:
		return event.Ints(key, v)
	default:
		return event.Interface(key, v)
	}
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= LevelError:
		return zerolog.ErrorLevel
	case level >= LevelWarn:
		return zerolog.WarnLevel
	case level >= LevelInfo:
		return zerolog.InfoLevel
	case level >= LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func shortFile(file string) string {
	parts := strings.Split(file, string(os.PathSeparator))
	if len(parts) <= 2 {
		return file
	}

	return strings.Join(parts[len(parts)-2:], string(os.PathSeparator))
}

// newZerolog builds the zerolog logger behind every handler.
func newZerolog(cfg LoggerConfig) zerolog.Logger {
	output := cfg.OutputHandle

	if !cfg.JSON {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05.000000",
			NoColor:    cfg.NoColor,
		}
	}

	return zerolog.New(output).Level(zerolog.TraceLevel)
}

package logging

import (
	"context"
	"log/slog"
	"time"

	"marclink/internal/failures"
)

type Attr = slog.Attr

const (
	// FieldImpact states what a warning means for the output.
	FieldImpact = "impact"
	// FieldErrorKind is the failure class of a logged error: format,
	// consistency, policy_gap or persistence.
	FieldErrorKind = "error_kind"
	// FieldGroup lists the control numbers of a cross-reference group.
	FieldGroup = "group"
)

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// ControlNumber tags a line with the record it concerns.
func ControlNumber(id string) Attr { return slog.String(FieldControlNumber, id) }

// Offset tags a line with the byte offset of a record in its input.
func Offset(offset int64) Attr { return slog.Int64(FieldOffset, offset) }

// Pass tags a line with the corpus pass it belongs to.
func Pass(name string) Attr { return slog.String(FieldPass, name) }

// Members tags a line with the ids of a cross-reference group.
func Members(ids []string) Attr { return slog.Any(FieldGroup, ids) }

func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// HasAttrKey returns true if any attribute in attrs has the given key.
func HasAttrKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// withDefaults appends every default whose key attrs does not set yet.
func withDefaults(attrs []Attr, defaults ...Attr) []Attr {
	for _, d := range defaults {
		if !HasAttrKey(attrs, d.Key) {
			attrs = append(attrs, d)
		}
	}
	return attrs
}

// WarnWithContext logs a warning carrying event_type, error_hint and impact.
// Missing fields get defaults so every warning names cause, impact and next step.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, "check logs for details"),
		String(FieldImpact, "the run continues with warnings"),
	)
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs a failure that ends a run. The failure class of err
// is recorded as error_kind and picks the default error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, err error, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs,
		Error(err),
		String(FieldErrorKind, failures.Kind(err)),
		String(FieldEventType, eventType),
		String(FieldErrorHint, failureHint(err)),
	)
	logger.Error(msg, Args(attrs...)...)
}

func failureHint(err error) string {
	switch failures.Kind(err) {
	case "consistency":
		return "fix the reported group, or run without strict mode to write it unmerged"
	case "persistence":
		return "check the index store path and that no other process holds its lock"
	case "format":
		return "repair or remove the malformed record"
	default:
		return "check logs for details"
	}
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }

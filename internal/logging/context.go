package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldRunID identifies one CLI invocation.
	FieldRunID = "run_id"
	// FieldPass names the corpus pass (standard_numbers, cross_refs, merge).
	FieldPass = "pass"
	// FieldControlNumber is the 001 of the record a line is about.
	FieldControlNumber = "control_number"
	// FieldOffset is the byte offset of a record in its input.
	FieldOffset = "offset"
)

type contextKey int

const (
	runIDKey contextKey = iota
	passKey
)

// WithRunID returns a context carrying the run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run id stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithPass returns a context carrying the current pass name.
func WithPass(ctx context.Context, pass string) context.Context {
	return context.WithValue(ctx, passKey, pass)
}

// PassFromContext returns the pass name stored by WithPass.
func PassFromContext(ctx context.Context) (string, bool) {
	pass, ok := ctx.Value(passKey).(string)
	return pass, ok && pass != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if pass, ok := PassFromContext(ctx); ok {
		fields = append(fields, Pass(pass))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

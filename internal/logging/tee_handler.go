package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler copies each record to the console handler and the JSON log
// file. Every branch filters levels on its own.
type teeHandler []slog.Handler

// TeeHandler duplicates log output to every non-nil handler. It returns a
// NoopHandler when none is left and the handler itself when only one is.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	var branches teeHandler
	for _, h := range handlers {
		if h != nil {
			branches = append(branches, h)
		}
	}
	switch len(branches) {
	case 0:
		return NoopHandler{}
	case 1:
		return branches[0]
	default:
		return branches
	}
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes record to every branch that accepts its level. A failing
// branch does not stop the others; all failures are joined.
func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) derive(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}

package logger

import (
	"context"
	"log/slog"
)

// multiHandler fans one log record out to several destinations, used to pair
// the stdout handler with the Sentry handler. A level is enabled when any
// destination accepts it; each destination still applies its own filter in
// Handle, so stdout-only debug records never reach Sentry.
type multiHandler struct {
	destinations []slog.Handler
}

func newMultiHandler(destinations ...slog.Handler) slog.Handler {
	return &multiHandler{destinations: destinations}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, dest := range h.destinations {
		if dest.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every accepting destination. Records are
// cloned per destination because handlers may retain them. The first
// delivery error stops the fan-out.
func (h *multiHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, dest := range h.destinations {
		if dest.Enabled(ctx, rec.Level) {
			if err := dest.Handle(ctx, rec.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	destinations := make([]slog.Handler, len(h.destinations))
	for i, dest := range h.destinations {
		destinations[i] = dest.WithAttrs(attrs)
	}
	return newMultiHandler(destinations...)
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	destinations := make([]slog.Handler, len(h.destinations))
	for i, dest := range h.destinations {
		destinations[i] = dest.WithGroup(name)
	}
	return newMultiHandler(destinations...)
}

package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor extracts a slog attribute from context. The bool result
// reports whether the context carried a value worth logging.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// ExtractorHandler wraps a slog.Handler and injects context-extracted
// attributes on every log call, capturing fresh request- or job-scoped
// values at the moment of logging.
type ExtractorHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

// NewExtractorHandler decorates next with the given extractors. Nil
// extractors are filtered out so misconfigured options cannot panic at log
// time.
func NewExtractorHandler(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &ExtractorHandler{next: next, extractors: clean}
}

func (h *ExtractorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle extracts context attributes and delegates to the wrapped handler.
func (h *ExtractorHandler) Handle(ctx context.Context, rec slog.Record) error {
	if len(h.extractors) == 0 {
		return h.next.Handle(ctx, rec)
	}

	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *ExtractorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ExtractorHandler{
		next:       h.next.WithAttrs(attrs),
		extractors: h.extractors,
	}
}

func (h *ExtractorHandler) WithGroup(name string) slog.Handler {
	return &ExtractorHandler{
		next:       h.next.WithGroup(name),
		extractors: h.extractors,
	}
}

// Package logger builds the slog loggers used by the bulk worker processes.
//
// It extends log/slog with per-call context extraction (so job- and
// item-scoped attributes ride along on every log line inside a handler) and
// optional Sentry forwarding for warnings and errors.
//
// # Basic usage
//
// Create a JSON logger with context extractors:
//
//	jobIDExtractor := func(ctx context.Context) (slog.Attr, bool) {
//		if jobID, ok := ctx.Value(jobIDKey).(string); ok && jobID != "" {
//			return slog.String("bulk_job_id", jobID), true
//		}
//		return slog.Attr{}, false
//	}
//
//	log := logger.New(jobIDExtractor)
//	log.InfoContext(ctx, "fan-out complete", slog.Int("items", n))
//	// {"level":"INFO","msg":"fan-out complete","items":5,"bulk_job_id":"01J..."}
//
// # Sentry
//
// NewWithSentry fans logs out to stdout and Sentry. With an empty DSN it
// degrades to stdout only, which keeps local development configuration-free:
//
//	log := logger.NewWithSentry(logger.SentryConfig{
//		DSN:         os.Getenv("SENTRY_DSN"),
//		Environment: "production",
//	})
//
// Use NewNope in tests and as the default for unconfigured components.
package logger

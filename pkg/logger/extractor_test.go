package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/logger"
)

type ctxKey string

const jobIDKey ctxKey = "bulk_job_id"

func TestExtractorHandler_InjectsContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)

	extractor := func(ctx context.Context) (slog.Attr, bool) {
		if jobID, ok := ctx.Value(jobIDKey).(string); ok && jobID != "" {
			return slog.String("bulk_job_id", jobID), true
		}
		return slog.Attr{}, false
	}

	log := slog.New(logger.NewExtractorHandler(base, extractor))

	ctx := context.WithValue(context.Background(), jobIDKey, "01JOB")
	log.InfoContext(ctx, "processed")
	assert.Contains(t, buf.String(), `"bulk_job_id":"01JOB"`)

	buf.Reset()
	log.InfoContext(context.Background(), "processed")
	assert.NotContains(t, buf.String(), "bulk_job_id")
}

func TestExtractorHandler_FiltersNilExtractors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(logger.NewExtractorHandler(slog.NewJSONHandler(&buf, nil), nil, nil))

	assert.NotPanics(t, func() {
		log.Info("still works")
	})
	assert.Contains(t, buf.String(), "still works")
}

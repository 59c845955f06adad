package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/medicalexcom/avidiatech-app-sub005/internal/bulk"
)

// fetchProcessor is the default item processor: it fetches the item's input
// URL and classifies the outcome. Real deployments swap in domain-specific
// processors; this one keeps the worker binary runnable end to end.
type fetchProcessor struct {
	client *http.Client
	log    *slog.Logger
}

func newFetchProcessor(log *slog.Logger) *fetchProcessor {
	return &fetchProcessor{
		// The per-attempt deadline comes from the task context; this timeout
		// only guards against a missing deadline.
		client: &http.Client{Timeout: 5 * time.Minute},
		log:    log,
	}
}

func (p *fetchProcessor) Process(ctx context.Context, item *bulk.Item) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.InputURL, nil)
	if err != nil {
		return bulk.Permanent(fmt.Errorf("invalid input URL: %w", err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		// Network failures and context deadlines are retryable.
		return bulk.Transient(err)
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return bulk.Transient(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		p.log.DebugContext(ctx, "item input fetched",
			slog.String("bulk_job_item_id", item.ID),
			slog.Int("status", resp.StatusCode),
			slog.Int64("bytes", n),
		)
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return bulk.Transient(fmt.Errorf("upstream returned %d", resp.StatusCode))
	default:
		return bulk.Permanent(fmt.Errorf("upstream returned %d", resp.StatusCode))
	}
}

package bulk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the PostgreSQL implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const itemColumns = `id, bulk_job_id, item_index, input_url, metadata, status, attempts, last_error, started_at, finished_at`

func (s *PGStore) CreateJob(ctx context.Context, tx pgx.Tx, job *Job) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bulk_jobs (id, name, org_id, created_by, options, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.Name, job.OrgID, job.CreatedBy, job.Options, job.Status, job.CreatedAt,
	)
	if err != nil {
		return Infrastructure(fmt.Errorf("bulk: create job: %w", err))
	}
	return nil
}

func (s *PGStore) CreateItems(ctx context.Context, tx pgx.Tx, items []*Item) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO bulk_job_items (id, bulk_job_id, item_index, input_url, metadata, status, attempts)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.JobID, item.Index, item.InputURL, item.Metadata, item.Status, item.Attempts,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return Infrastructure(fmt.Errorf("bulk: create items: %w", err))
		}
	}
	return nil
}

func (s *PGStore) ResetItem(ctx context.Context, tx pgx.Tx, jobID, itemID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bulk_job_items
		SET status = $3, attempts = 0, last_error = NULL, started_at = NULL, finished_at = NULL
		WHERE id = $1 AND bulk_job_id = $2`,
		itemID, jobID, ItemQueued,
	)
	if err != nil {
		return Infrastructure(fmt.Errorf("bulk: reset item: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *PGStore) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, org_id, created_by, options, status, created_at
		FROM bulk_jobs WHERE id = $1`, jobID,
	).Scan(&job.ID, &job.Name, &job.OrgID, &job.CreatedBy, &job.Options, &job.Status, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, Infrastructure(fmt.Errorf("bulk: get job: %w", err))
	}
	return &job, nil
}

func (s *PGStore) GetItem(ctx context.Context, jobID, itemID string) (*Item, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM bulk_job_items
		WHERE id = $1 AND bulk_job_id = $2`, itemColumns),
		itemID, jobID,
	)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, Infrastructure(fmt.Errorf("bulk: get item: %w", err))
	}
	return item, nil
}

func (s *PGStore) ListItems(ctx context.Context, jobID string, limit, offset int) ([]*Item, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bulk_job_items
		WHERE bulk_job_id = $1
		ORDER BY item_index
		LIMIT $2 OFFSET $3`, itemColumns),
		jobID, limit, offset,
	)
	if err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: list items: %w", err))
	}
	return collectItems(rows)
}

func (s *PGStore) ListQueuedItems(ctx context.Context, jobID string) ([]*Item, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bulk_job_items
		WHERE bulk_job_id = $1 AND status = $2
		ORDER BY item_index`, itemColumns),
		jobID, ItemQueued,
	)
	if err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: list queued items: %w", err))
	}
	return collectItems(rows)
}

func (s *PGStore) UpdateItemStatus(ctx context.Context, itemID string, expect []ItemStatus, patch ItemPatch) error {
	expected := make([]string, len(expect))
	for i, st := range expect {
		expected[i] = string(st)
	}

	inc := 0
	if patch.IncAttempts {
		inc = 1
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE bulk_job_items
		SET status = $2,
		    attempts = attempts + $3,
		    started_at = CASE WHEN $4 THEN COALESCE(started_at, now()) ELSE started_at END,
		    finished_at = CASE WHEN $5 THEN now() ELSE finished_at END,
		    last_error = CASE
		        WHEN $6 THEN NULL
		        WHEN $7::text IS NOT NULL THEN $7::text
		        ELSE last_error
		    END
		WHERE id = $1 AND status = ANY($8)`,
		itemID, patch.Status, inc, patch.MarkStarted, patch.MarkFinished,
		patch.ClearLastError, patch.LastError, expected,
	)
	if err != nil {
		return Infrastructure(fmt.Errorf("bulk: update item status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing row.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bulk_job_items WHERE id = $1)`, itemID,
		).Scan(&exists); err != nil {
			return Infrastructure(fmt.Errorf("bulk: update item status: %w", err))
		}
		if !exists {
			return ErrItemNotFound
		}
		return ErrConflict
	}
	return nil
}

func (s *PGStore) UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bulk_jobs SET status = $2 WHERE id = $1`, jobID, status)
	if err != nil {
		return Infrastructure(fmt.Errorf("bulk: update job status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PGStore) ListItemStatuses(ctx context.Context, jobID string) ([]ItemStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status FROM bulk_job_items WHERE bulk_job_id = $1`, jobID)
	if err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: list item statuses: %w", err))
	}
	defer rows.Close()

	var statuses []ItemStatus
	for rows.Next() {
		var st ItemStatus
		if err := rows.Scan(&st); err != nil {
			return nil, Infrastructure(fmt.Errorf("bulk: list item statuses: %w", err))
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: list item statuses: %w", err))
	}
	return statuses, nil
}

func (s *PGStore) ListStaleJobs(ctx context.Context, olderThan time.Duration, limit int) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM bulk_jobs
		WHERE status = ANY($1) AND created_at < $2
		ORDER BY created_at
		LIMIT $3`,
		[]string{string(JobQueued), string(JobProcessing)}, cutoff, limit,
	)
	if err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: list stale jobs: %w", err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, Infrastructure(fmt.Errorf("bulk: list stale jobs: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: list stale jobs: %w", err))
	}
	return ids, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	err := row.Scan(
		&item.ID, &item.JobID, &item.Index, &item.InputURL, &item.Metadata,
		&item.Status, &item.Attempts, &item.LastError, &item.StartedAt, &item.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectItems(rows pgx.Rows) ([]*Item, error) {
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, Infrastructure(fmt.Errorf("bulk: scan item: %w", err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, Infrastructure(fmt.Errorf("bulk: iterate items: %w", err))
	}
	return items, nil
}

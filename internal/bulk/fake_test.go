package bulk

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/id"
	"github.com/medicalexcom/avidiatech-app-sub005/pkg/queue"
)

// fakeStore is an in-memory Store used by the worker-path tests. Transaction
// parameters are accepted and ignored; the fakes exercise orchestration
// logic, not transaction plumbing.
type fakeStore struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	items map[string]*Item

	// error injection, keyed by method
	failListQueued   error
	failUpdateItem   error
	failListStatuses error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:  make(map[string]*Job),
		items: make(map[string]*Item),
	}
}

func (s *fakeStore) CreateJob(_ context.Context, _ pgx.Tx, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) CreateItems(_ context.Context, _ pgx.Tx, items []*Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		cp := *item
		s.items[item.ID] = &cp
	}
	return nil
}

func (s *fakeStore) ResetItem(_ context.Context, _ pgx.Tx, jobID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || item.JobID != jobID {
		return ErrItemNotFound
	}
	item.Status = ItemQueued
	item.Attempts = 0
	item.LastError = nil
	item.StartedAt = nil
	item.FinishedAt = nil
	return nil
}

func (s *fakeStore) GetJob(_ context.Context, jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *fakeStore) GetItem(_ context.Context, jobID, itemID string) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || item.JobID != jobID {
		return nil, ErrItemNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *fakeStore) ListItems(_ context.Context, jobID string, limit, offset int) ([]*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.itemsOfLocked(jobID)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *fakeStore) ListQueuedItems(_ context.Context, jobID string) ([]*Item, error) {
	if s.failListQueued != nil {
		return nil, s.failListQueued
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var queued []*Item
	for _, item := range s.itemsOfLocked(jobID) {
		if item.Status == ItemQueued {
			queued = append(queued, item)
		}
	}
	return queued, nil
}

func (s *fakeStore) UpdateItemStatus(_ context.Context, itemID string, expect []ItemStatus, patch ItemPatch) error {
	if s.failUpdateItem != nil {
		return s.failUpdateItem
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return ErrItemNotFound
	}

	matched := false
	for _, st := range expect {
		if item.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return ErrConflict
	}

	now := time.Now().UTC()
	item.Status = patch.Status
	if patch.IncAttempts {
		item.Attempts++
	}
	if patch.MarkStarted && item.StartedAt == nil {
		item.StartedAt = &now
	}
	if patch.MarkFinished {
		item.FinishedAt = &now
	}
	switch {
	case patch.ClearLastError:
		item.LastError = nil
	case patch.LastError != nil:
		detail := *patch.LastError
		item.LastError = &detail
	}
	return nil
}

func (s *fakeStore) UpdateJobStatus(_ context.Context, jobID string, status JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = status
	return nil
}

func (s *fakeStore) ListItemStatuses(_ context.Context, jobID string) ([]ItemStatus, error) {
	if s.failListStatuses != nil {
		return nil, s.failListStatuses
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var statuses []ItemStatus
	for _, item := range s.itemsOfLocked(jobID) {
		statuses = append(statuses, item.Status)
	}
	return statuses, nil
}

func (s *fakeStore) ListStaleJobs(_ context.Context, olderThan time.Duration, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var ids []string
	for _, job := range s.jobs {
		if (job.Status == JobQueued || job.Status == JobProcessing) && job.CreatedAt.Before(cutoff) {
			ids = append(ids, job.ID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// itemsOfLocked returns copies of the job's items ordered by index.
func (s *fakeStore) itemsOfLocked(jobID string) []*Item {
	var items []*Item
	for _, item := range s.items {
		if item.JobID == jobID {
			cp := *item
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	return items
}

// enqueued records one captured dispatch.
type enqueued struct {
	name    string
	payload any
	tx      bool
}

// fakeEnqueuer captures dispatches instead of inserting them.
type fakeEnqueuer struct {
	mu    sync.Mutex
	calls []enqueued
	fail  error
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, name string, payload any, _ ...queue.EnqueueOption) error {
	if e.fail != nil {
		return e.fail
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, enqueued{name: name, payload: payload})
	return nil
}

func (e *fakeEnqueuer) EnqueueTx(_ context.Context, _ pgx.Tx, name string, payload any, _ ...queue.EnqueueOption) error {
	if e.fail != nil {
		return e.fail
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, enqueued{name: name, payload: payload, tx: true})
	return nil
}

func (e *fakeEnqueuer) byTask(name string) []enqueued {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []enqueued
	for _, c := range e.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// passthroughTx runs fn with a nil transaction, standing in for db.WithTx.
func passthroughTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

// seedJob inserts a queued job with n queued items into the fake store.
func seedJob(t *testing.T, s *fakeStore, n int) (*Job, []*Item) {
	t.Helper()

	job := &Job{
		ID:        id.NewULID(),
		Name:      "test batch",
		CreatedBy: uuid.New(),
		Status:    JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateJob(context.Background(), nil, job))

	items := make([]*Item, n)
	for i := range n {
		items[i] = &Item{
			ID:       id.NewULID(),
			JobID:    job.ID,
			Index:    i,
			InputURL: fmt.Sprintf("https://example.com/page/%d", i),
			Status:   ItemQueued,
		}
	}
	require.NoError(t, s.CreateItems(context.Background(), nil, items))
	return job, items
}

// setItemStatus forces an item's status directly, bypassing transition rules.
func setItemStatus(t *testing.T, s *fakeStore, itemID string, status ItemStatus) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	require.True(t, ok, "unknown item %s", itemID)
	item.Status = status
}

package bulk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicalexcom/avidiatech-app-sub005/pkg/backoff"
)

// flowHarness wires the intake service and both workers against the in-memory
// fakes and emulates the queue's redelivery loop.
type flowHarness struct {
	t     *testing.T
	store *fakeStore
	enq   *fakeEnqueuer
	svc   *Service
	fan   *FanOutTask
	item  *ItemTask
}

func newFlowHarness(t *testing.T, proc Processor) *flowHarness {
	t.Helper()

	store := newFakeStore()
	enq := &fakeEnqueuer{}
	policy := backoff.Default()
	return &flowHarness{
		t:     t,
		store: store,
		enq:   enq,
		svc:   newTestService(store, enq),
		fan:   NewFanOutTask(store, enq, policy, 4, nil),
		item:  NewItemTask(store, proc, policy, time.Minute, nil),
	}
}

// drain delivers every captured message, redelivering on handler error up to
// the policy's attempt ceiling, until the queues are empty.
func (h *flowHarness) drain() {
	h.t.Helper()

	for {
		h.enq.mu.Lock()
		pending := h.enq.calls
		h.enq.calls = nil
		h.enq.mu.Unlock()
		if len(pending) == 0 {
			return
		}

		for _, msg := range pending {
			switch msg.name {
			case TaskFanOut:
				p, ok := msg.payload.(FanOutPayload)
				require.True(h.t, ok)
				h.deliver(func(ctx context.Context) error { return h.fan.Handle(ctx, p) })
			case TaskProcessItem:
				p, ok := msg.payload.(ItemPayload)
				require.True(h.t, ok)
				h.deliver(func(ctx context.Context) error { return h.item.Handle(ctx, p) })
			default:
				h.t.Fatalf("unexpected task %q", msg.name)
			}
		}
	}
}

func (h *flowHarness) deliver(handle func(context.Context) error) {
	h.t.Helper()

	for attempt := 1; attempt <= backoff.Default().MaxAttempts; attempt++ {
		if err := handle(context.Background()); err == nil {
			return
		}
	}
	h.t.Fatal("message not consumed within the attempt ceiling")
}

func (h *flowHarness) jobStatus(jobID string) JobStatus {
	h.t.Helper()

	job, err := h.store.GetJob(context.Background(), jobID)
	require.NoError(h.t, err)
	return job.Status
}

func TestFlow_AllItemsSucceed(t *testing.T) {
	t.Parallel()

	h := newFlowHarness(t, ProcessorFunc(func(context.Context, *Item) error { return nil }))

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(5))
	require.NoError(t, err)
	h.drain()

	assert.Equal(t, JobCompleted, h.jobStatus(job.ID))
	items, err := h.store.ListItems(context.Background(), job.ID, 10, 0)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, ItemSucceeded, item.Status)
		assert.Equal(t, 1, item.Attempts)
	}
}

func TestFlow_PermanentFailureMakesJobPartial(t *testing.T) {
	t.Parallel()

	var failIndex int
	h := newFlowHarness(t, ProcessorFunc(func(_ context.Context, item *Item) error {
		if item.Index == failIndex {
			return Permanent(errors.New("input rejected"))
		}
		return nil
	}))
	failIndex = 1

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(3))
	require.NoError(t, err)
	h.drain()

	assert.Equal(t, JobPartial, h.jobStatus(job.ID))

	items, err := h.store.ListItems(context.Background(), job.ID, 10, 0)
	require.NoError(t, err)
	for _, item := range items {
		if item.Index == failIndex {
			assert.Equal(t, ItemFailed, item.Status)
			require.NotNil(t, item.LastError)
			assert.Equal(t, "input rejected", *item.LastError)
		} else {
			assert.Equal(t, ItemSucceeded, item.Status)
		}
	}
}

func TestFlow_TransientExhaustionFailsEverything(t *testing.T) {
	t.Parallel()

	h := newFlowHarness(t, ProcessorFunc(func(context.Context, *Item) error {
		return Transient(errors.New("upstream unavailable"))
	}))

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(2))
	require.NoError(t, err)
	h.drain()

	assert.Equal(t, JobFailed, h.jobStatus(job.ID))

	items, err := h.store.ListItems(context.Background(), job.ID, 10, 0)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, ItemFailed, item.Status)
		assert.Equal(t, backoff.Default().MaxAttempts, item.Attempts)
	}
}

func TestFlow_TransientRecoveryCompletesJob(t *testing.T) {
	t.Parallel()

	attempts := make(map[string]int)
	h := newFlowHarness(t, ProcessorFunc(func(_ context.Context, item *Item) error {
		attempts[item.ID]++
		if attempts[item.ID] < 2 {
			return Transient(errors.New("first attempt flaked"))
		}
		return nil
	}))

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(3))
	require.NoError(t, err)
	h.drain()

	assert.Equal(t, JobCompleted, h.jobStatus(job.ID))

	items, err := h.store.ListItems(context.Background(), job.ID, 10, 0)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, ItemSucceeded, item.Status)
		assert.Equal(t, 2, item.Attempts)
		assert.Nil(t, item.LastError)
	}
}

func TestFlow_ManualRetryRecoversPartialJob(t *testing.T) {
	t.Parallel()

	var broken bool
	h := newFlowHarness(t, ProcessorFunc(func(_ context.Context, item *Item) error {
		if broken && item.Index == 0 {
			return Permanent(errors.New("still down"))
		}
		return nil
	}))
	broken = true

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(2))
	require.NoError(t, err)
	h.drain()
	require.Equal(t, JobPartial, h.jobStatus(job.ID))

	items, err := h.store.ListItems(context.Background(), job.ID, 10, 0)
	require.NoError(t, err)
	failed := items[0]
	require.Equal(t, ItemFailed, failed.Status)

	// Operator fixes the upstream and retries just the failed item.
	broken = false
	require.NoError(t, h.svc.RetryItem(context.Background(), job.ID, failed.ID))
	assert.Equal(t, JobProcessing, h.jobStatus(job.ID),
		"job reports in flight while the retried item is pending")
	h.drain()

	assert.Equal(t, JobCompleted, h.jobStatus(job.ID))
	got, err := h.store.GetItem(context.Background(), job.ID, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemSucceeded, got.Status)
	assert.Equal(t, 1, got.Attempts, "retry started from a fresh budget")
}

func TestFlow_DuplicateMasterDeliveryChangesNothing(t *testing.T) {
	t.Parallel()

	var processed int
	h := newFlowHarness(t, ProcessorFunc(func(context.Context, *Item) error {
		processed++
		return nil
	}))

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(4))
	require.NoError(t, err)
	h.drain()
	require.Equal(t, JobCompleted, h.jobStatus(job.ID))
	require.Equal(t, 4, processed)

	// Redeliver the master after completion: no queued items remain, so no
	// new item messages and no extra processing.
	require.NoError(t, h.fan.Handle(context.Background(), FanOutPayload{BulkJobID: job.ID}))
	assert.Empty(t, h.enq.byTask(TaskProcessItem))
	assert.Equal(t, 4, processed)
	assert.Equal(t, JobCompleted, h.jobStatus(job.ID))
}

func TestFlow_DuplicateItemDeliveryChangesNothing(t *testing.T) {
	t.Parallel()

	var processed int
	h := newFlowHarness(t, ProcessorFunc(func(context.Context, *Item) error {
		processed++
		return nil
	}))

	job, err := h.svc.CreateJob(context.Background(), validJobSpec(1))
	require.NoError(t, err)
	h.drain()
	require.Equal(t, 1, processed)

	items, err := h.store.ListItems(context.Background(), job.ID, 10, 0)
	require.NoError(t, err)
	before := *items[0]

	require.NoError(t, h.item.Handle(context.Background(),
		ItemPayload{BulkJobID: job.ID, BulkJobItemID: before.ID}))

	after, err := h.store.GetItem(context.Background(), job.ID, before.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, processed, "duplicate delivery must not reprocess")
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.Attempts, after.Attempts)
	assert.Equal(t, before.FinishedAt, after.FinishedAt)
}

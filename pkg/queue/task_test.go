package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	ItemID string `json:"item_id"`
	Index  int    `json:"index"`
}

// testTask implements the task interface for testing.
type testTask struct {
	name     string
	executed bool
	payload  testPayload
	err      error
}

func (t *testTask) Name() string { return t.name }

func (t *testTask) Handle(ctx context.Context, p testPayload) error {
	t.executed = true
	t.payload = p
	return t.err
}

func TestTaskRegistry_RegisterAndGet(t *testing.T) {
	registry := newTaskRegistry()

	task := &testTask{name: "bulk_process_item"}
	registry.register("bulk_process_item", newTaskWrapper[testPayload, *testTask](task))

	executor, ok := registry.get("bulk_process_item")
	assert.True(t, ok)
	assert.NotNil(t, executor)

	executor, ok = registry.get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, executor)
}

func TestTaskRegistry_Names(t *testing.T) {
	registry := newTaskRegistry()

	assert.Empty(t, registry.names())

	registry.register("bulk_fan_out", newTaskWrapper[testPayload, *testTask](&testTask{name: "bulk_fan_out"}))
	registry.register("bulk_process_item", newTaskWrapper[testPayload, *testTask](&testTask{name: "bulk_process_item"}))

	names := registry.names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "bulk_fan_out")
	assert.Contains(t, names, "bulk_process_item")
}

func TestTaskWrapper_Execute(t *testing.T) {
	t.Run("successful execution", func(t *testing.T) {
		task := &testTask{name: "bulk_process_item"}
		wrapper := newTaskWrapper[testPayload, *testTask](task)

		payload := testPayload{ItemID: "01ITEM", Index: 3}
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		err = wrapper.Execute(context.Background(), raw)
		assert.NoError(t, err)
		assert.True(t, task.executed)
		assert.Equal(t, payload, task.payload)
	})

	t.Run("empty payload", func(t *testing.T) {
		task := &testTask{name: "bulk_process_item"}
		wrapper := newTaskWrapper[testPayload, *testTask](task)

		err := wrapper.Execute(context.Background(), nil)
		assert.NoError(t, err)
		assert.True(t, task.executed)
		assert.Equal(t, testPayload{}, task.payload)
	})

	t.Run("invalid payload", func(t *testing.T) {
		task := &testTask{name: "bulk_process_item"}
		wrapper := newTaskWrapper[testPayload, *testTask](task)

		err := wrapper.Execute(context.Background(), []byte("not json"))
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPayload)
		assert.False(t, task.executed)
	})

	t.Run("task returns error", func(t *testing.T) {
		taskErr := errors.New("processing failed")
		task := &testTask{name: "bulk_process_item", err: taskErr}
		wrapper := newTaskWrapper[testPayload, *testTask](task)

		err := wrapper.Execute(context.Background(), nil)
		assert.ErrorIs(t, err, taskErr)
	})
}

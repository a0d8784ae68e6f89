package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-analyzer/internal/domain"
)

func TestTaskStore(t *testing.T) {
	t.Run("NewTaskStore", func(t *testing.T) {
		ts := NewTaskStore()
		assert.NotNil(t, ts)
		assert.Zero(t, ts.Len())
	})

	t.Run("создание и получение задачи", func(t *testing.T) {
		ts := NewTaskStore()
		ttl := 5 * time.Minute

		ts.CreateTask("task-1", TaskKindAnalytics, ttl)

		task, err := ts.GetTask("task-1")
		require.NoError(t, err)

		assert.Equal(t, "task-1", task.ID)
		assert.Equal(t, TaskKindAnalytics, task.Kind)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.WithinDuration(t, time.Now().Add(ttl), task.ExpiresAt, time.Second)
	})

	t.Run("несуществующая задача", func(t *testing.T) {
		ts := NewTaskStore()
		_, err := ts.GetTask("non-existent")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("UpdateTaskStatus", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", TaskKindProfile, time.Minute)

		require.NoError(t, ts.UpdateTaskStatus("task-1", TaskStatusProcessing))

		task, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusProcessing, task.Status)

		err := ts.UpdateTaskStatus("non-existent", TaskStatusCompleted)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("UpdateTaskResult", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", TaskKindProfile, time.Minute)

		result := &domain.UserProfile{UserID: "user1", MessageCount: 3}
		require.NoError(t, ts.UpdateTaskResult("task-1", result))

		task, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Equal(t, result, task.Result)

		assert.Error(t, ts.UpdateTaskResult("non-existent", nil))
	})

	t.Run("UpdateTaskError", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", TaskKindAnalytics, time.Minute)

		require.NoError(t, ts.UpdateTaskError("task-1", "something went wrong"))

		task, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusFailed, task.Status)
		assert.Equal(t, "something went wrong", task.ErrorMessage)

		assert.Error(t, ts.UpdateTaskError("non-existent", ""))
	})

	t.Run("GetTask возвращает копию", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("task-1", TaskKindAnalytics, time.Minute)

		task, _ := ts.GetTask("task-1")
		task.Status = TaskStatusFailed

		stored, _ := ts.GetTask("task-1")
		assert.Equal(t, TaskStatusPending, stored.Status)
	})

	t.Run("CleanupExpired", func(t *testing.T) {
		ts := NewTaskStore()
		ts.CreateTask("expired", TaskKindAnalytics, -1*time.Minute)
		ts.CreateTask("valid", TaskKindAnalytics, 1*time.Minute)

		assert.Equal(t, 1, ts.CleanupExpired())

		_, err := ts.GetTask("expired")
		assert.Error(t, err, "Expired task should be deleted")

		_, err = ts.GetTask("valid")
		assert.NoError(t, err, "Valid task should not be deleted")
	})
}

func TestTaskStore_StartCleanupTicker(t *testing.T) {
	ts := NewTaskStore()
	ts.CreateTask("expired", TaskKindAnalytics, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts.StartCleanupTicker(ctx, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := ts.GetTask("expired")
		return err != nil
	}, time.Second, 10*time.Millisecond, "Expired task should be removed by ticker")
}

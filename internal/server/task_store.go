package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/metrics"
)

// TaskStatus представляет статус фоновой задачи
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Виды фоновых задач.
const (
	TaskKindAnalytics = "analytics"
	TaskKindProfile   = "profile"
)

// Task представляет собой одну фоновую задачу агрегации
type Task struct {
	ID           string     `json:"task_id"`
	Kind         string     `json:"kind"`
	Status       TaskStatus `json:"status"`
	Result       any        `json:"-"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"` // Для автоматической очистки
}

// TaskStore управляет хранением и извлечением задач
type TaskStore struct {
	tasks map[string]*Task
	mutex sync.RWMutex
}

// NewTaskStore создает новый экземпляр TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
	}
}

// CreateTask создает новую задачу со статусом 'pending'
func (ts *TaskStore) CreateTask(taskID, kind string, ttl time.Duration) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Kind:      kind,
		Status:    TaskStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	metrics.TaskTransition(kind, string(TaskStatusPending))
}

// UpdateTaskStatus обновляет статус задачи
func (ts *TaskStore) UpdateTaskStatus(taskID string, status TaskStatus) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = status
	})
}

// UpdateTaskResult сохраняет результат и переводит задачу в статус 'completed'
func (ts *TaskStore) UpdateTaskResult(taskID string, result any) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = TaskStatusCompleted
		task.Result = result
	})
}

// UpdateTaskError сохраняет сообщение об ошибке и переводит задачу в статус 'failed'
func (ts *TaskStore) UpdateTaskError(taskID string, errorMessage string) error {
	return ts.update(taskID, func(task *Task) {
		task.Status = TaskStatusFailed
		task.ErrorMessage = errorMessage
	})
}

func (ts *TaskStore) update(taskID string, apply func(*Task)) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}

	apply(task)
	metrics.TaskTransition(task.Kind, string(task.Status))
	return nil
}

// GetTask возвращает копию задачи по ее ID
func (ts *TaskStore) GetTask(taskID string) (Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}

	return *task, nil
}

// Len возвращает число задач в хранилище
func (ts *TaskStore) Len() int {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	return len(ts.tasks)
}

// CleanupExpired удаляет просроченные задачи из хранилища
func (ts *TaskStore) CleanupExpired() int {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	removed := 0
	now := time.Now()
	for taskID, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			delete(ts.tasks, taskID)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}

package bot

import "sync"

// PendingTask - задача на бэкенде, результат которой ожидает чат.
type PendingTask struct {
	ID   string
	Kind string
}

// TaskStore - потокобезопасное in-memory хранилище для сопоставления
// идентификатора чата Telegram с ожидаемой задачей на бэкенд-сервере.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[int64]PendingTask // map[chatID]task
}

// NewTaskStore создает новый экземпляр TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]PendingTask),
	}
}

// Reserve занимает чат под новую задачу. Возвращает false, если у чата уже есть активная задача.
// Идентификатор задачи дописывается через Set после ответа бэкенда.
func (s *TaskStore) Reserve(chatID int64, kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.tasks[chatID]; busy {
		return false
	}
	s.tasks[chatID] = PendingTask{Kind: kind}
	return true
}

// Set сохраняет сопоставление chatID и задачи.
// Если для данного chatID уже существует задача, она будет перезаписана.
func (s *TaskStore) Set(chatID int64, task PendingTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[chatID] = task
}

// Get извлекает задачу для указанного chatID.
func (s *TaskStore) Get(chatID int64) (PendingTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[chatID]
	return task, ok
}

// Delete удаляет задачу для указанного chatID.
func (s *TaskStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, chatID)
}

package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// MemorySource реализует MessageSource поверх записей в памяти.
// Используется там, где файл экспорта не нужен: в тестах и для уже загруженных выборок.
type MemorySource struct {
	mu          sync.RWMutex
	meta        domain.ChatMetadata
	records     []domain.RecordResult
	unavailable bool
	opens       atomic.Int64
}

// NewMemorySource создает источник из готовых сообщений.
func NewMemorySource(meta domain.ChatMetadata, messages ...*domain.Message) *MemorySource {
	s := &MemorySource{meta: meta}
	for _, msg := range messages {
		s.Append(msg)
	}
	return s
}

// Append добавляет сообщение в конец потока.
func (s *MemorySource) Append(msg *domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, domain.RecordResult{Index: len(s.records), Message: msg})
}

// AppendSkipped добавляет пропущенную запись с указанной причиной.
func (s *MemorySource) AppendSkipped(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, domain.RecordResult{Index: len(s.records), Skipped: reason})
}

// SetUnavailable имитирует отсутствие файла экспорта.
func (s *MemorySource) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

// Opens возвращает число вызовов Iterate.
func (s *MemorySource) Opens() int {
	return int(s.opens.Load())
}

var _ ports.MessageSource = (*MemorySource)(nil)

func (s *MemorySource) Path() string {
	return "memory"
}

func (s *MemorySource) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unavailable
}

func (s *MemorySource) ReadMetadata(context.Context) domain.ChatMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return domain.ChatMetadata{Name: "Error", Type: "Error", Error: "данные не установлены"}
	}
	return s.meta
}

// Iterate возвращает итератор по снимку текущих записей.
func (s *MemorySource) Iterate(ctx context.Context) (ports.MessageIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unavailable {
		return nil, errors.New("данные не установлены")
	}
	s.opens.Add(1)

	snapshot := make([]domain.RecordResult, len(s.records))
	copy(snapshot, s.records)
	return &sliceIterator{ctx: ctx, records: snapshot, pos: -1}, nil
}

type sliceIterator struct {
	ctx     context.Context
	records []domain.RecordResult
	pos     int
	err     error
}

func (it *sliceIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	if it.pos+1 >= len(it.records) {
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Result() domain.RecordResult {
	if it.pos < 0 || it.pos >= len(it.records) {
		return domain.RecordResult{}
	}
	return it.records[it.pos]
}

func (it *sliceIterator) Err() error {
	return it.err
}

func (it *sliceIterator) Close() error {
	it.pos = len(it.records)
	return nil
}

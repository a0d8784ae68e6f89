package query

import (
	"context"
	"fmt"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// Unbounded означает отсутствие ограничения на число сообщений.
const Unbounded = -1

// Cursor выдает окна отфильтрованного потока сообщений.
// Каждый вызов открывает собственный итератор источника.
type Cursor struct {
	source ports.MessageSource
}

// NewCursor создает курсор поверх источника.
func NewCursor(source ports.MessageSource) *Cursor {
	return &Cursor{source: source}
}

// Each вызывает fn для принятых фильтром сообщений, пропуская первые skip.
// После limit сообщений чтение файла прекращается. limit == Unbounded читает поток до конца.
// Пропущенные (битые) записи в подсчете не участвуют.
func (c *Cursor) Each(ctx context.Context, filter *Filter, skip, limit int, fn func(*domain.Message) error) error {
	if filter == nil {
		filter = MatchAll()
	}
	if skip < 0 {
		skip = 0
	}
	if limit == 0 {
		return nil
	}

	it, err := c.source.Iterate(ctx)
	if err != nil {
		return fmt.Errorf("failed to open message stream: %w", err)
	}
	defer it.Close()

	accepted, yielded := 0, 0
	for it.Next() {
		res := it.Result()
		if !res.OK() || !filter.Match(res.Message) {
			continue
		}
		accepted++
		if accepted <= skip {
			continue
		}
		if err := fn(res.Message); err != nil {
			return err
		}
		yielded++
		if limit != Unbounded && yielded >= limit {
			return nil
		}
	}

	if err := it.Err(); err != nil {
		return fmt.Errorf("message stream interrupted: %w", err)
	}
	return nil
}

// Collect собирает окно сообщений в срез.
func (c *Cursor) Collect(ctx context.Context, filter *Filter, skip, limit int) ([]*domain.Message, error) {
	out := []*domain.Message{}
	err := c.Each(ctx, filter, skip, limit, func(msg *domain.Message) error {
		out = append(out, msg)
		return nil
	})
	return out, err
}

// Search читает весь отфильтрованный поток и возвращает окно [skip, skip+limit)
// вместе с общим числом совпадений.
func (c *Cursor) Search(ctx context.Context, filter *Filter, skip, limit int) ([]*domain.Message, int, error) {
	if skip < 0 {
		skip = 0
	}

	page := []*domain.Message{}
	total := 0
	err := c.Each(ctx, filter, 0, Unbounded, func(msg *domain.Message) error {
		total++
		if total > skip && (limit == Unbounded || len(page) < limit) {
			page = append(page, msg)
		}
		return nil
	})
	return page, total, err
}

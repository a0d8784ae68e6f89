package services

import (
	"context"
	"fmt"
	"time"

	"telegram-chat-analyzer/internal/core/query"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/metrics"
	"telegram-chat-analyzer/internal/ports"
)

const (
	userListKind = "user_list"

	// unknownAuthor - имя автора, у которого в экспорте нет поля from (удаленный аккаунт).
	unknownAuthor = "Unknown"
)

// UserService извлекает список авторов сообщений чата.
type UserService struct {
	source ports.MessageSource
	options
}

// NewUserService создает сервис списка пользователей.
func NewUserService(source ports.MessageSource, opts ...Option) *UserService {
	return &UserService{
		source:  source,
		options: newOptions(opts),
	}
}

// Users возвращает авторов в порядке первого появления вместе с числом их сообщений.
// Учитываются только записи с заполненным from_id.
func (s *UserService) Users(ctx context.Context) ([]domain.ChatUser, error) {
	var cached []domain.ChatUser
	if s.cache.Read(userListKind, &cached) {
		return cached, nil
	}

	start := time.Now()
	index := make(map[string]int)
	users := []domain.ChatUser{}
	err := query.NewCursor(s.source).Each(ctx, query.MatchAll(), 0, query.Unbounded, func(msg *domain.Message) error {
		if msg.FromID == "" {
			return nil
		}
		i, ok := index[msg.FromID]
		if !ok {
			i = len(users)
			index[msg.FromID] = i
			users = append(users, domain.ChatUser{ID: msg.FromID})
		}
		if users[i].Name == "" {
			users[i].Name = msg.FromName
		}
		users[i].MessageCount++
		return nil
	})
	metrics.ObserveAggregation(userListKind, start)
	if err != nil {
		metrics.AggregationFailed(userListKind)
		return nil, fmt.Errorf("failed to collect users: %w", err)
	}

	for i := range users {
		if users[i].Name == "" {
			users[i].Name = unknownAuthor
		}
	}

	s.logger.InfoContext(ctx, "Список пользователей собран", "users", len(users), "duration", time.Since(start))
	s.cache.Write(userListKind, users)
	return users, nil
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/domain"
)

func TestUserService_Users(t *testing.T) {
	ctx := context.Background()

	t.Run("авторы в порядке появления", func(t *testing.T) {
		users, err := NewUserService(chatSource()).Users(ctx)
		require.NoError(t, err)

		assert.Equal(t, []domain.ChatUser{
			{ID: "user1", Name: "Alice", MessageCount: 2},
			{ID: "user2", Name: "Bob", MessageCount: 2},
			{ID: "user3", Name: "Carol", MessageCount: 1},
		}, users)
	})

	t.Run("автор без имени", func(t *testing.T) {
		src := source.NewMemorySource(domain.ChatMetadata{},
			fixtureMessage{id: 1, fromID: "user9", text: "deleted"}.build(),
			fixtureMessage{id: 2, fromID: "user8", from: "Dan", text: "hi"}.build(),
		)

		users, err := NewUserService(src).Users(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "Unknown", users[0].Name)
		assert.Equal(t, "Dan", users[1].Name)
	})

	t.Run("пустой чат", func(t *testing.T) {
		users, err := NewUserService(source.NewMemorySource(domain.ChatMetadata{})).Users(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("список кэшируется", func(t *testing.T) {
		src := chatSource()
		c := newMemCache()
		svc := NewUserService(src, WithCache(c))

		first, err := svc.Users(ctx)
		require.NoError(t, err)
		second, err := svc.Users(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, src.Opens())
		assert.True(t, c.has("user_list"))
	})

	t.Run("ошибка источника", func(t *testing.T) {
		src := chatSource()
		src.SetUnavailable(true)

		_, err := NewUserService(src).Users(ctx)
		assert.Error(t, err)
	})
}

package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-analyzer/internal/adapters/nlp"
	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/core/services"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/config"
	"telegram-chat-analyzer/internal/ports"
)

type fixedCounter struct {
	n     int
	calls atomic.Int32
}

func (c *fixedCounter) Count(context.Context) int {
	c.calls.Add(1)
	return c.n
}

func message(id int64, from, date, text string) *domain.Message {
	msg := &domain.Message{
		ID:       id,
		Type:     domain.MessageTypeMessage,
		FromID:   from,
		FromName: "Name " + from,
		Date:     date,
	}
	raw, _ := json.Marshal(text)
	msg.SetText(raw)
	return msg
}

// newTestUseCase собирает сценарий с 30 сообщениями: нечетные от user1, четные от user2.
// Каждое третье сообщение содержит слово "release".
func newTestUseCase(t *testing.T, maxPage int) (*ChatUseCase, *source.MemorySource, *fixedCounter) {
	t.Helper()

	src := source.NewMemorySource(domain.ChatMetadata{Name: "Team", Type: domain.ChatTypeSupergroup, ID: 42})
	for i := 1; i <= 30; i++ {
		from := "user1"
		if i%2 == 0 {
			from = "user2"
		}
		text := fmt.Sprintf("message %d", i)
		if i%3 == 0 {
			text = fmt.Sprintf("Release notes %d", i)
		}
		src.Append(message(int64(i), from, fmt.Sprintf("2023-03-%02dT08:00:00", i), text))
	}

	cfg := &config.Config{Processing: config.Processing{DefaultSampleSize: 100, MaxPageSize: maxPage}}
	processor := nlp.NewProcessor()
	counter := &fixedCounter{n: 31}
	uc := NewChatUseCase(cfg, src, counter,
		services.NewAnalyticsService(src, processor),
		services.NewProfileService(src, processor),
		services.NewUserService(src),
		nil,
	)
	return uc, src, counter
}

func ids(messages []*domain.Message) []int64 {
	out := make([]int64, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

func TestChatUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("информация о чате", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		info, err := uc.GetChatInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Team", info.Name)
		assert.Equal(t, int64(42), info.ID)
		assert.Equal(t, 31, info.TotalMessages)
	})

	t.Run("страница сообщений", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		page, err := uc.StreamMessages(ctx, domain.FilterSpec{UserIDs: []string{"user2"}}, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, []int64{6, 8, 10}, ids(page.Messages))
		assert.Equal(t, 31, page.Total)
		assert.True(t, page.Approximate)
		assert.Equal(t, 2, page.Offset)
		assert.Equal(t, 3, page.Limit)
	})

	t.Run("запрос в ленте игнорируется", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		page, err := uc.StreamMessages(ctx, domain.FilterSpec{Query: "("}, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, ids(page.Messages))
	})

	t.Run("лимит ограничивается", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 5)

		page, err := uc.StreamMessages(ctx, domain.FilterSpec{}, -3, 50)
		require.NoError(t, err)
		assert.Len(t, page.Messages, 5)
		assert.Equal(t, 0, page.Offset)
		assert.Equal(t, 5, page.Limit)
	})

	t.Run("поиск без учета регистра", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		res, err := uc.SearchMessages(ctx, domain.FilterSpec{Query: "release"}, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, "release", res.Query)
		assert.Equal(t, 10, res.TotalCount)
		assert.Equal(t, []int64{6, 9}, ids(res.Messages))
	})

	t.Run("поиск с фильтром автора", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		res, err := uc.SearchMessages(ctx, domain.FilterSpec{Query: "release", UserIDs: []string{"user1"}}, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, 5, res.TotalCount)
		assert.Equal(t, []int64{3, 9, 15, 21, 27}, ids(res.Messages))
	})

	t.Run("некорректный поиск", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		_, err := uc.SearchMessages(ctx, domain.FilterSpec{Query: "  "}, 0, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)

		_, err = uc.SearchMessages(ctx, domain.FilterSpec{Query: "(unclosed"}, 0, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)

		_, err = uc.SearchMessages(ctx, domain.FilterSpec{Query: "x", DateFrom: "yesterday"}, 0, 10)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	})

	t.Run("пользователи и их сообщения", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		users, err := uc.GetUserList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.ChatUser{
			{ID: "user1", Name: "Name user1", MessageCount: 15},
			{ID: "user2", Name: "Name user2", MessageCount: 15},
		}, users)

		msgs, err := uc.GetUserMessages(ctx, "user1", 13, 10)
		require.NoError(t, err)
		assert.Equal(t, "user1", msgs.UserID)
		assert.Equal(t, []int64{27, 29}, ids(msgs.Messages))
		assert.Equal(t, 2, msgs.Count)
	})

	t.Run("профиль неизвестного пользователя", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		p, err := uc.GetUserProfile(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, services.UnknownUserName, p.Name)
		assert.Zero(t, p.MessageCount)
	})

	t.Run("профиль пользователя", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		p, err := uc.GetUserProfile(ctx, "user2")
		require.NoError(t, err)
		assert.Equal(t, 15, p.MessageCount)
		assert.Equal(t, "2023-03-02T08:00:00", p.FirstMessageDate)
		assert.Equal(t, "2023-03-30T08:00:00", p.LastMessageDate)
		assert.Equal(t, 15, p.ActiveDays)
		assert.NotEmpty(t, p.Summary)
	})

	t.Run("аналитика", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		a, err := uc.GetChatAnalytics(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 100, a.SampleSize)
		assert.Equal(t, 30, a.TotalMessages)
		assert.Equal(t, 2, a.ActiveUsers)
		require.Len(t, a.PeakDays, 30)
		assert.Equal(t, "2023-03-01", a.PeakDays[0].Date)
		assert.Equal(t, []domain.HourCount{{Hour: 8, Count: 30}}, a.PeakHours)
	})

	t.Run("одновременные запросы профиля", func(t *testing.T) {
		uc, _, _ := newTestUseCase(t, 100)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p, err := uc.GetUserProfile(ctx, "user1")
				assert.NoError(t, err)
				assert.Equal(t, 15, p.MessageCount)
			}()
		}
		wg.Wait()
	})

	t.Run("файл недоступен", func(t *testing.T) {
		uc, src, counter := newTestUseCase(t, 100)
		src.SetUnavailable(true)

		assert.False(t, uc.SourceAvailable())

		_, err := uc.GetChatInfo(ctx)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		_, err = uc.StreamMessages(ctx, domain.FilterSpec{}, 0, 10)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		_, err = uc.SearchMessages(ctx, domain.FilterSpec{Query: "x"}, 0, 10)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		_, err = uc.GetUserList(ctx)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		_, err = uc.GetUserProfile(ctx, "user1")
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		_, err = uc.GetUserMessages(ctx, "user1", 0, 10)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
		_, err = uc.GetChatAnalytics(ctx, 10)
		assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

		assert.Zero(t, counter.calls.Load())
		assert.Zero(t, src.Opens())
	})
}

// gatedSource задерживает открытие потока до закрытия release.
type gatedSource struct {
	*source.MemorySource
	started     chan struct{}
	startedOnce sync.Once
	release     chan struct{}
}

func (s *gatedSource) Iterate(ctx context.Context) (ports.MessageIterator, error) {
	s.startedOnce.Do(func() { close(s.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.release:
	}
	return s.MemorySource.Iterate(ctx)
}

func TestChatUseCase_SharedAnalyticsSurvivesCallerCancel(t *testing.T) {
	base, src, counter := newTestUseCase(t, 100)
	gated := &gatedSource{MemorySource: src, started: make(chan struct{}), release: make(chan struct{})}
	processor := nlp.NewProcessor()
	uc := NewChatUseCase(base.cfg, gated, counter,
		services.NewAnalyticsService(gated, processor),
		services.NewProfileService(gated, processor),
		services.NewUserService(gated),
		nil,
	)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := uc.GetChatAnalytics(ctxA, 100)
		errA <- err
	}()
	<-gated.started

	resB := make(chan *domain.ChatAnalytics, 1)
	go func() {
		a, err := uc.GetChatAnalytics(context.Background(), 100)
		assert.NoError(t, err)
		resB <- a
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("отмененный вызов не вернулся")
	}

	close(gated.release)
	select {
	case a := <-resB:
		require.NotNil(t, a)
		assert.Equal(t, 30, a.TotalMessages)
		assert.Equal(t, 2, a.ActiveUsers)
	case <-time.After(5 * time.Second):
		t.Fatal("общий расчет не завершился")
	}
}

func TestChatUseCase_SharedProfileSurvivesCallerCancel(t *testing.T) {
	base, src, counter := newTestUseCase(t, 100)
	gated := &gatedSource{MemorySource: src, started: make(chan struct{}), release: make(chan struct{})}
	processor := nlp.NewProcessor()
	uc := NewChatUseCase(base.cfg, gated, counter,
		services.NewAnalyticsService(gated, processor),
		services.NewProfileService(gated, processor),
		services.NewUserService(gated),
		nil,
	)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := uc.GetUserProfile(ctxA, "user1")
		errA <- err
	}()
	<-gated.started

	resB := make(chan int, 1)
	go func() {
		p, err := uc.GetUserProfile(context.Background(), "user1")
		if !assert.NoError(t, err) {
			resB <- -1
			return
		}
		resB <- p.MessageCount
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(gated.release)
	select {
	case n := <-resB:
		assert.Equal(t, 15, n)
	case <-time.After(5 * time.Second):
		t.Fatal("общий расчет не завершился")
	}
}

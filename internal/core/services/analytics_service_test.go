package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/cache"
	"telegram-chat-analyzer/internal/domain"
)

func TestAnalyticsService_ChatAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("рейтинги по полному проходу", func(t *testing.T) {
		nlp := &fakeNLP{topics: []domain.Topic{{Topic: "golang", Weight: 0.5}}}
		svc := NewAnalyticsService(chatSource(), nlp)

		got := svc.ChatAnalytics(ctx, 100)

		assert.Equal(t, 6, got.TotalMessages)
		assert.Equal(t, 3, got.ActiveUsers)
		assert.Equal(t, 100, got.SampleSize)
		assert.Equal(t, []domain.UserCount{
			{UserID: "user1", Name: "Alice", Count: 2},
			{UserID: "user2", Name: "Bob", Count: 2},
			{UserID: "user3", Name: "Carol", Count: 1},
		}, got.MostActiveUsers)
		assert.Equal(t, []domain.UserCount{{UserID: "user1", Name: "Alice", Count: 3}}, got.EmojiUsers)
		assert.Equal(t, []domain.UserCount{{UserID: "user2", Name: "Bob", Count: 2}}, got.MediaUsers)
		assert.Equal(t, []domain.UserCount{{UserID: "user2", Name: "Bob", Count: 1}}, got.LongMessageUsers)
		assert.Equal(t, []domain.UserCount{{UserID: "user1", Name: "Alice", Count: 1}}, got.ForwardingUsers)
	})

	t.Run("распределения по выборке", func(t *testing.T) {
		nlp := &fakeNLP{topics: []domain.Topic{{Topic: "golang", Weight: 0.5}}}
		svc := NewAnalyticsService(chatSource(), nlp)

		got := svc.ChatAnalytics(ctx, 100)

		assert.Equal(t, []domain.HourCount{{Hour: 10, Count: 3}, {Hour: 11, Count: 1}, {Hour: 23, Count: 1}}, got.PeakHours)
		assert.Equal(t, []domain.DayCount{
			{Date: "2023-01-02", Count: 2},
			{Date: "2023-01-03", Count: 2},
			{Date: "2023-01-04", Count: 1},
		}, got.PeakDays)
		assert.Equal(t, map[int]int{0: 2, 1: 2, 2: 1}, got.ActiveWeekdays)
		assert.Equal(t, nlp.topics, got.TopTopics)

		require.Len(t, nlp.topicTexts, 1)
		assert.Equal(t, []int{10}, nlp.topicK)
		assert.True(t, strings.HasPrefix(nlp.topicTexts[0], "Hello 😀 https://go.dev "))
		assert.True(t, strings.HasSuffix(nlp.topicTexts[0], " :smile: :wave: hi anon ok"))
	})

	t.Run("размер выборки не влияет на рейтинги", func(t *testing.T) {
		svc := NewAnalyticsService(chatSource(), &fakeNLP{})

		got := svc.ChatAnalytics(ctx, 2)

		assert.Equal(t, 6, got.TotalMessages)
		assert.Len(t, got.MostActiveUsers, 3)
		assert.Equal(t, []domain.HourCount{{Hour: 10, Count: 1}, {Hour: 11, Count: 1}}, got.PeakHours)
		assert.NotNil(t, got.TopTopics)
	})

	t.Run("дни ранжируются по объему, затем по дате", func(t *testing.T) {
		src := source.NewMemorySource(domain.ChatMetadata{})
		id := int64(0)
		add := func(date string) {
			id++
			src.Append(fixtureMessage{id: id, fromID: "user1", date: date, text: "x"}.build())
		}
		for day := 1; day <= 31; day++ {
			add(fmt.Sprintf("2023-01-%02dT12:00:00", day))
		}
		for i := 0; i < 3; i++ {
			add("2023-02-01T12:00:00")
		}

		got := NewAnalyticsService(src, &fakeNLP{}).ChatAnalytics(ctx, 1000)

		require.Len(t, got.PeakDays, 30)
		assert.Equal(t, "2023-01-01", got.PeakDays[0].Date)
		assert.Equal(t, "2023-01-29", got.PeakDays[28].Date)
		assert.Equal(t, domain.DayCount{Date: "2023-02-01", Count: 3}, got.PeakDays[29])
	})

	t.Run("результат кэшируется по размеру выборки", func(t *testing.T) {
		src := chatSource()
		c := newMemCache()
		svc := NewAnalyticsService(src, &fakeNLP{}, WithCache(c))

		first := svc.ChatAnalytics(ctx, 50)
		assert.Equal(t, 2, src.Opens())
		assert.True(t, c.has(cache.Key("chat_analytics", 50)))

		second := svc.ChatAnalytics(ctx, 50)
		assert.Equal(t, 2, src.Opens())
		assert.Equal(t, first, second)

		svc.ChatAnalytics(ctx, 60)
		assert.Equal(t, 4, src.Opens())
	})

	t.Run("размер выборки по умолчанию", func(t *testing.T) {
		got := NewAnalyticsService(chatSource(), &fakeNLP{}).ChatAnalytics(ctx, 0)
		assert.Equal(t, DefaultSampleSize, got.SampleSize)
	})

	t.Run("недоступный источник дает нулевую статистику", func(t *testing.T) {
		src := chatSource()
		src.SetUnavailable(true)
		c := newMemCache()

		got := NewAnalyticsService(src, &fakeNLP{}, WithCache(c)).ChatAnalytics(ctx, 100)

		assert.Equal(t, domain.EmptyChatAnalytics(100), got)
		assert.Zero(t, c.writes)
	})

	t.Run("паника превращается в нулевую статистику", func(t *testing.T) {
		got := NewAnalyticsService(chatSource(), &fakeNLP{panicOnTopics: true}).ChatAnalytics(ctx, 100)
		assert.Equal(t, domain.EmptyChatAnalytics(100), got)
	})

	t.Run("отмененный контекст", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		got := NewAnalyticsService(chatSource(), &fakeNLP{}).ChatAnalytics(cctx, 100)
		assert.Zero(t, got.TotalMessages)
		assert.Empty(t, got.MostActiveUsers)
	})
}

func TestAnalyticsService_TiedRanking(t *testing.T) {
	ctx := context.Background()

	tiedChat := func(users, perUser int) *source.MemorySource {
		src := source.NewMemorySource(domain.ChatMetadata{})
		id := int64(0)
		for round := 0; round < perUser; round++ {
			for u := 1; u <= users; u++ {
				id++
				src.Append(fixtureMessage{
					id:     id,
					fromID: fmt.Sprintf("user%02d", u),
					from:   fmt.Sprintf("User %02d", u),
					date:   fmt.Sprintf("2023-01-%02dT10:00:00", round+1),
					text:   "hi",
				}.build())
			}
		}
		return src
	}
	sum := func(counts []domain.UserCount) int {
		total := 0
		for _, c := range counts {
			total += c.Count
		}
		return total
	}

	t.Run("равные счетчики обрезаются до 20 в порядке появления", func(t *testing.T) {
		got := NewAnalyticsService(tiedChat(25, 2), &fakeNLP{}).ChatAnalytics(ctx, 100)

		assert.Equal(t, 50, got.TotalMessages)
		assert.Equal(t, 25, got.ActiveUsers)
		require.Len(t, got.MostActiveUsers, 20)
		for i, uc := range got.MostActiveUsers {
			assert.Equal(t, domain.UserCount{
				UserID: fmt.Sprintf("user%02d", i+1),
				Name:   fmt.Sprintf("User %02d", i+1),
				Count:  2,
			}, uc)
		}
		assert.Less(t, sum(got.MostActiveUsers), got.TotalMessages)
	})

	t.Run("повторный расчет дает тот же рейтинг", func(t *testing.T) {
		first := NewAnalyticsService(tiedChat(25, 2), &fakeNLP{}).ChatAnalytics(ctx, 100)
		second := NewAnalyticsService(tiedChat(25, 2), &fakeNLP{}).ChatAnalytics(ctx, 100)
		assert.Equal(t, first.MostActiveUsers, second.MostActiveUsers)
	})

	t.Run("без обрезки сумма равна числу сообщений", func(t *testing.T) {
		got := NewAnalyticsService(tiedChat(5, 3), &fakeNLP{}).ChatAnalytics(ctx, 100)

		require.Len(t, got.MostActiveUsers, 5)
		assert.Equal(t, "user01", got.MostActiveUsers[0].UserID)
		assert.Equal(t, "user05", got.MostActiveUsers[4].UserID)
		assert.Equal(t, got.TotalMessages, sum(got.MostActiveUsers))
	})
}

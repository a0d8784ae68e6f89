package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"telegram-chat-analyzer/internal/cache"
	"telegram-chat-analyzer/internal/core/query"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/metrics"
	"telegram-chat-analyzer/internal/pkg/rank"
	"telegram-chat-analyzer/internal/pkg/textutil"
	"telegram-chat-analyzer/internal/ports"
)

// DefaultSampleSize - размер выборки для временных распределений и тем по умолчанию.
const DefaultSampleSize = 10000

const (
	analyticsKind = "chat_analytics"

	rankingSize      = 20
	peakHoursSize    = 24
	peakDaysSize     = 30
	topicTextsLimit  = 1000
	chatTopicsCount  = 10
	longMessageRunes = 200
	dayLayout        = "2006-01-02"
)

// AnalyticsService считает статистику по чату за два независимых прохода:
// полный проход для точных рейтингов участников и выборочный для времени и тем.
type AnalyticsService struct {
	source ports.MessageSource
	nlp    ports.NLPProcessor
	options
}

// NewAnalyticsService создает сервис аналитики.
func NewAnalyticsService(source ports.MessageSource, nlp ports.NLPProcessor, opts ...Option) *AnalyticsService {
	return &AnalyticsService{
		source:  source,
		nlp:     nlp,
		options: newOptions(opts),
	}
}

// ChatAnalytics возвращает статистику по чату. Ошибки не возвращаются:
// при любом сбое метод логирует его и отдает нулевую статистику.
func (s *AnalyticsService) ChatAnalytics(ctx context.Context, sampleSize int) *domain.ChatAnalytics {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	key := cache.Key(analyticsKind, sampleSize)
	var cached domain.ChatAnalytics
	if s.cache.Read(key, &cached) {
		s.logger.DebugContext(ctx, "Аналитика загружена из кэша", "key", key)
		return &cached
	}

	start := time.Now()
	result, err := s.compute(ctx, sampleSize)
	metrics.ObserveAggregation(analyticsKind, start)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error generating chat analytics", "sample_size", sampleSize, "error", err)
		metrics.AggregationFailed(analyticsKind)
		return domain.EmptyChatAnalytics(sampleSize)
	}

	s.logger.InfoContext(ctx, "Аналитика по чату построена",
		"total_messages", result.TotalMessages,
		"active_users", result.ActiveUsers,
		"sample_size", sampleSize,
		"duration", time.Since(start),
	)
	s.cache.Write(key, result)
	return result
}

func (s *AnalyticsService) compute(ctx context.Context, sampleSize int) (result *domain.ChatAnalytics, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("aggregation panicked: %v", r)
		}
	}()

	var (
		users  *userTally
		sample *sampleTally
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(recovered("full pass", func() error {
		var err error
		users, err = s.fullPass(gctx)
		return err
	}))
	g.Go(recovered("sample pass", func() error {
		var err error
		sample, err = s.samplePass(gctx, sampleSize)
		return err
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result = domain.EmptyChatAnalytics(sampleSize)
	result.TotalMessages = users.total
	result.ActiveUsers = users.messages.Len()
	result.MostActiveUsers = users.ranking(users.messages)
	result.EmojiUsers = users.ranking(users.emoji)
	result.MediaUsers = users.ranking(users.media)
	result.LongMessageUsers = users.ranking(users.long)
	result.ForwardingUsers = users.ranking(users.forwarded)

	for _, e := range sample.hours.MostCommon(peakHoursSize) {
		result.PeakHours = append(result.PeakHours, domain.HourCount{Hour: e.Key, Count: e.Count})
	}
	for _, e := range sample.days.MostCommon(peakDaysSize) {
		result.PeakDays = append(result.PeakDays, domain.DayCount{Date: e.Key, Count: e.Count})
	}
	sort.SliceStable(result.PeakDays, func(i, j int) bool {
		return result.PeakDays[i].Date < result.PeakDays[j].Date
	})
	for _, e := range sample.weekdays.Entries() {
		result.ActiveWeekdays[e.Key] = e.Count
	}

	if len(sample.texts) > 0 {
		if topics := s.nlp.ExtractTopics(strings.Join(sample.texts, " "), chatTopicsCount); topics != nil {
			result.TopTopics = topics
		}
	}

	return result, nil
}

// userTally - счетчики полного прохода по авторам.
type userTally struct {
	total     int
	names     map[string]string
	messages  *rank.Counter[string]
	emoji     *rank.Counter[string]
	media     *rank.Counter[string]
	long      *rank.Counter[string]
	forwarded *rank.Counter[string]
}

func newUserTally() *userTally {
	return &userTally{
		names:     make(map[string]string),
		messages:  rank.NewCounter[string](),
		emoji:     rank.NewCounter[string](),
		media:     rank.NewCounter[string](),
		long:      rank.NewCounter[string](),
		forwarded: rank.NewCounter[string](),
	}
}

func (t *userTally) add(msg *domain.Message) {
	t.total++
	id := msg.FromID
	if id == "" {
		return
	}
	if t.names[id] == "" {
		t.names[id] = msg.FromName
	}

	text := msg.NormalizedText()
	t.messages.Inc(id)
	if n := textutil.CountEmoji(text); n > 0 {
		t.emoji.Add(id, n)
	}
	if msg.HasMedia() {
		t.media.Inc(id)
	}
	if textutil.RuneLen(text) > longMessageRunes {
		t.long.Inc(id)
	}
	if msg.ForwardedFrom != "" {
		t.forwarded.Inc(id)
	}
}

func (t *userTally) ranking(counter *rank.Counter[string]) []domain.UserCount {
	top := counter.MostCommon(rankingSize)
	out := make([]domain.UserCount, 0, len(top))
	for _, e := range top {
		out = append(out, domain.UserCount{UserID: e.Key, Name: t.names[e.Key], Count: e.Count})
	}
	return out
}

func (s *AnalyticsService) fullPass(ctx context.Context) (*userTally, error) {
	tally := newUserTally()
	err := query.NewCursor(s.source).Each(ctx, query.MatchAll(), 0, query.Unbounded, func(msg *domain.Message) error {
		if !msg.IsService() {
			tally.add(msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("full pass failed: %w", err)
	}
	return tally, nil
}

// sampleTally - счетчики выборочного прохода.
type sampleTally struct {
	hours    *rank.Counter[int]
	days     *rank.Counter[string]
	weekdays *rank.Counter[int]
	texts    []string
}

func (s *AnalyticsService) samplePass(ctx context.Context, sampleSize int) (*sampleTally, error) {
	tally := &sampleTally{
		hours:    rank.NewCounter[int](),
		days:     rank.NewCounter[string](),
		weekdays: rank.NewCounter[int](),
	}

	err := query.NewCursor(s.source).Each(ctx, query.MatchAll(), 0, sampleSize, func(msg *domain.Message) error {
		if msg.IsService() {
			return nil
		}
		if date, err := msg.ParsedDate(); err == nil {
			tally.hours.Inc(date.Hour())
			tally.days.Inc(date.Format(dayLayout))
			tally.weekdays.Inc(domain.MondayWeekday(date))
		}
		if text := msg.NormalizedText(); text != "" && len(tally.texts) < topicTextsLimit {
			tally.texts = append(tally.texts, text)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sample pass failed: %w", err)
	}
	return tally, nil
}

// recovered превращает панику внутри прохода в ошибку.
func recovered(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn()
	}
}

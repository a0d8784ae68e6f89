package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/core/query"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/metrics"
	"telegram-chat-analyzer/internal/pkg/rank"
	"telegram-chat-analyzer/internal/pkg/textutil"
	"telegram-chat-analyzer/internal/ports"
)

// UnknownUserName - имя в профиле пользователя без сообщений.
const UnknownUserName = "Unknown User"

const (
	profileKind = "user_profile"

	sentimentTextsLimit = 100
	profileTextsLimit   = 200
	profileTopicsCount  = 5
	summaryTopicsCount  = 3
)

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ProfileService строит профиль активности одного участника полным проходом по файлу.
type ProfileService struct {
	source ports.MessageSource
	nlp    ports.NLPProcessor
	options
}

// NewProfileService создает сервис профилей.
func NewProfileService(source ports.MessageSource, nlp ports.NLPProcessor, opts ...Option) *ProfileService {
	return &ProfileService{
		source:  source,
		nlp:     nlp,
		options: newOptions(opts),
	}
}

// ProfileCacheKey возвращает ключ кэша для профиля пользователя.
func ProfileCacheKey(userID string) string {
	return profileKind + "_" + userID
}

// UserProfile возвращает профиль пользователя. Пользователь без сообщений
// получает пустой профиль с именем UnknownUserName; такой профиль не кэшируется.
func (s *ProfileService) UserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	key := ProfileCacheKey(userID)
	var cached domain.UserProfile
	if s.cache.Read(key, &cached) {
		s.logger.DebugContext(ctx, "Профиль загружен из кэша", "user_id", userID)
		return &cached, nil
	}

	start := time.Now()
	acc := newProfileAccumulator(userID)
	err := query.NewCursor(s.source).Each(ctx, query.ForUser(userID), 0, query.Unbounded, func(msg *domain.Message) error {
		acc.add(msg)
		return nil
	})
	metrics.ObserveAggregation(profileKind, start)
	if err != nil {
		metrics.AggregationFailed(profileKind)
		return nil, fmt.Errorf("failed to build profile for %s: %w", userID, err)
	}

	if acc.count == 0 {
		s.logger.InfoContext(ctx, "Сообщения пользователя не найдены", "user_id", userID)
		return emptyProfile(userID), nil
	}

	profile := acc.profile()
	profile.Sentiment = s.nlp.AnalyzeSentiment(strings.Join(head(acc.texts, sentimentTextsLimit), " "))
	profile.Topics = s.nlp.ExtractTopics(strings.Join(head(acc.texts, profileTextsLimit), " "), profileTopicsCount)
	if profile.Topics == nil {
		profile.Topics = []domain.Topic{}
	}
	profile.Summary = summarize(profile, acc)

	s.logger.InfoContext(ctx, "Профиль пользователя построен",
		"user_id", userID,
		"messages", profile.MessageCount,
		"duration", time.Since(start),
	)
	s.cache.Write(key, profile)
	return profile, nil
}

func emptyProfile(userID string) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:         userID,
		Name:           UnknownUserName,
		ActiveHours:    map[int]int{},
		ActiveWeekdays: map[int]int{},
		Topics:         []domain.Topic{},
		MediaCount:     map[string]int{},
	}
}

// profileAccumulator накапливает показатели по сообщениям одного пользователя.
type profileAccumulator struct {
	userID    string
	name      string
	count     int
	textRunes int
	emoji     int
	links     int
	forwarded int
	media     *rank.Counter[string]
	hours     *rank.Counter[int]
	weekdays  *rank.Counter[int]
	days      map[string]struct{}
	first     time.Time
	firstRaw  string
	last      time.Time
	lastRaw   string
	texts     []string
}

func newProfileAccumulator(userID string) *profileAccumulator {
	return &profileAccumulator{
		userID:   userID,
		media:    rank.NewCounter[string](),
		hours:    rank.NewCounter[int](),
		weekdays: rank.NewCounter[int](),
		days:     make(map[string]struct{}),
	}
}

func (a *profileAccumulator) add(msg *domain.Message) {
	a.count++
	if a.name == "" {
		a.name = msg.FromName
	}

	if date, err := msg.ParsedDate(); err == nil {
		if a.firstRaw == "" || date.Before(a.first) {
			a.first, a.firstRaw = date, msg.Date
		}
		if a.lastRaw == "" || date.After(a.last) {
			a.last, a.lastRaw = date, msg.Date
		}
		a.days[date.Format(dayLayout)] = struct{}{}
		a.hours.Inc(date.Hour())
		a.weekdays.Inc(domain.MondayWeekday(date))
	}

	if msg.MediaType != "" {
		a.media.Inc(msg.MediaType)
	}
	if msg.Photo != "" {
		a.media.Inc("photo")
	}
	if msg.ForwardedFrom != "" {
		a.forwarded++
	}

	text := msg.NormalizedText()
	a.textRunes += textutil.RuneLen(text)
	a.emoji += textutil.CountEmoji(text)
	a.links += textutil.CountLinks(text)
	if len(a.texts) < profileTextsLimit {
		a.texts = append(a.texts, text)
	}
}

func (a *profileAccumulator) profile() *domain.UserProfile {
	p := emptyProfile(a.userID)
	p.Name = a.name
	if p.Name == "" {
		p.Name = UnknownUserName
	}
	p.MessageCount = a.count
	p.FirstMessageDate = a.firstRaw
	p.LastMessageDate = a.lastRaw
	p.ActiveDays = len(a.days)
	p.AvgMessageLength = float64(a.textRunes) / float64(a.count)
	p.EmojiCount = a.emoji
	p.LinkCount = a.links
	p.ForwardedCount = a.forwarded
	for _, e := range a.hours.Entries() {
		p.ActiveHours[e.Key] = e.Count
	}
	for _, e := range a.weekdays.Entries() {
		p.ActiveWeekdays[e.Key] = e.Count
	}
	for _, e := range a.media.Entries() {
		p.MediaCount[e.Key] = e.Count
	}
	return p
}

// summarize составляет текстовое описание профиля. Порядок предложений фиксирован.
func summarize(p *domain.UserProfile, a *profileAccumulator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s has sent %d messages over %d days. ", p.Name, p.MessageCount, p.ActiveDays)

	topHour := a.hours.MostCommon(1)
	topDay := a.weekdays.MostCommon(1)
	if len(topHour) > 0 && len(topDay) > 0 {
		fmt.Fprintf(&b, "Most active on %s around %d:00. ", weekdayNames[topDay[0].Key], topHour[0].Key)
	}

	fmt.Fprintf(&b, "Typically writes %s and %s. ", messageStyle(p.AvgMessageLength), mediaStyle(a.media.Total(), p.MessageCount))

	if p.EmojiCount > 0 {
		rate := float64(p.EmojiCount) / float64(p.MessageCount)
		switch {
		case rate > 0.5:
			b.WriteString("Uses emojis very frequently. ")
		case rate > 0.2:
			b.WriteString("Uses emojis regularly. ")
		}
	}
	if p.LinkCount > 0 {
		fmt.Fprintf(&b, "Has shared %d links. ", p.LinkCount)
	}
	if p.ForwardedCount > 0 {
		fmt.Fprintf(&b, "Has forwarded %d messages. ", p.ForwardedCount)
	}

	topics := "various topics"
	if len(p.Topics) > 0 {
		names := make([]string, 0, summaryTopicsCount)
		for _, t := range head(p.Topics, summaryTopicsCount) {
			names = append(names, t.Topic)
		}
		topics = strings.Join(names, ", ")
	}

	sentiment := "shows mixed sentiment"
	if label, score := p.Sentiment.Dominant(); score > 0.5 {
		sentiment = "generally " + label
	}
	fmt.Fprintf(&b, "Primarily discusses %s and %s.", topics, sentiment)

	return b.String()
}

func messageStyle(avgLen float64) string {
	switch {
	case avgLen < 20:
		return "short, concise messages"
	case avgLen < 100:
		return "moderate-length messages"
	default:
		return "lengthy, detailed messages"
	}
}

func mediaStyle(media, messages int) string {
	pct := 0.0
	if messages > 0 {
		pct = float64(media) / float64(messages) * 100
	}
	switch {
	case pct > 30:
		return "frequently shares media"
	case pct > 10:
		return "occasionally shares media"
	default:
		return "rarely shares media"
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

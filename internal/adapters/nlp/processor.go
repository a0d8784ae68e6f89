// Package nlp реализует извлечение тем и оценку тональности без внешних сервисов.
package nlp

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/rank"
	"telegram-chat-analyzer/internal/pkg/textutil"
	"telegram-chat-analyzer/internal/ports"
)

// minTopicTextLen - текст короче этого числа символов не анализируется на темы.
const minTopicTextLen = 50

// Processor извлекает темы по частоте терминов и оценивает тональность по словарю.
// Текст разбивается на слова по UAX #29; подряд идущие иероглифы дают биграммы.
type Processor struct {
	logger    *slog.Logger
	stopwords map[string]struct{}
	positive  map[string]struct{}
	negative  map[string]struct{}
}

// Option определяет функциональную опцию для Processor.
type Option func(*Processor)

// WithLogger устанавливает логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithStopwords добавляет стоп-слова к встроенному списку.
func WithStopwords(extra ...string) Option {
	return func(p *Processor) {
		for _, w := range extra {
			p.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// NewProcessor создает Processor со встроенными словарями (en, ru, zh).
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		logger:    slog.Default(),
		stopwords: make(map[string]struct{}, len(defaultStopwords)),
		positive:  positiveWords,
		negative:  negativeWords,
	}
	for w := range defaultStopwords {
		p.stopwords[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ports.NLPProcessor = (*Processor)(nil)

// ExtractTopics возвращает k самых частых терминов с весом, равным их доле среди всех терминов.
// Стоп-слова и односимвольные термины отбрасываются.
func (p *Processor) ExtractTopics(text string, k int) []domain.Topic {
	topics := []domain.Topic{}
	if k <= 0 {
		return topics
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < minTopicTextLen {
		p.logger.Debug("Текст слишком короткий для выделения тем", "runes", n, "min", minTopicTextLen)
		return topics
	}

	counter := rank.NewCounter[string]()
	for _, term := range p.terms(text, false) {
		if utf8.RuneCountInString(term) <= 1 {
			continue
		}
		if _, stop := p.stopwords[term]; stop {
			continue
		}
		counter.Inc(term)
	}

	total := counter.Total()
	if total == 0 {
		return topics
	}
	for _, e := range counter.MostCommon(k) {
		topics = append(topics, domain.Topic{Topic: e.Key, Weight: float64(e.Count) / float64(total)})
	}
	return topics
}

// AnalyzeSentiment считает доли позитивных и негативных слов среди найденных в словаре.
// Пустой текст нейтрален; текст без словарных слов получает слабую нейтральную оценку.
func (p *Processor) AnalyzeSentiment(text string) domain.Sentiment {
	if strings.TrimSpace(text) == "" {
		return domain.Sentiment{Positive: 0, Negative: 0, Neutral: 1}
	}

	pos, neg := 0, 0
	for _, term := range p.terms(text, true) {
		if _, ok := p.positive[term]; ok {
			pos++
		}
		if _, ok := p.negative[term]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return domain.Sentiment{Positive: 0.1, Negative: 0.1, Neutral: 0.8}
	}

	positive := float64(pos) / float64(total)
	negative := float64(neg) / float64(total)
	return domain.Sentiment{
		Positive: positive,
		Negative: negative,
		Neutral:  max(0, 1-positive-negative),
	}
}

// terms разбивает текст на термины в нижнем регистре. Ссылки и шорткоды удаляются.
// Для последовательностей иероглифов выдаются биграммы, а с withUnigrams и отдельные иероглифы.
func (p *Processor) terms(text string, withUnigrams bool) []string {
	text = textutil.StripNoise(text)

	var (
		out     []string
		han     []rune
		lastEnd = -1
	)
	flushHan := func() {
		switch {
		case len(han) == 1:
			out = append(out, string(han))
		case len(han) > 1:
			for i := 0; i+1 < len(han); i++ {
				out = append(out, string(han[i:i+2]))
			}
			if withUnigrams {
				for _, r := range han {
					out = append(out, string(r))
				}
			}
		}
		han = han[:0]
	}

	iter := words.FromString(text)
	for iter.Next() {
		token := iter.Value()
		r, size := utf8.DecodeRuneInString(token)
		if size == len(token) && unicode.Is(unicode.Han, r) {
			if iter.Start() != lastEnd {
				flushHan()
			}
			han = append(han, r)
			lastEnd = iter.End()
			continue
		}
		flushHan()
		lastEnd = -1

		if !hasLetterOrDigit(token) {
			continue
		}
		out = append(out, strings.ToLower(token))
	}
	flushHan()

	return out
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

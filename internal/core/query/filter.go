// Package query реализует фильтрацию и постраничное чтение потока сообщений.
package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/domain"
)

// Filter - конъюнкция условий отбора сообщений. Пустое условие всегда истинно.
type Filter struct {
	userIDs  map[string]struct{}
	types    map[string]struct{}
	from     *time.Time
	to       *time.Time
	pattern  *regexp.Regexp
	rawQuery string
}

// NewFilter проверяет и компилирует параметры фильтрации.
// Некорректная дата или регулярное выражение дают ошибку domain.ErrInvalidFilter.
func NewFilter(spec domain.FilterSpec) (*Filter, error) {
	f := &Filter{
		userIDs:  toSet(spec.UserIDs),
		types:    toSet(spec.MessageTypes),
		rawQuery: spec.Query,
	}

	if spec.DateFrom != "" {
		t, err := domain.ParseISODate(spec.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: date_from %q: %v", domain.ErrInvalidFilter, spec.DateFrom, err)
		}
		f.from = &t
	}
	if spec.DateTo != "" {
		t, err := domain.ParseISODate(spec.DateTo)
		if err != nil {
			return nil, fmt.Errorf("%w: date_to %q: %v", domain.ErrInvalidFilter, spec.DateTo, err)
		}
		f.to = &t
	}

	if spec.Query != "" {
		re, err := regexp.Compile("(?i)" + spec.Query)
		if err != nil {
			return nil, fmt.Errorf("%w: query: %v", domain.ErrInvalidFilter, err)
		}
		f.pattern = re
	}

	return f, nil
}

// MatchAll возвращает фильтр без условий.
func MatchAll() *Filter {
	return &Filter{}
}

// ForUser возвращает фильтр по одному автору.
func ForUser(userID string) *Filter {
	return &Filter{userIDs: map[string]struct{}{userID: {}}}
}

// Query возвращает исходную строку поиска.
func (f *Filter) Query() string {
	return f.rawQuery
}

// Match проверяет сообщение. Порядок проверок: автор, тип, дата, текст.
// При активных границах дат сообщение с неразбираемой датой отклоняется.
func (f *Filter) Match(msg *domain.Message) bool {
	if msg == nil {
		return false
	}

	if len(f.userIDs) > 0 {
		if _, ok := f.userIDs[msg.FromID]; !ok {
			return false
		}
	}

	if len(f.types) > 0 {
		if _, ok := f.types[msg.Type]; !ok {
			return false
		}
	}

	if f.from != nil || f.to != nil {
		date, err := msg.ParsedDate()
		if err != nil {
			return false
		}
		if f.from != nil && date.Before(*f.from) {
			return false
		}
		if f.to != nil && date.After(*f.to) {
			return false
		}
	}

	if f.pattern != nil && !f.pattern.MatchString(msg.NormalizedText()) {
		return false
	}

	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

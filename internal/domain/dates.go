package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrBadDate возвращается, если строку не удалось разобрать как дату ISO-8601.
var ErrBadDate = errors.New("unparsable ISO-8601 date")

// Поддерживаемые варианты ISO-8601. Время без зоны считается UTC.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15Z07:00",
	"2006-01-02T15",
	"2006-01-02",
}

// ParseISODate разбирает дату в формате экспорта (например, 2023-01-15T10:30:00).
// Допускается пробел вместо разделителя T.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadDate
	}
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadDate
}

// ParsedDate возвращает дату сообщения.
func (m *Message) ParsedDate() (time.Time, error) {
	return ParseISODate(m.Date)
}

// MondayWeekday возвращает номер дня недели, где 0 - понедельник, 6 - воскресенье.
func MondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

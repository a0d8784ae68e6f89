package domain

import (
	"encoding/json"
	"strings"
)

// NormalizeText приводит поле text к обычной строке.
// Строка возвращается как есть, массив склеивается из строк и полей text объектов,
// объект с полем text дает значение этого поля. Остальное дает пустую строку.
func NormalizeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		var sb strings.Builder
		for _, part := range parts {
			sb.WriteString(entityText(part))
		}
		return sb.String()
	case '{':
		return entityText(raw)
	default:
		return ""
	}
}

// entityText извлекает текст из одного элемента массива text.
func entityText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{':
		var entity struct {
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(raw, &entity); err != nil || entity.Text == nil {
			return ""
		}
		return *entity.Text
	default:
		return ""
	}
}

package domain

import (
	"encoding/json"
)

// Типы сообщений в экспорте.
const (
	MessageTypeMessage = "message"
	MessageTypeService = "service"
)

// Известные типы чатов. Экспорт может содержать и другие значения, они передаются как есть.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

// ChatMetadata описывает чат целиком. Заполняется из начала корневого объекта,
// до массива messages.
type ChatMetadata struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	ID            int64  `json:"id"`
	TotalMessages int    `json:"total_messages"`
	// Error заполняется, если файл отсутствует или не разбирается.
	Error string `json:"error,omitempty"`
}

// Message представляет одну запись из массива messages.
type Message struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Date         string `json:"date"`
	DateUnixTime string `json:"date_unixtime"`

	FromID   string `json:"from_id,omitempty"`
	FromName string `json:"from,omitempty"`

	Text         json.RawMessage `json:"text"` // Может быть строкой или массивом
	TextEntities []TextEntity    `json:"text_entities,omitempty"`

	Photo        string `json:"photo,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	File         string `json:"file,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	MediaType    string `json:"media_type,omitempty"`
	StickerEmoji string `json:"sticker_emoji,omitempty"`

	ForwardedFrom    string `json:"forwarded_from,omitempty"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`

	Action  string `json:"action,omitempty"`
	Actor   string `json:"actor,omitempty"`
	ActorID string `json:"actor_id,omitempty"`

	Edited         string `json:"edited,omitempty"`
	EditedUnixTime string `json:"edited_unixtime,omitempty"`

	plainText string
}

// TextEntity представляет "богатую" часть текста (упоминание, ссылка и т.д.).
type TextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SetText сохраняет исходное значение поля text и сразу вычисляет его плоское представление.
// Пустое значение заменяется на пустую строку.
func (m *Message) SetText(raw json.RawMessage) {
	if len(raw) == 0 {
		raw = json.RawMessage(`""`)
	}
	m.Text = raw
	m.plainText = NormalizeText(raw)
}

// NormalizedText возвращает текст сообщения без разметки.
func (m *Message) NormalizedText() string {
	return m.plainText
}

// IsService сообщает, является ли запись служебной.
func (m *Message) IsService() bool {
	return m.Type == MessageTypeService
}

// HasMedia сообщает, содержит ли сообщение медиа или фото.
func (m *Message) HasMedia() bool {
	return m.MediaType != "" || m.Photo != ""
}

// RecordResult - результат чтения одной записи из потока.
type RecordResult struct {
	// Index - порядковый номер записи в массиве, начиная с нуля.
	Index   int
	Message *Message
	// Skipped содержит причину, по которой запись пропущена.
	Skipped error
}

// OK сообщает, что запись успешно разобрана.
func (r RecordResult) OK() bool {
	return r.Skipped == nil && r.Message != nil
}

// FilterSpec - входные параметры фильтрации в том виде, в каком они приходят от клиента.
type FilterSpec struct {
	UserIDs      []string `json:"user_ids,omitempty"`
	DateFrom     string   `json:"date_from,omitempty"`
	DateTo       string   `json:"date_to,omitempty"`
	MessageTypes []string `json:"message_types,omitempty"`
	Query        string   `json:"query,omitempty"`
}

// MessagePage - страница сообщений.
type MessagePage struct {
	Messages []*Message `json:"messages"`
	// Total - приблизительное общее число сообщений в файле.
	Total       int  `json:"total"`
	Approximate bool `json:"approximate"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
}

// SearchResult - результат полнотекстового поиска.
type SearchResult struct {
	Query      string     `json:"query"`
	Messages   []*Message `json:"messages"`
	TotalCount int        `json:"total_count"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
}

// UserMessages - сообщения одного пользователя.
type UserMessages struct {
	UserID   string     `json:"user_id"`
	Messages []*Message `json:"messages"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
	Count    int        `json:"count"`
}

// ChatUser - участник чата, найденный по полям from_id/from.
type ChatUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int    `json:"message_count"`
}

// Topic - тема и ее вес.
type Topic struct {
	Topic  string  `json:"topic"`
	Weight float64 `json:"weight"`
}

// Sentiment - доли позитивной, негативной и нейтральной тональности.
type Sentiment struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Dominant возвращает метку с наибольшим значением. При равенстве побеждает
// метка, идущая раньше в порядке positive, negative, neutral.
func (s Sentiment) Dominant() (string, float64) {
	label, score := "positive", s.Positive
	if s.Negative > score {
		label, score = "negative", s.Negative
	}
	if s.Neutral > score {
		label, score = "neutral", s.Neutral
	}
	return label, score
}

// UserProfile - профиль активности одного пользователя.
type UserProfile struct {
	UserID           string         `json:"user_id"`
	Name             string         `json:"name"`
	MessageCount     int            `json:"message_count"`
	FirstMessageDate string         `json:"first_message_date,omitempty"`
	LastMessageDate  string         `json:"last_message_date,omitempty"`
	ActiveDays       int            `json:"active_days"`
	ActiveHours      map[int]int    `json:"active_hours"`
	ActiveWeekdays   map[int]int    `json:"active_weekdays"`
	Topics           []Topic        `json:"topics"`
	AvgMessageLength float64        `json:"avg_message_length"`
	EmojiCount       int            `json:"emoji_count"`
	MediaCount       map[string]int `json:"media_count"`
	LinkCount        int            `json:"link_count"`
	ForwardedCount   int            `json:"forwarded_count"`
	Sentiment        Sentiment      `json:"sentiment"`
	Summary          string         `json:"summary"`
}

// UserCount - позиция пользователя в рейтинге.
type UserCount struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Count  int    `json:"count"`
}

// HourCount - число сообщений в конкретный час суток.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayCount - число сообщений за календарный день (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ChatAnalytics - агрегированная статистика по чату.
type ChatAnalytics struct {
	TotalMessages    int         `json:"total_messages"`
	ActiveUsers      int         `json:"active_users"`
	SampleSize       int         `json:"sample_size"`
	PeakHours        []HourCount `json:"peak_hours"`
	PeakDays         []DayCount  `json:"peak_days"`
	ActiveWeekdays   map[int]int `json:"active_weekdays"`
	TopTopics        []Topic     `json:"top_topics"`
	MostActiveUsers  []UserCount `json:"most_active_users"`
	EmojiUsers       []UserCount `json:"emoji_users"`
	MediaUsers       []UserCount `json:"media_users"`
	LongMessageUsers []UserCount `json:"long_message_users"`
	ForwardingUsers  []UserCount `json:"forwarding_users"`
}

// EmptyChatAnalytics возвращает нулевую статистику с пустыми (не nil) коллекциями.
func EmptyChatAnalytics(sampleSize int) *ChatAnalytics {
	return &ChatAnalytics{
		SampleSize:       sampleSize,
		PeakHours:        []HourCount{},
		PeakDays:         []DayCount{},
		ActiveWeekdays:   map[int]int{},
		TopTopics:        []Topic{},
		MostActiveUsers:  []UserCount{},
		EmojiUsers:       []UserCount{},
		MediaUsers:       []UserCount{},
		LongMessageUsers: []UserCount{},
		ForwardingUsers:  []UserCount{},
	}
}

// KeyCount - пара "значение - количество" для отчетов.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// StructureReport описывает структуру файла экспорта по выборке сообщений.
type StructureReport struct {
	Path             string     `json:"path"`
	FileSizeBytes    int64      `json:"file_size_bytes"`
	RootKeys         []string   `json:"root_keys"`
	SampledRecords   int        `json:"sampled_records"`
	SkippedRecords   int        `json:"skipped_records"`
	MessageTypes     []KeyCount `json:"message_types"`
	Fields           []KeyCount `json:"fields"`
	MediaTypes       []KeyCount `json:"media_types"`
	UniqueUsers      int        `json:"unique_users"`
	ApproximateTotal int        `json:"approximate_total"`
}

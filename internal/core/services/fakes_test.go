package services

import (
	"encoding/json"
	"sync"

	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/domain"
)

// memCache - кэш в памяти, сериализующий значения так же, как файловый.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	writes  int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Read(key string, dst any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *memCache) Write(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.entries[key] = data
	c.writes++
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// fakeNLP возвращает заданные темы и тональность и запоминает переданные тексты.
type fakeNLP struct {
	mu             sync.Mutex
	topics         []domain.Topic
	sentiment      domain.Sentiment
	panicOnTopics  bool
	topicTexts     []string
	topicK         []int
	sentimentTexts []string
}

func (f *fakeNLP) ExtractTopics(text string, k int) []domain.Topic {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnTopics {
		panic("nlp failure")
	}
	f.topicTexts = append(f.topicTexts, text)
	f.topicK = append(f.topicK, k)
	return f.topics
}

func (f *fakeNLP) AnalyzeSentiment(text string) domain.Sentiment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentimentTexts = append(f.sentimentTexts, text)
	return f.sentiment
}

type fixtureMessage struct {
	id        int64
	msgType   string
	fromID    string
	from      string
	date      string
	text      string
	photo     string
	mediaType string
	forwarded string
}

func (m fixtureMessage) build() *domain.Message {
	msgType := m.msgType
	if msgType == "" {
		msgType = domain.MessageTypeMessage
	}
	msg := &domain.Message{
		ID:            m.id,
		Type:          msgType,
		FromID:        m.fromID,
		FromName:      m.from,
		Date:          m.date,
		Photo:         m.photo,
		MediaType:     m.mediaType,
		ForwardedFrom: m.forwarded,
	}
	raw, _ := json.Marshal(m.text)
	msg.SetText(raw)
	return msg
}

func longText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

// chatSource - небольшой чат: три автора, служебная запись, сообщение без автора
// и сообщение с неразбираемой датой.
func chatSource() *source.MemorySource {
	fixtures := []fixtureMessage{
		{id: 1, fromID: "user1", from: "Alice", date: "2023-01-02T10:00:00", text: "Hello 😀 https://go.dev"},
		{id: 2, fromID: "user2", from: "Bob", date: "2023-01-02T11:00:00", text: longText(250), photo: "photos/1.jpg"},
		{id: 3, msgType: domain.MessageTypeService, date: "2023-01-03T09:00:00"},
		{id: 4, fromID: "user1", from: "Alice", date: "2023-01-03T10:30:00", text: ":smile: :wave: hi", forwarded: "Channel"},
		{id: 5, fromID: "user2", from: "Bob", date: "garbage", mediaType: "sticker"},
		{id: 6, date: "2023-01-03T10:45:00", text: "anon"},
		{id: 7, fromID: "user3", from: "Carol", date: "2023-01-04T23:00:00", text: "ok"},
	}

	src := source.NewMemorySource(domain.ChatMetadata{Name: "Test Chat", Type: domain.ChatTypeSupergroup, ID: 1})
	for _, f := range fixtures {
		src.Append(f.build())
	}
	return src
}

package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-chat-analyzer/cmd/bot/config"
	"telegram-chat-analyzer/internal/domain"
)

const testChatID int64 = 42

// sentMessages собирает сообщения, которые бот отправил бы в Telegram.
type sentMessages struct {
	mu   sync.Mutex
	msgs []tgbotapi.Chattable
}

func (s *sentMessages) send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return tgbotapi.Message{}, nil
}

func (s *sentMessages) all() []tgbotapi.Chattable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), s.msgs...)
}

func (s *sentMessages) texts() []string {
	var out []string
	for _, msg := range s.all() {
		if m, ok := msg.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (s *sentMessages) hasText(substr string) bool {
	for _, text := range s.texts() {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func testBotConfig() config.BotConfig {
	return config.BotConfig{
		ExcelThreshold: 2,
		SampleSize:     100,
		SearchLimit:    5,
		Render:         config.ColumnWidths{Rank: 3, UserID: 14, Name: 18, Count: 6},
	}
}

// newTestBot создает бота, который ходит в backend по HTTP и складывает ответы в sent.
func newTestBot(t *testing.T, backend http.Handler) (*Bot, *sentMessages) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	sent := &sentMessages{}
	b := newBot(testBotConfig(), NewServerClient(srv.URL, 5*time.Second), NewTaskStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.sendMessageFunc = sent.send
	b.pollInterval = 10 * time.Millisecond
	b.taskTimeout = 5 * time.Second
	return b, sent
}

func command(text string) *tgbotapi.Message {
	name := strings.SplitN(text, " ", 2)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: testChatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// taskBackend отдает одну задачу task-1 с заданным итоговым статусом и результатом.
func taskBackend(status, errMsg string, result any) *http.ServeMux {
	mux := http.NewServeMux()
	start := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]string{"task_id": "task-1"})
	}
	mux.HandleFunc("/api/tasks/analytics", start)
	mux.HandleFunc("/api/tasks/profile/", start)
	mux.HandleFunc("/api/tasks/task-1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, TaskStatusResponse{TaskID: "task-1", Status: status, ErrorMessage: errMsg})
	})
	mux.HandleFunc("/api/tasks/task-1/result", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, result)
	})
	return mux
}

func analyticsWithUsers(n int) *domain.ChatAnalytics {
	a := domain.EmptyChatAnalytics(100)
	a.TotalMessages = 10 * n
	a.ActiveUsers = n
	names := []string{"Alice", "Bob", "Carol"}
	for i := 0; i < n; i++ {
		a.MostActiveUsers = append(a.MostActiveUsers, domain.UserCount{
			UserID: "user" + string(rune('1'+i)),
			Name:   names[i%len(names)],
			Count:  10,
		})
	}
	return a
}

func TestBot_SimpleCommands(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		b, sent := newTestBot(t, http.NewServeMux())
		b.handleMessage(context.Background(), command("/help"))

		msgs := sent.all()
		require.Len(t, msgs, 1)
		msg := msgs[0].(tgbotapi.MessageConfig)
		assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
		assert.Contains(t, msg.Text, "/report")
	})

	t.Run("неизвестная команда", func(t *testing.T) {
		b, sent := newTestBot(t, http.NewServeMux())
		b.handleMessage(context.Background(), command("/unknown"))
		assert.Equal(t, []string{"Я не знаю такой команды."}, sent.texts())
	})

	t.Run("обычный текст", func(t *testing.T) {
		b, sent := newTestBot(t, http.NewServeMux())
		b.handleMessage(context.Background(), &tgbotapi.Message{Text: "привет", Chat: &tgbotapi.Chat{ID: testChatID}})
		assert.True(t, sent.hasText("/help"))
	})
}

func TestBot_Info(t *testing.T) {
	t.Run("сведения о чате", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/chat/info", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, domain.ChatMetadata{Name: "Go <dev>", Type: "public_supergroup", ID: 777, TotalMessages: 1234})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/info"))

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "<b>Go &lt;dev&gt;</b>")
		assert.Contains(t, texts[0], "ID: 777")
		assert.Contains(t, texts[0], "1234")
	})

	t.Run("файл экспорта недоступен", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/chat/info", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "source unavailable"})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/info"))
		assert.Equal(t, []string{"Файл экспорта чата недоступен на сервере."}, sent.texts())
	})

	t.Run("сервер не отвечает", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/chat/info", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/info"))
		assert.Equal(t, []string{"Сервер недоступен. Пожалуйста, попробуйте позже."}, sent.texts())
	})
}

func TestBot_Search(t *testing.T) {
	t.Run("без запроса", func(t *testing.T) {
		b, sent := newTestBot(t, http.NewServeMux())
		b.handleMessage(context.Background(), command("/search"))
		assert.Equal(t, []string{"Укажите запрос: /search <запрос>"}, sent.texts())
	})

	t.Run("найденные сообщения экранируются", func(t *testing.T) {
		var gotQuery, gotLimit string
		mux := http.NewServeMux()
		mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("query")
			gotLimit = r.URL.Query().Get("limit")
			writeJSON(w, http.StatusOK, domain.SearchResult{
				Query: gotQuery,
				Messages: []*domain.Message{{
					ID: 1, Type: "message", Date: "2024-01-01T10:00:00",
					FromID: "user1", FromName: "Alice",
					Text: json.RawMessage(`["use ", {"type":"code","text":"<chan>"}]`),
				}},
				TotalCount: 3,
				Limit:      5,
			})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/search go.*chan"))

		assert.Equal(t, "go.*chan", gotQuery)
		assert.Equal(t, "5", gotLimit)

		texts := sent.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Найдено 3 сообщений")
		assert.Contains(t, texts[0], "показаны первые 1")
		assert.Contains(t, texts[0], "<b>Alice</b>")
		assert.Contains(t, texts[0], "use &lt;chan&gt;")
	})

	t.Run("ничего не найдено", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/search", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, domain.SearchResult{Messages: []*domain.Message{}})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/search rust"))
		assert.Equal(t, []string{"По запросу «rust» ничего не найдено."}, sent.texts())
	})

	t.Run("некорректное выражение", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/search", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pattern"})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/search (("))
		assert.Equal(t, []string{"Некорректный запрос: invalid pattern"}, sent.texts())
	})
}

func TestBot_Report(t *testing.T) {
	t.Run("текстовая таблица ниже порога", func(t *testing.T) {
		b, sent := newTestBot(t, taskBackend("completed", "", analyticsWithUsers(1)))
		b.handleMessage(context.Background(), command("/report"))

		require.Eventually(t, func() bool { return sent.hasText("<pre><code>") }, 2*time.Second, 10*time.Millisecond)
		b.Wait()

		assert.True(t, sent.hasText("Считаю статистику"))
		assert.True(t, sent.hasText("| 1   | user1          | Alice"))
		_, busy := b.taskStore.Get(testChatID)
		assert.False(t, busy)
	})

	t.Run("excel-файл при достижении порога", func(t *testing.T) {
		b, sent := newTestBot(t, taskBackend("completed", "", analyticsWithUsers(2)))
		b.handleMessage(context.Background(), command("/report"))

		var doc tgbotapi.DocumentConfig
		require.Eventually(t, func() bool {
			for _, msg := range sent.all() {
				if d, ok := msg.(tgbotapi.DocumentConfig); ok {
					doc = d
					return true
				}
			}
			return false
		}, 2*time.Second, 10*time.Millisecond)
		b.Wait()

		file, ok := doc.File.(tgbotapi.FileBytes)
		require.True(t, ok)
		assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
		assert.NotEmpty(t, file.Bytes)
		assert.Contains(t, doc.Caption, "Сообщений: 20")
	})

	t.Run("пустой чат", func(t *testing.T) {
		b, sent := newTestBot(t, taskBackend("completed", "", domain.EmptyChatAnalytics(100)))
		b.handleMessage(context.Background(), command("/report"))

		require.Eventually(t, func() bool { return sent.hasText("В чате не найдено сообщений.") }, 2*time.Second, 10*time.Millisecond)
		b.Wait()
	})

	t.Run("задача завершилась ошибкой", func(t *testing.T) {
		b, sent := newTestBot(t, taskBackend("failed", "context deadline exceeded", nil))
		b.handleMessage(context.Background(), command("/report"))

		require.Eventually(t, func() bool {
			return sent.hasText("Произошла ошибка при обработке: context deadline exceeded")
		}, 2*time.Second, 10*time.Millisecond)
		b.Wait()
	})

	t.Run("вторая задача отклоняется, пока первая выполняется", func(t *testing.T) {
		b, sent := newTestBot(t, taskBackend("processing", "", nil))
		ctx, cancel := context.WithCancel(context.Background())

		b.handleMessage(ctx, command("/report"))
		b.handleMessage(ctx, command("/profile user1"))

		assert.True(t, sent.hasText("Пожалуйста, подождите завершения предыдущей задачи"))
		task, busy := b.taskStore.Get(testChatID)
		require.True(t, busy)
		assert.Equal(t, PendingTask{ID: "task-1", Kind: taskKindAnalytics}, task)

		cancel()
		b.Wait()
		_, busy = b.taskStore.Get(testChatID)
		assert.False(t, busy)
	})

	t.Run("бэкенд не принял задачу", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/tasks/analytics", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "source unavailable"})
		})
		b, sent := newTestBot(t, mux)
		b.handleMessage(context.Background(), command("/report"))

		assert.Equal(t, []string{"Файл экспорта чата недоступен на сервере."}, sent.texts())
		_, busy := b.taskStore.Get(testChatID)
		assert.False(t, busy)
	})
}

func TestBot_Profile(t *testing.T) {
	t.Run("без идентификатора", func(t *testing.T) {
		b, sent := newTestBot(t, http.NewServeMux())
		b.handleMessage(context.Background(), command("/profile"))
		assert.Equal(t, []string{"Укажите идентификатор пользователя: /profile <user_id>"}, sent.texts())
	})

	t.Run("профиль пользователя", func(t *testing.T) {
		profile := domain.UserProfile{
			UserID:           "user1",
			Name:             "Alice",
			MessageCount:     3,
			FirstMessageDate: "2024-01-01T10:00:00",
			LastMessageDate:  "2024-01-02T11:00:00",
			ActiveDays:       2,
			Topics:           []domain.Topic{{Topic: "golang", Weight: 1}},
			Sentiment:        domain.Sentiment{Positive: 0.6, Neutral: 0.4},
			Summary:          "Пользователь Alice отправил 3 сообщения.",
		}
		b, sent := newTestBot(t, taskBackend("completed", "", profile))
		b.handleMessage(context.Background(), command("/profile user1"))

		require.Eventually(t, func() bool { return sent.hasText("<b>Alice</b> (user1)") }, 2*time.Second, 10*time.Millisecond)
		b.Wait()

		assert.True(t, sent.hasText("Темы: golang"))
		assert.True(t, sent.hasText("Тональность: positive (0.60)"))
	})

	t.Run("у пользователя нет сообщений", func(t *testing.T) {
		b, sent := newTestBot(t, taskBackend("completed", "", domain.UserProfile{UserID: "ghost"}))
		b.handleMessage(context.Background(), command("/profile ghost"))

		require.Eventually(t, func() bool {
			return sent.hasText("У пользователя ghost нет сообщений в этом чате.")
		}, 2*time.Second, 10*time.Millisecond)
		b.Wait()
	})
}

package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-chat-analyzer/cmd/bot/config"
	"telegram-chat-analyzer/internal/adapters/exporter"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/textutil"
)

const (
	startCommand   = "start"
	helpCommand    = "help"
	infoCommand    = "info"
	searchCommand  = "search"
	profileCommand = "profile"
	reportCommand  = "report"

	taskKindAnalytics = "analytics"
	taskKindProfile   = "profile"

	// maxMessageLength - ограничение Telegram на длину текста сообщения.
	maxMessageLength = 4096
	// searchPreviewRunes - длина превью текста в результатах поиска.
	searchPreviewRunes = 200
)

const helpText = "Я бот для анализа истории чата Telegram.\n\n" +
	"Команды:\n" +
	"/info - сведения о чате\n" +
	"/search &lt;запрос&gt; - поиск сообщений (регулярное выражение)\n" +
	"/profile &lt;user_id&gt; - профиль участника\n" +
	"/report - рейтинги участников и статистика чата"

// ServerAPI определяет операции бэкенда, которые использует бот.
type ServerAPI interface {
	GetChatInfo(ctx context.Context) (*domain.ChatMetadata, error)
	Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error)
	StartAnalyticsTask(ctx context.Context, sampleSize int) (*StartTaskResponse, error)
	StartProfileTask(ctx context.Context, userID string) (*StartTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	GetTaskResult(ctx context.Context, taskID string, dst any) error
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger

	pollInterval time.Duration
	taskTimeout  time.Duration
	polls        sync.WaitGroup

	// sendMessageFunc отправляет сообщение. В тестах подменяется.
	sendMessageFunc func(tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, serverClient, taskStore, logger)
	b.api = api
	b.sendMessageFunc = api.Send
	return b, nil
}

func newBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) *Bot {
	return &Bot{
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
		pollInterval: cfg.PollingInterval(),
		taskTimeout:  cfg.TaskTimeout(),
	}
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// Wait дожидается завершения фоновых опросов задач.
func (b *Bot) Wait() {
	b.polls.Wait()
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.sendHTML(msg.Chat.ID, "Отправьте команду, например /report. Список команд: /help")
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case startCommand, helpCommand:
		b.sendHTML(chatID, helpText)
	case infoCommand:
		b.handleInfo(ctx, chatID)
	case searchCommand:
		b.handleSearch(ctx, chatID, args)
	case profileCommand:
		b.handleProfile(ctx, chatID, args)
	case reportCommand:
		b.handleReport(ctx, chatID)
	default:
		b.sendText(chatID, "Я не знаю такой команды.")
	}
}

func (b *Bot) handleInfo(ctx context.Context, chatID int64) {
	info, err := b.serverClient.GetChatInfo(ctx)
	if err != nil {
		b.reportBackendError(chatID, "failed to get chat info", err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", html.EscapeString(info.Name))
	fmt.Fprintf(&sb, "Тип: %s\n", html.EscapeString(info.Type))
	fmt.Fprintf(&sb, "ID: %d\n", info.ID)
	fmt.Fprintf(&sb, "Сообщений (приблизительно): %d", info.TotalMessages)
	b.sendHTML(chatID, sb.String())
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, query string) {
	if query == "" {
		b.sendText(chatID, "Укажите запрос: /search <запрос>")
		return
	}

	result, err := b.serverClient.Search(ctx, query, b.cfg.SearchLimit)
	if err != nil {
		b.reportBackendError(chatID, "failed to search messages", err)
		return
	}

	if result.TotalCount == 0 {
		b.sendText(chatID, fmt.Sprintf("По запросу «%s» ничего не найдено.", query))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Найдено %d сообщений по запросу «%s»", result.TotalCount, html.EscapeString(query))
	if len(result.Messages) < result.TotalCount {
		fmt.Fprintf(&sb, ", показаны первые %d", len(result.Messages))
	}
	sb.WriteString(":\n")

	for _, m := range result.Messages {
		author := m.FromName
		if author == "" {
			author = m.FromID
		}
		entry := fmt.Sprintf("\n<b>%s</b> <i>%s</i>\n%s\n",
			html.EscapeString(author),
			html.EscapeString(m.Date),
			html.EscapeString(textutil.Truncate(domain.NormalizeText(m.Text), searchPreviewRunes)),
		)
		if sb.Len()+len(entry) > maxMessageLength {
			break
		}
		sb.WriteString(entry)
	}
	b.sendHTML(chatID, sb.String())
}

func (b *Bot) handleProfile(ctx context.Context, chatID int64, userID string) {
	if userID == "" {
		b.sendText(chatID, "Укажите идентификатор пользователя: /profile <user_id>")
		return
	}
	b.startTask(ctx, chatID, taskKindProfile, func(ctx context.Context) (*StartTaskResponse, error) {
		return b.serverClient.StartProfileTask(ctx, userID)
	}, "Строю профиль пользователя. Это может занять некоторое время.")
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) {
	b.startTask(ctx, chatID, taskKindAnalytics, func(ctx context.Context) (*StartTaskResponse, error) {
		return b.serverClient.StartAnalyticsTask(ctx, b.cfg.SampleSize)
	}, "Считаю статистику по чату. Ожидайте результата.")
}

// startTask запускает задачу на бэкенде и опрос ее статуса. У чата может быть только одна активная задача.
func (b *Bot) startTask(ctx context.Context, chatID int64, kind string, start func(context.Context) (*StartTaskResponse, error), ack string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("kind", kind))

	if !b.taskStore.Reserve(chatID, kind) {
		logger.Warn("user tried to start a new task while another is active")
		b.sendText(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		return
	}

	resp, err := start(ctx)
	if err != nil {
		b.taskStore.Delete(chatID)
		b.reportBackendError(chatID, "failed to start task on backend", err)
		return
	}

	task := PendingTask{ID: resp.TaskID, Kind: kind}
	b.taskStore.Set(chatID, task)
	logger.Info("task started on backend", slog.String("task_id", task.ID))
	b.sendText(chatID, "✅ "+ack)

	b.polls.Add(1)
	go func() {
		defer b.polls.Done()
		b.pollTaskStatus(ctx, chatID, task)
	}()
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, task PendingTask) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", task.ID))
	defer b.taskStore.Delete(chatID) // Гарантированно удаляем задачу по завершении.

	if b.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.taskTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling stopped", slog.String("reason", ctx.Err().Error()))
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				b.sendText(chatID, "Задача выполняется слишком долго. Попробуйте позже.")
			}
			return
		case <-ticker.C:
			status, err := b.serverClient.GetTaskStatus(ctx, task.ID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				if IsNotFound(err) {
					b.sendText(chatID, "Задача не найдена на сервере. Запустите ее заново.")
					return
				}
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, task)
				return
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				b.sendText(chatID, fmt.Sprintf("Произошла ошибка при обработке: %s", status.ErrorMessage))
				return
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status))
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask забирает результат задачи и отправляет его пользователю.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, task PendingTask) {
	switch task.Kind {
	case taskKindAnalytics:
		var analytics domain.ChatAnalytics
		if err := b.serverClient.GetTaskResult(ctx, task.ID, &analytics); err != nil {
			b.reportBackendError(chatID, "failed to fetch analytics result", err)
			return
		}
		b.sendAnalytics(chatID, &analytics)
	case taskKindProfile:
		var profile domain.UserProfile
		if err := b.serverClient.GetTaskResult(ctx, task.ID, &profile); err != nil {
			b.reportBackendError(chatID, "failed to fetch profile result", err)
			return
		}
		b.sendProfile(chatID, &profile)
	}
}

func (b *Bot) sendProfile(chatID int64, p *domain.UserProfile) {
	if p.MessageCount == 0 {
		b.sendText(chatID, fmt.Sprintf("У пользователя %s нет сообщений в этом чате.", p.UserID))
		return
	}

	topics := make([]string, 0, len(p.Topics))
	for _, t := range p.Topics {
		topics = append(topics, t.Topic)
	}
	label, score := p.Sentiment.Dominant()

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b> (%s)\n", html.EscapeString(p.Name), html.EscapeString(p.UserID))
	fmt.Fprintf(&sb, "Сообщений: %d, активных дней: %d\n", p.MessageCount, p.ActiveDays)
	fmt.Fprintf(&sb, "Период: %s - %s\n", html.EscapeString(p.FirstMessageDate), html.EscapeString(p.LastMessageDate))
	fmt.Fprintf(&sb, "Средняя длина: %.1f, эмодзи: %d, ссылок: %d, пересылок: %d\n",
		p.AvgMessageLength, p.EmojiCount, p.LinkCount, p.ForwardedCount)
	fmt.Fprintf(&sb, "Тональность: %s (%.2f)\n", label, score)
	if len(topics) > 0 {
		fmt.Fprintf(&sb, "Темы: %s\n", html.EscapeString(strings.Join(topics, ", ")))
	}
	fmt.Fprintf(&sb, "\n%s", html.EscapeString(p.Summary))
	b.sendHTML(chatID, sb.String())
}

// sendAnalytics отправляет рейтинг самых активных участников: текстовой таблицей
// или Excel-файлом, если участников не меньше excel_threshold.
func (b *Bot) sendAnalytics(chatID int64, a *domain.ChatAnalytics) {
	if a.TotalMessages == 0 {
		b.sendText(chatID, "В чате не найдено сообщений.")
		return
	}

	if len(a.MostActiveUsers) >= b.cfg.ExcelThreshold {
		b.logger.Info("ranking is over threshold, sending excel file", slog.Int64("chat_id", chatID))
		b.sendExcelResult(chatID, a)
		return
	}

	text := b.rankingText(a)
	if len(text) > maxMessageLength {
		b.logger.Warn("сгенерированный текст слишком длинный, отправка в виде файла", "length", len(text))
		b.sendExcelResult(chatID, a)
		return
	}
	b.sendHTML(chatID, text)
}

func (b *Bot) rankingText(a *domain.ChatAnalytics) string {
	widths := b.cfg.Render
	table := exporter.NewTable(
		exporter.Column{Title: "#", Width: widths.Rank},
		exporter.Column{Title: "User ID", Width: widths.UserID},
		exporter.Column{Title: "Name", Width: widths.Name},
		exporter.Column{Title: "Msgs", Width: widths.Count},
	)
	for i, u := range a.MostActiveUsers {
		table.Append(strconv.Itoa(i+1), u.UserID, u.Name, strconv.Itoa(u.Count))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Сообщений: %d, активных участников: %d\n", a.TotalMessages, a.ActiveUsers)
	sb.WriteString("<pre><code>")
	sb.WriteString(html.EscapeString(table.String()))
	sb.WriteString("</code></pre>")
	return sb.String()
}

func (b *Bot) sendExcelResult(chatID int64, a *domain.ChatAnalytics) {
	var buf bytes.Buffer
	if err := exporter.NewXLSXExporter(&buf, b.logger).ExportAnalytics(a); err != nil {
		b.logger.Error("failed to write excel to buffer", slog.String("error", err.Error()))
		b.sendText(chatID, "Не удалось сгенерировать Excel-файл.")
		return
	}

	fileName := fmt.Sprintf("chat_analytics_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: buf.Bytes()})
	msg.Caption = fmt.Sprintf("Анализ завершен. Сообщений: %d, активных участников: %d.", a.TotalMessages, a.ActiveUsers)
	b.sendMessage(msg)
}

// reportBackendError логирует ошибку бэкенда и отвечает пользователю понятным сообщением.
func (b *Bot) reportBackendError(chatID int64, logMsg string, err error) {
	b.logger.Error(logMsg, slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	switch {
	case IsNotFound(err):
		b.sendText(chatID, "Файл экспорта чата недоступен на сервере.")
	case IsBadRequest(err):
		var apiErr *APIError
		errors.As(err, &apiErr)
		b.sendText(chatID, fmt.Sprintf("Некорректный запрос: %s", apiErr.Message))
	default:
		b.sendText(chatID, "Сервер недоступен. Пожалуйста, попробуйте позже.")
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.sendMessage(msg)
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

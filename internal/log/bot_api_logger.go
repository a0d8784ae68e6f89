package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// BotAPILogger адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5.
type BotAPILogger struct {
	logger *slog.Logger
}

// NewBotAPILogger создает адаптер. Сообщения библиотеки помечаются атрибутом component.
func NewBotAPILogger(logger *slog.Logger) *BotAPILogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BotAPILogger{logger: logger.With("component", "telegram-bot-api")}
}

// Println реализует метод интерфейса tgbotapi.BotLogger.
func (a *BotAPILogger) Println(v ...any) {
	a.log(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует метод интерфейса tgbotapi.BotLogger.
func (a *BotAPILogger) Printf(format string, v ...any) {
	a.log(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// log пишет ошибки библиотеки (сбои getUpdates и т.п.) на уровне Warn, остальное - Debug.
func (a *BotAPILogger) log(msg string) {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
		a.logger.Warn(msg)
		return
	}
	a.logger.Debug(msg)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-chat-analyzer/cmd/bot/config"
	"telegram-chat-analyzer/internal/bot"
	"telegram-chat-analyzer/internal/log"
)

func main() {
	// Загрузка конфигурации бота
	cfg, err := config.LoadConfig("bot_config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Логгер маскирует токен бота и учетные данные в адресе бэкенда
	handler := log.NewHandler(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	logger := log.NewRedactedLogger(handler, cfg.Bot.Token)
	slog.SetDefault(logger)

	if err := tgbotapi.SetLogger(log.NewBotAPILogger(logger)); err != nil {
		logger.Warn("failed to set bot api logger", slog.String("error", err.Error()))
	}

	taskStore := bot.NewTaskStore()
	serverClient := bot.NewServerClient(cfg.Bot.BackendURL, cfg.Bot.HTTPTimeout())

	b, err := bot.NewBot(cfg.Bot, serverClient, taskStore, logger.With(slog.String("component", "bot")))
	if err != nil {
		logger.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Bot created successfully, starting...", slog.String("backend", cfg.Bot.BackendURL))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b.Start(ctx)

	logger.Info("Shutting down bot, waiting for task polling to stop...")
	b.Wait()
	logger.Info("Bot stopped gracefully")
}

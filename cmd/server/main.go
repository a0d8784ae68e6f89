package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"telegram-chat-analyzer/internal/adapters/nlp"
	"telegram-chat-analyzer/internal/adapters/parser"
	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/cache"
	"telegram-chat-analyzer/internal/core/services"
	"telegram-chat-analyzer/internal/log"
	"telegram-chat-analyzer/internal/pkg/config"
	"telegram-chat-analyzer/internal/server"
	"telegram-chat-analyzer/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger := slog.New(log.NewHandler(os.Stdout, cfg.Logging.Level, cfg.Logging.Format))
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Файл экспорта: аргумент командной строки важнее конфигурации.
	// Отсутствующий файл не мешает запуску, API ответит 404.
	var arg string
	if len(os.Args) > 1 {
		arg = os.Args[1]
	}
	chatPath, err := source.ResolvePath(arg, cfg.Chat.FilePath)
	if err != nil {
		logger.Warn("Файл экспорта недоступен", "error", err)
		if arg == "" {
			arg = cfg.Chat.FilePath
		}
		chatPath, _ = filepath.Abs(arg)
	}
	logger.Info("Файл экспорта", "path", chatPath)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 5. Инициализация зависимостей
	stream := parser.NewJSONStream(chatPath, parser.WithLogger(logger.With("component", "parser")))
	counter := parser.NewLineCounter(chatPath, logger)

	resultCache, err := cache.NewFileStore(cfg.Processing.CacheDir, chatPath, cfg.Processing.CacheTTL, logger.With("component", "cache"))
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	if interval := cfg.Processing.CleanupInterval; interval > 0 {
		resultCache.StartCleanupTicker(appCtx, interval)
	}

	processor := nlp.NewProcessor(nlp.WithLogger(logger.With("component", "nlp")))
	svcOpts := []services.Option{services.WithLogger(logger), services.WithCache(resultCache)}

	chatUseCase := usecase.NewChatUseCase(cfg,
		stream,
		counter,
		services.NewAnalyticsService(stream, processor, svcOpts...),
		services.NewProfileService(stream, processor, svcOpts...),
		services.NewUserService(stream, svcOpts...),
		logger,
	)

	// 6. Создание HTTP-сервера
	srv := server.New(cfg, chatUseCase, server.NewTaskStore(), logger.With("component", "server"))

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			appCancel()
		}
	}()

	ctx, stop := signal.NotifyContext(appCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Signal received, shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	appCancel()

	logger.Info("Application exited gracefully")
	return nil
}

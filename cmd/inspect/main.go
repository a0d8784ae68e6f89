package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"telegram-chat-analyzer/internal/adapters/exporter"
	"telegram-chat-analyzer/internal/adapters/nlp"
	"telegram-chat-analyzer/internal/adapters/parser"
	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/core/services"
	"telegram-chat-analyzer/internal/log"
	"telegram-chat-analyzer/internal/pkg/config"
	"telegram-chat-analyzer/internal/ports"
)

func main() {
	var (
		sample    int
		xlsxPath  string
		analytics bool
		logLevel  string
	)
	flag.IntVar(&sample, "sample", parser.DefaultSurveySample, "Сколько записей просмотреть")
	flag.StringVar(&xlsxPath, "xlsx", "", "Сохранить отчет в Excel-файл")
	flag.BoolVar(&analytics, "analytics", false, "Посчитать статистику по чату вместо отчета о структуре")
	flag.StringVar(&logLevel, "log-level", "warn", "Уровень логирования")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: inspect [flags] [result.json]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(log.NewHandler(os.Stderr, logLevel, "text"))
	slog.SetDefault(logger)

	if err := run(flag.Arg(0), sample, xlsxPath, analytics, logger); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(arg string, sample int, xlsxPath string, analytics bool, logger *slog.Logger) error {
	path, err := source.ResolvePath(arg, config.DefaultChatFilePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream := parser.NewJSONStream(path, parser.WithLogger(logger))

	var exp ports.Exporter
	if xlsxPath != "" {
		f, err := os.Create(xlsxPath)
		if err != nil {
			return fmt.Errorf("не удалось создать файл %s: %w", xlsxPath, err)
		}
		defer f.Close()
		exp = exporter.NewXLSXExporter(f, logger)
	} else {
		exp = exporter.NewConsoleExporter(os.Stdout)
	}

	if analytics {
		svc := services.NewAnalyticsService(stream, nlp.NewProcessor(nlp.WithLogger(logger)), services.WithLogger(logger))
		return exp.ExportAnalytics(svc.ChatAnalytics(ctx, sample))
	}

	report, err := stream.Survey(ctx, sample, parser.NewLineCounter(path, logger))
	if err != nil {
		return fmt.Errorf("не удалось проанализировать структуру: %w", err)
	}
	return exp.ExportStructure(report)
}

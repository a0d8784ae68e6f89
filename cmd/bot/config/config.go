package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// ColumnWidths определяет ширину колонок для текстового вывода рейтинга.
type ColumnWidths struct {
	Rank   int `yaml:"rank"`
	UserID int `yaml:"user_id"`
	Name   int `yaml:"name"`
	Count  int `yaml:"count"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token                  string       `yaml:"token"`
	BackendURL             string       `yaml:"backend_url"`
	PollingIntervalSeconds int          `yaml:"polling_interval_seconds"`
	TaskTimeoutSeconds     int          `yaml:"task_timeout_seconds"`
	ExcelThreshold         int          `yaml:"excel_threshold"`
	HTTPTimeoutSeconds     int          `yaml:"http_timeout_seconds"`
	SampleSize             int          `yaml:"sample_size"`
	SearchLimit            int          `yaml:"search_limit"`
	Render                 ColumnWidths `yaml:"render"`
}

// PollingInterval возвращает интервал опроса статуса задачи.
func (c BotConfig) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds) * time.Second
}

// TaskTimeout возвращает максимальное время ожидания задачи.
func (c BotConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSeconds) * time.Second
}

// HTTPTimeout возвращает таймаут запросов к бэкенду.
func (c BotConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Logging определяет уровень и формат логов бота.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot     BotConfig `yaml:"bot"`
	Logging Logging   `yaml:"logging"`
}

// LoadConfig загружает конфигурацию бота из указанного файла.
// Переменные окружения BOT_TOKEN и BACKEND_URL (в том числе из .env) имеют приоритет над файлом.
func LoadConfig(filename string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Файл необязателен: конфигурацию можно задать переменными окружения.
	default:
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Bot.BackendURL = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	b := &c.Bot
	if b.BackendURL == "" {
		b.BackendURL = DefaultBackendURL
	}
	if b.PollingIntervalSeconds == 0 {
		b.PollingIntervalSeconds = DefaultPollingIntervalSeconds
	}
	if b.TaskTimeoutSeconds == 0 {
		b.TaskTimeoutSeconds = DefaultTaskTimeoutSeconds
	}
	if b.ExcelThreshold == 0 {
		b.ExcelThreshold = DefaultExcelThreshold
	}
	if b.HTTPTimeoutSeconds == 0 {
		b.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if b.SearchLimit == 0 {
		b.SearchLimit = DefaultSearchLimit
	}
	if b.Render.Rank == 0 {
		b.Render.Rank = DefaultRankColumnWidth
	}
	if b.Render.UserID == 0 {
		b.Render.UserID = DefaultUserIDColumnWidth
	}
	if b.Render.Name == 0 {
		b.Render.Name = DefaultNameColumnWidth
	}
	if b.Render.Count == 0 {
		b.Render.Count = DefaultCountColumnWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate проверяет корректность конфигурации бота.
func (c *Config) Validate() error {
	b := c.Bot
	if b.Token == "" || b.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if b.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty")
	}
	if b.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("bot.polling_interval_seconds must be positive")
	}
	if b.TaskTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.task_timeout_seconds must be positive")
	}
	if b.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}
	if b.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.http_timeout_seconds must be positive")
	}
	if b.SampleSize < 0 {
		return fmt.Errorf("bot.sample_size cannot be negative")
	}
	if b.SearchLimit <= 0 {
		return fmt.Errorf("bot.search_limit must be positive")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

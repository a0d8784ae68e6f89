// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Chat описывает анализируемый файл экспорта
type Chat struct {
	FilePath string `json:"file_path" yaml:"file_path"`
}

// Processing содержит конфигурацию обработки
type Processing struct {
	CacheDir          string        `json:"cache_dir" yaml:"cache_dir"`
	CacheTTL          time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CleanupInterval   time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	DefaultSampleSize int           `json:"default_sample_size" yaml:"default_sample_size"`
	MaxPageSize       int           `json:"max_page_size" yaml:"max_page_size"`
	TaskTimeout       time.Duration `json:"task_timeout" yaml:"task_timeout"` // 0 - без ограничений
	TaskTTL           time.Duration `json:"task_ttl" yaml:"task_ttl"`
}

// Metrics содержит конфигурацию эндпоинта Prometheus
type Metrics struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Chat       Chat       `json:"chat" yaml:"chat"`
	Processing Processing `json:"processing" yaml:"processing"`
	Metrics    Metrics    `json:"metrics" yaml:"metrics"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем config.yml, затем переменные окружения.
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := loadFromYAML("config.yml", cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось применить переменные окружения: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Chat: Chat{
			FilePath: DefaultChatFilePath,
		},
		Processing: Processing{
			CacheDir:          DefaultCacheDir,
			CacheTTL:          DefaultCacheTTL,
			CleanupInterval:   DefaultCleanupInterval,
			DefaultSampleSize: DefaultSampleSize,
			MaxPageSize:       DefaultMaxPageSize,
			TaskTimeout:       DefaultTaskTimeout,
			TaskTTL:           DefaultTaskTTL,
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// loadFromYAML дополняет cfg значениями из YAML-файла. Отсутствие файла ошибкой не считается.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return nil
}

// applyEnv переопределяет значения из переменных окружения.
func applyEnv(cfg *Config) error {
	cfg.Chat.FilePath = getEnv("CHAT_FILE_PATH", cfg.Chat.FilePath)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Processing.CacheDir = getEnv("CACHE_DIR", cfg.Processing.CacheDir)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый CACHE_TTL: %w", err)
		}
		cfg.Processing.CacheTTL = ttl
	}

	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Chat.FilePath == "" {
		return fmt.Errorf("chat.file_path не может быть пустым")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}

	if c.Processing.CacheDir == "" {
		return fmt.Errorf("processing.cache_dir не может быть пустым")
	}

	if c.Processing.CacheTTL <= 0 {
		return fmt.Errorf("processing.cache_ttl должно быть положительным")
	}

	if c.Processing.CleanupInterval <= 0 {
		return fmt.Errorf("processing.cleanup_interval должно быть положительным")
	}

	if c.Processing.DefaultSampleSize <= 0 {
		return fmt.Errorf("processing.default_sample_size должно быть положительным")
	}

	if c.Processing.MaxPageSize <= 0 {
		return fmt.Errorf("processing.max_page_size должно быть положительным")
	}

	if c.Processing.TaskTimeout < 0 {
		return fmt.Errorf("processing.task_timeout должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.TaskTTL <= 0 {
		return fmt.Errorf("processing.task_ttl должно быть положительным")
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path не может быть пустым при включенных метриках")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format должен быть одним из: text, json")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

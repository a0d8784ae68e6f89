// Package services содержит агрегации поверх потока сообщений: рейтинги,
// временные распределения, профили участников и список пользователей.
package services

import (
	"log/slog"

	"telegram-chat-analyzer/internal/ports"
)

// options - общие зависимости сервисов.
type options struct {
	logger *slog.Logger
	cache  ports.ResultCache
}

// Option - функциональная опция для сервисов пакета.
type Option func(*options)

// WithLogger устанавливает логгер для сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCache подключает кэш результатов. Без него каждый вызов читает файл заново.
func WithCache(c ports.ResultCache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		cache:  noCache{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// noCache - кэш, который ничего не хранит.
type noCache struct{}

func (noCache) Read(string, any) bool { return false }
func (noCache) Write(string, any)     {}

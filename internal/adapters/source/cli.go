package source

import (
	"fmt"
	"os"
	"path/filepath"

	"telegram-chat-analyzer/internal/domain"
)

// ResolvePath выбирает путь к файлу экспорта: аргумент командной строки важнее
// значения из конфигурации. Возвращает абсолютный путь к существующему файлу.
func ResolvePath(arg, fallback string) (string, error) {
	path := arg
	if path == "" {
		path = fallback
	}
	if path == "" {
		return "", fmt.Errorf("не указан путь к файлу")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrSourceUnavailable, abs)
	}

	return abs, nil
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"telegram-chat-analyzer/internal/metrics"
	"telegram-chat-analyzer/internal/ports"
)

const (
	fileExt   = ".json"
	tmpPrefix = ".tmp-"

	fingerprintLen = 16
)

// FileStore хранит результаты вычислений в JSON-файлах: один файл на ключ.
// Файлы лежат в подкаталоге, имя которого зависит от файла экспорта,
// поэтому результаты для разных экспортов не смешиваются.
// Запись считается действительной, пока ее возраст (по mtime) меньше TTL.
type FileStore struct {
	root   string
	dir    string
	ttl    time.Duration
	logger *slog.Logger
	mutex  sync.RWMutex
}

// NewFileStore создает хранилище в каталоге root для файла экспорта sourcePath.
func NewFileStore(root, sourcePath string, ttl time.Duration, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, fmt.Errorf("не указан каталог кэша")
	}

	fingerprint, err := SourceFingerprint(sourcePath)
	if err != nil {
		logger.Warn("Не удалось получить отпечаток файла экспорта, используется путь", "path", sourcePath, "error", err)
		fingerprint = pathFingerprint(sourcePath)
	}

	dir := filepath.Join(root, fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог кэша: %w", err)
	}

	return &FileStore{
		root:   root,
		dir:    dir,
		ttl:    ttl,
		logger: logger,
	}, nil
}

var _ ports.ResultCache = (*FileStore)(nil)

// Key формирует ключ для результата, зависящего от размера выборки.
func Key(name string, sample int) string {
	return fmt.Sprintf("%s_sample_%d", name, sample)
}

// Dir возвращает каталог записей для текущего файла экспорта.
func (s *FileStore) Dir() string {
	return s.dir
}

// Read загружает значение по ключу в dst. Любая ошибка считается промахом.
func (s *FileStore) Read(key string, dst any) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	path := s.path(key)
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Ошибка чтения кэша", "key", key, "error", err)
			metrics.CacheError()
			return false
		}
		metrics.CacheMiss()
		return false
	}
	if s.expired(info, time.Now()) {
		metrics.CacheMiss()
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("Ошибка чтения кэша", "key", key, "error", err)
		metrics.CacheError()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("Поврежденная запись кэша", "key", key, "error", err)
		metrics.CacheError()
		return false
	}

	metrics.CacheHit()
	return true
}

// Write сохраняет значение атомарно: во временный файл с последующим переименованием.
// Ошибки только логируются.
func (s *FileStore) Write(key string, value any) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if err := s.write(key, value); err != nil {
		s.logger.Warn("Ошибка записи в кэш", "key", key, "error", err)
		metrics.CacheWrite(false)
		return
	}
	metrics.CacheWrite(true)
}

func (s *FileStore) write(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmp := filepath.Join(s.dir, tmpPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// CleanupExpired удаляет просроченные записи и брошенные временные файлы
// в подкаталогах кэша. Пустые подкаталоги других экспортов тоже удаляются.
// Затрагиваются только файлы, созданные хранилищем: прочее содержимое root не трогается.
func (s *FileStore) CleanupExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Warn("Ошибка очистки кэша", "error", err)
		return
	}

	now := time.Now()
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !isFingerprint(e.Name()) {
			continue
		}
		sub := filepath.Join(s.root, e.Name())
		removed += s.cleanupDir(sub, now)
		if sub != s.dir {
			// Remove завершится ошибкой для непустого каталога.
			_ = os.Remove(sub)
		}
	}

	if removed > 0 {
		s.logger.Debug("Очищены просроченные записи кэша", "count", removed)
	}
}

func (s *FileStore) cleanupDir(dir string, now time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !(strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, tmpPrefix)) {
			continue
		}
		info, err := e.Info()
		if err != nil || !s.expired(info, now) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			removed++
		}
	}
	return removed
}

// isFingerprint сообщает, похоже ли имя на подкаталог, созданный NewFileStore.
func isFingerprint(name string) bool {
	if len(name) != fingerprintLen {
		return false
	}
	for _, r := range name {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (s *FileStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}

func (s *FileStore) expired(info fs.FileInfo, now time.Time) bool {
	return now.Sub(info.ModTime()) >= s.ttl
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+fileExt)
}

// sanitizeKey оставляет в ключе только безопасные для имени файла символы.
// Если что-то заменено, к имени через точку добавляется хэш исходного ключа,
// чтобы разные ключи не попадали в один файл. Точка в остальной части имени не встречается.
func sanitizeKey(key string) string {
	replaced := false
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			replaced = true
			return '_'
		}
	}, key)
	if !replaced {
		return safe
	}
	return fmt.Sprintf("%s.%x", safe, sha256.Sum256([]byte(key)))[:len(safe)+1+12]
}

// SourceFingerprint вычисляет SHA256 от абсолютного пути, размера и времени изменения файла.
// Содержимое не читается: экспорт может занимать гигабайты.
func SourceFingerprint(filePath string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("не удалось получить информацию о файле: %w", err)
	}

	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	return fmt.Sprintf("%x", hasher.Sum(nil))[:fingerprintLen], nil
}

func pathFingerprint(filePath string) string {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(abs)))[:fingerprintLen]
}

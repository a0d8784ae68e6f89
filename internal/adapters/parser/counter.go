package parser

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/go-faster/errors"

	"telegram-chat-analyzer/internal/ports"
)

const counterChunkSize = 256 * 1024

// messageMarker - строка, по которой сообщения считаются без разбора JSON.
var messageMarker = []byte(`"type": "message"`)

// LineCounter приблизительно считает сообщения: число строк, содержащих маркер.
// Экспорт Telegram форматирован с отступами, поэтому каждое сообщение занимает свою строку с type.
type LineCounter struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	counted bool
	count   int
}

// NewLineCounter создает счетчик для файла экспорта.
func NewLineCounter(path string, logger *slog.Logger) *LineCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineCounter{path: path, logger: logger}
}

var _ ports.MessageCounter = (*LineCounter)(nil)

// Count возвращает число сообщений. Первый успешный подсчет запоминается,
// при ошибке возвращается 0 и следующий вызов пробует снова.
func (c *LineCounter) Count(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counted {
		return c.count
	}

	n, err := c.scan(ctx)
	if err != nil {
		c.logger.Error("Ошибка подсчета сообщений", "path", c.path, "error", err)
		return 0
	}

	c.count = n
	c.counted = true
	return n
}

func (c *LineCounter) scan(ctx context.Context) (int, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return 0, errors.Wrap(err, "open export")
	}
	defer f.Close()

	return countLines(ctx, bufio.NewReaderSize(f, counterChunkSize))
}

// countLines считает строки с маркером. Строки длиннее буфера читаются частями,
// хвост предыдущей части сохраняется, чтобы не потерять маркер на границе.
func countLines(ctx context.Context, r *bufio.Reader) (int, error) {
	var (
		count   int
		matched bool
		carry   []byte
	)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 && !matched {
			window := chunk
			if len(carry) > 0 {
				window = append(carry, chunk...)
			}
			if bytes.Contains(window, messageMarker) {
				matched = true
			}
		}

		switch {
		case err == nil:
			// Конец строки.
			if matched {
				count++
			}
			matched = false
			carry = carry[:0]
		case errors.Is(err, bufio.ErrBufferFull):
			carry = appendTail(carry[:0], chunk, len(messageMarker)-1)
		case errors.Is(err, io.EOF):
			if matched {
				count++
			}
			return count, nil
		default:
			return 0, errors.Wrap(err, "read export")
		}
	}
}

// appendTail дописывает в dst последние n байт src.
func appendTail(dst, src []byte, n int) []byte {
	if len(src) > n {
		src = src[len(src)-n:]
	}
	return append(dst, src...)
}

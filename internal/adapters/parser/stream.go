package parser

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/metrics"
	"telegram-chat-analyzer/internal/ports"
)

const (
	defaultBufferSize = 64 * 1024

	unknownChatName = "Unknown Chat"
	unknownChatType = "Unknown Type"
	errorChatValue  = "Error"

	messagesKey = "messages"
)

// errMissingField - запись не содержит обязательного поля.
var errMissingField = errors.New("missing required field")

// JSONStream читает экспорт Telegram потоково, не загружая файл в память.
type JSONStream struct {
	path    string
	bufSize int
	logger  *slog.Logger

	mu       sync.Mutex
	metadata *domain.ChatMetadata
}

// Option определяет функциональную опцию для JSONStream.
type Option func(*JSONStream)

// WithLogger устанавливает логгер.
func WithLogger(logger *slog.Logger) Option {
	return func(s *JSONStream) {
		s.logger = logger
	}
}

// WithBufferSize устанавливает размер буфера чтения декодера.
func WithBufferSize(size int) Option {
	return func(s *JSONStream) {
		if size > 0 {
			s.bufSize = size
		}
	}
}

// NewJSONStream создает поток записей для файла экспорта.
func NewJSONStream(path string, opts ...Option) *JSONStream {
	s := &JSONStream{
		path:    path,
		bufSize: defaultBufferSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.MessageSource = (*JSONStream)(nil)

// Path возвращает путь к файлу экспорта.
func (s *JSONStream) Path() string {
	return s.path
}

// Available сообщает, существует ли файл экспорта и является ли он обычным файлом.
func (s *JSONStream) Available() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Mode().IsRegular()
}

// ReadMetadata читает name, type и id из корневого объекта и останавливается на массиве messages.
// Ошибка не возвращается: при недоступном файле метаданные содержат поле Error.
// Успешный результат запоминается на все время жизни процесса.
func (s *JSONStream) ReadMetadata(ctx context.Context) domain.ChatMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.metadata != nil {
		return *s.metadata
	}

	meta, err := s.scanMetadata(ctx)
	if err != nil {
		s.logger.Error("Ошибка чтения метаданных чата", "path", s.path, "error", err)
		return domain.ChatMetadata{
			Name:  errorChatValue,
			Type:  errorChatValue,
			Error: err.Error(),
		}
	}

	s.metadata = &meta
	return meta
}

func (s *JSONStream) scanMetadata(ctx context.Context) (domain.ChatMetadata, error) {
	meta := domain.ChatMetadata{Name: unknownChatName, Type: unknownChatType}

	if err := ctx.Err(); err != nil {
		return meta, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return meta, errors.Wrap(err, "open export")
	}
	defer f.Close()

	d := jx.Decode(f, s.bufSize)
	iter, err := d.ObjIter()
	if err != nil {
		return meta, errors.Wrap(err, "read root object")
	}

	for iter.Next() {
		switch string(iter.Key()) {
		case "name":
			if v, ok, err := readString(d); err != nil {
				return meta, errors.Wrap(err, "read name")
			} else if ok {
				meta.Name = v
			}
		case "type":
			if v, ok, err := readString(d); err != nil {
				return meta, errors.Wrap(err, "read type")
			} else if ok {
				meta.Type = v
			}
		case "id":
			if v, ok, err := readInt(d); err != nil {
				return meta, errors.Wrap(err, "read id")
			} else if ok {
				meta.ID = v
			}
		case messagesKey:
			return meta, nil
		default:
			if err := d.Skip(); err != nil {
				return meta, errors.Wrapf(err, "skip %q", iter.Key())
			}
		}
	}
	if err := iter.Err(); err != nil {
		return meta, errors.Wrap(err, "read root object")
	}

	return meta, nil
}

// Iterate открывает файл и возвращает итератор по массиву messages.
// Отсутствующий массив дает пустой поток.
func (s *JSONStream) Iterate(ctx context.Context) (ports.MessageIterator, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, "open export")
	}

	it := &messageIterator{
		ctx:    ctx,
		file:   f,
		dec:    jx.Decode(f, s.bufSize),
		logger: s.logger,
	}
	if err := it.seekMessages(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return it, nil
}

type messageIterator struct {
	ctx    context.Context
	file   *os.File
	dec    *jx.Decoder
	arr    jx.ArrIter
	logger *slog.Logger

	index   int
	current domain.RecordResult
	done    bool
	err     error
}

// seekMessages пропускает поля корневого объекта до массива messages.
func (it *messageIterator) seekMessages() error {
	root, err := it.dec.ObjIter()
	if err != nil {
		return errors.Wrap(err, "read root object")
	}

	for root.Next() {
		if string(root.Key()) != messagesKey {
			if err := it.dec.Skip(); err != nil {
				return errors.Wrapf(err, "skip %q", root.Key())
			}
			continue
		}

		if it.dec.Next() != jx.Array {
			it.logger.Warn("Поле messages не является массивом", "type", it.dec.Next().String())
			it.done = true
			return nil
		}
		arr, err := it.dec.ArrIter()
		if err != nil {
			return errors.Wrap(err, "open messages array")
		}
		it.arr = arr
		return nil
	}
	if err := root.Err(); err != nil {
		return errors.Wrap(err, "read root object")
	}

	it.done = true
	return nil
}

func (it *messageIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}

	if !it.arr.Next() {
		if err := it.arr.Err(); err != nil {
			it.err = errors.Wrap(err, "read messages array")
		}
		it.done = true
		return false
	}

	raw, err := it.dec.Raw()
	if err != nil {
		it.err = errors.Wrapf(err, "read record %d", it.index)
		return false
	}

	idx := it.index
	it.index++

	msg, err := decodeMessage(raw)
	if err != nil {
		it.logger.Warn("Пропущена некорректная запись", "index", idx, "reason", err.Error())
		metrics.RecordSkipped()
		it.current = domain.RecordResult{Index: idx, Skipped: err}
		return true
	}

	metrics.RecordScanned()
	it.current = domain.RecordResult{Index: idx, Message: msg}
	return true
}

func (it *messageIterator) Result() domain.RecordResult {
	return it.current
}

func (it *messageIterator) Err() error {
	return it.err
}

func (it *messageIterator) Close() error {
	it.done = true
	return it.file.Close()
}

// decodeMessage разбирает одну запись. Типы полей проверяются мягко:
// число вместо строки приводится к строке, null считается отсутствием значения.
func decodeMessage(raw jx.Raw) (*domain.Message, error) {
	if raw.Type() != jx.Object {
		return nil, errors.Errorf("record is %s, not object", raw.Type())
	}

	var (
		msg            domain.Message
		hasID, hasType bool
		text           json.RawMessage
	)

	d := jx.DecodeBytes(raw)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			msg.ID, hasID, err = readInt(d)
		case "type":
			msg.Type, hasType, err = readString(d)
		case "date":
			msg.Date, _, err = readString(d)
		case "date_unixtime":
			msg.DateUnixTime, _, err = readString(d)
		case "from_id":
			msg.FromID, _, err = readString(d)
		case "from":
			msg.FromName, _, err = readString(d)
		case "text":
			var v jx.Raw
			if v, err = d.Raw(); err == nil {
				text = append(json.RawMessage(nil), v...)
			}
		case "text_entities":
			msg.TextEntities, err = readEntities(d)
		case "photo":
			msg.Photo, _, err = readString(d)
		case "width":
			msg.Width, err = readSmallInt(d)
		case "height":
			msg.Height, err = readSmallInt(d)
		case "file":
			msg.File, _, err = readString(d)
		case "thumbnail":
			msg.Thumbnail, _, err = readString(d)
		case "media_type":
			msg.MediaType, _, err = readString(d)
		case "sticker_emoji":
			msg.StickerEmoji, _, err = readString(d)
		case "forwarded_from":
			msg.ForwardedFrom, _, err = readString(d)
		case "reply_to_message_id":
			msg.ReplyToMessageID, _, err = readInt(d)
		case "action":
			msg.Action, _, err = readString(d)
		case "actor":
			msg.Actor, _, err = readString(d)
		case "actor_id":
			msg.ActorID, _, err = readString(d)
		case "edited":
			msg.Edited, _, err = readString(d)
		case "edited_unixtime":
			msg.EditedUnixTime, _, err = readString(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !hasID {
		return nil, errors.Wrap(errMissingField, "id")
	}
	if !hasType || msg.Type == "" {
		return nil, errors.Wrap(errMissingField, "type")
	}

	msg.SetText(text)
	return &msg, nil
}

// readString читает строковое значение. Числа и bool приводятся к строке, null дает ok == false.
func readString(d *jx.Decoder) (string, bool, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		return s, err == nil, err
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", false, err
		}
		return n.String(), true, nil
	case jx.Bool:
		b, err := d.Bool()
		if err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	case jx.Null:
		return "", false, d.Null()
	default:
		return "", false, d.Skip()
	}
}

// readInt читает целое значение. Строка с числом тоже принимается.
func readInt(d *jx.Decoder) (int64, bool, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, false, err
		}
		v, err := n.Int64()
		if err != nil {
			return 0, false, err
		}
		return v, true, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false, err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false, errors.Wrap(err, "parse int")
		}
		return v, true, nil
	case jx.Null:
		return 0, false, d.Null()
	default:
		return 0, false, errors.Errorf("unexpected %s, expected number", d.Next())
	}
}

func readSmallInt(d *jx.Decoder) (int, error) {
	v, _, err := readInt(d)
	return int(v), err
}

// readEntities читает text_entities. Элементы, не являющиеся объектами, пропускаются.
func readEntities(d *jx.Decoder) ([]domain.TextEntity, error) {
	if d.Next() != jx.Array {
		return nil, d.Skip()
	}

	var entities []domain.TextEntity
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return d.Skip()
		}
		var e domain.TextEntity
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "type":
				e.Type, _, err = readString(d)
			case "text":
				e.Text, _, err = readString(d)
			default:
				err = d.Skip()
			}
			return err
		})
		if err != nil {
			return err
		}
		entities = append(entities, e)
		return nil
	})
	return entities, err
}

package ports

import (
	"context"

	"telegram-chat-analyzer/internal/domain"
)

// MessageIterator - однонаправленный итератор по записям массива messages.
// Использование:
//
//	for it.Next() {
//		res := it.Result()
//	}
//	if err := it.Err(); err != nil { ... }
type MessageIterator interface {
	// Next переходит к следующей записи. Возвращает false в конце потока или при ошибке.
	Next() bool
	// Result возвращает текущую запись (успешно разобранную или пропущенную).
	Result() domain.RecordResult
	// Err возвращает ошибку, прервавшую поток (битый JSON, отмена контекста).
	Err() error
	Close() error
}

// MessageSource определяет источник сообщений чата.
type MessageSource interface {
	// Path возвращает путь к файлу экспорта.
	Path() string
	// Available сообщает, существует ли файл экспорта.
	Available() bool
	// ReadMetadata читает метаданные чата, не разбирая массив messages.
	ReadMetadata(ctx context.Context) domain.ChatMetadata
	// Iterate открывает новый поток записей. Каждый вызов использует свой файловый дескриптор.
	Iterate(ctx context.Context) (MessageIterator, error)
}

// MessageCounter приблизительно подсчитывает число сообщений в источнике.
type MessageCounter interface {
	Count(ctx context.Context) int
}

// ResultCache определяет хранилище результатов тяжелых вычислений.
// Ошибки кэша никогда не возвращаются вызывающему: промах - это просто false.
type ResultCache interface {
	Read(key string, dst any) bool
	Write(key string, value any)
}

// NLPProcessor определяет интерфейс анализа текста.
type NLPProcessor interface {
	// ExtractTopics возвращает не более k тем с весами. Для короткого текста возвращает пустой список.
	ExtractTopics(text string, k int) []domain.Topic
	// AnalyzeSentiment оценивает тональность текста. Пустой текст считается нейтральным.
	AnalyzeSentiment(text string) domain.Sentiment
}

// Exporter определяет интерфейс для вывода отчетов.
type Exporter interface {
	// ExportAnalytics выводит агрегированную статистику по чату.
	ExportAnalytics(analytics *domain.ChatAnalytics) error
	// ExportStructure выводит отчет о структуре файла экспорта.
	ExportStructure(report *domain.StructureReport) error
}

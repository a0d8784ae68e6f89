package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"telegram-chat-analyzer/internal/core/query"
	"telegram-chat-analyzer/internal/core/services"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/config"
	"telegram-chat-analyzer/internal/ports"
)

// ChatUseCase объединяет операции чтения и анализа одного файла экспорта.
// Создается один раз при старте и передается обработчикам запросов.
type ChatUseCase struct {
	cfg       *config.Config
	source    ports.MessageSource
	counter   ports.MessageCounter
	analytics *services.AnalyticsService
	profiles  *services.ProfileService
	users     *services.UserService
	cursor    *query.Cursor
	flights   singleflight.Group
	logger    *slog.Logger
}

// NewChatUseCase создает новый экземпляр ChatUseCase.
func NewChatUseCase(
	cfg *config.Config,
	source ports.MessageSource,
	counter ports.MessageCounter,
	analytics *services.AnalyticsService,
	profiles *services.ProfileService,
	users *services.UserService,
	logger *slog.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		cfg:       cfg,
		source:    source,
		counter:   counter,
		analytics: analytics,
		profiles:  profiles,
		users:     users,
		cursor:    query.NewCursor(source),
		logger:    logger,
	}
}

// SourceAvailable сообщает, доступен ли файл экспорта.
func (uc *ChatUseCase) SourceAvailable() bool {
	return uc.source.Available()
}

func (uc *ChatUseCase) ensureSource() error {
	if !uc.source.Available() {
		return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, uc.source.Path())
	}
	return nil
}

// GetChatInfo возвращает метаданные чата и приблизительное число сообщений.
func (uc *ChatUseCase) GetChatInfo(ctx context.Context) (domain.ChatMetadata, error) {
	if err := uc.ensureSource(); err != nil {
		return domain.ChatMetadata{}, err
	}

	meta := uc.source.ReadMetadata(ctx)
	if meta.Error != "" {
		return meta, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, meta.Error)
	}
	meta.TotalMessages = uc.counter.Count(ctx)
	return meta, nil
}

// StreamMessages возвращает страницу сообщений. Поле query в фильтре игнорируется.
// Общее число - приблизительное, из быстрого подсчета по строкам.
func (uc *ChatUseCase) StreamMessages(ctx context.Context, spec domain.FilterSpec, skip, limit int) (*domain.MessagePage, error) {
	if err := uc.ensureSource(); err != nil {
		return nil, err
	}

	spec.Query = ""
	filter, err := query.NewFilter(spec)
	if err != nil {
		return nil, err
	}

	skip, limit = uc.window(skip, limit)
	messages, err := uc.cursor.Collect(ctx, filter, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать сообщения: %w", err)
	}

	return &domain.MessagePage{
		Messages:    messages,
		Total:       uc.counter.Count(ctx),
		Approximate: true,
		Offset:      skip,
		Limit:       limit,
	}, nil
}

// SearchMessages ищет сообщения по регулярному выражению без учета регистра.
// Возвращает окно результатов и точное число совпадений.
func (uc *ChatUseCase) SearchMessages(ctx context.Context, spec domain.FilterSpec, skip, limit int) (*domain.SearchResult, error) {
	if err := uc.ensureSource(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Query) == "" {
		return nil, fmt.Errorf("%w: пустой поисковый запрос", domain.ErrInvalidFilter)
	}

	filter, err := query.NewFilter(spec)
	if err != nil {
		return nil, err
	}

	skip, limit = uc.window(skip, limit)
	messages, total, err := uc.cursor.Search(ctx, filter, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить поиск: %w", err)
	}

	return &domain.SearchResult{
		Query:      spec.Query,
		Messages:   messages,
		TotalCount: total,
		Offset:     skip,
		Limit:      limit,
	}, nil
}

// GetUserList возвращает список авторов сообщений.
func (uc *ChatUseCase) GetUserList(ctx context.Context) ([]domain.ChatUser, error) {
	if err := uc.ensureSource(); err != nil {
		return nil, err
	}

	v, err, _ := uc.share(ctx, "user_list", func(ctx context.Context) (any, error) {
		return uc.users.Users(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ChatUser), nil
}

// GetUserProfile возвращает профиль пользователя. Одновременные запросы
// одного профиля выполняют один проход по файлу.
func (uc *ChatUseCase) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if err := uc.ensureSource(); err != nil {
		return nil, err
	}

	v, err, shared := uc.share(ctx, services.ProfileCacheKey(userID), func(ctx context.Context) (any, error) {
		return uc.profiles.UserProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		uc.logger.DebugContext(ctx, "Профиль получен из общего запроса", "user_id", userID)
	}
	return v.(*domain.UserProfile), nil
}

// GetUserMessages возвращает окно сообщений одного пользователя.
func (uc *ChatUseCase) GetUserMessages(ctx context.Context, userID string, skip, limit int) (*domain.UserMessages, error) {
	if err := uc.ensureSource(); err != nil {
		return nil, err
	}

	skip, limit = uc.window(skip, limit)
	messages, err := uc.cursor.Collect(ctx, query.ForUser(userID), skip, limit)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать сообщения пользователя: %w", err)
	}

	return &domain.UserMessages{
		UserID:   userID,
		Messages: messages,
		Offset:   skip,
		Limit:    limit,
		Count:    len(messages),
	}, nil
}

// GetChatAnalytics возвращает статистику по чату. Ошибка возвращается при отсутствии
// файла и при отмене контекста вызывающего: сбой самой агрегации дает нулевую статистику.
func (uc *ChatUseCase) GetChatAnalytics(ctx context.Context, sampleSize int) (*domain.ChatAnalytics, error) {
	if err := uc.ensureSource(); err != nil {
		return nil, err
	}
	if sampleSize <= 0 {
		sampleSize = uc.cfg.Processing.DefaultSampleSize
	}

	key := fmt.Sprintf("chat_analytics_%d", sampleSize)
	v, err, _ := uc.share(ctx, key, func(ctx context.Context) (any, error) {
		return uc.analytics.ChatAnalytics(ctx, sampleSize), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ChatAnalytics), nil
}

// share выполняет fn один раз для всех одновременных вызовов с тем же ключом.
// Общее вычисление не зависит от отмены контекста отдельного вызывающего:
// отмена прерывает только ожидание этого вызывающего.
func (uc *ChatUseCase) share(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error, bool) {
	flightCtx := context.WithoutCancel(ctx)
	ch := uc.flights.DoChan(key, func() (any, error) {
		return fn(flightCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}

// window нормализует параметры окна: отрицательный сдвиг становится нулем,
// лимит ограничивается сверху max_page_size.
func (uc *ChatUseCase) window(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit < 0 {
		limit = 0
	}
	if maxPage := uc.cfg.Processing.MaxPageSize; maxPage > 0 && limit > maxPage {
		limit = maxPage
	}
	return skip, limit
}

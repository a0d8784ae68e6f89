package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/config"
)

// ChatService определяет операции над экспортом чата, которые обслуживает HTTP API.
type ChatService interface {
	SourceAvailable() bool
	GetChatInfo(ctx context.Context) (domain.ChatMetadata, error)
	StreamMessages(ctx context.Context, spec domain.FilterSpec, skip, limit int) (*domain.MessagePage, error)
	SearchMessages(ctx context.Context, spec domain.FilterSpec, skip, limit int) (*domain.SearchResult, error)
	GetUserList(ctx context.Context) ([]domain.ChatUser, error)
	GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetUserMessages(ctx context.Context, userID string, skip, limit int) (*domain.UserMessages, error)
	GetChatAnalytics(ctx context.Context, sampleSize int) (*domain.ChatAnalytics, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	service    ChatService
	taskStore  *TaskStore
	logger     *slog.Logger

	// tasksCtx отменяется при остановке сервера и прерывает фоновые задачи.
	tasksCtx    context.Context
	cancelTasks context.CancelFunc
	running     sync.WaitGroup
}

// New создает новый экземпляр Server и запускает очистку просроченных задач.
func New(cfg *config.Config, service ChatService, taskStore *TaskStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	tasksCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:         cfg,
		service:     service,
		taskStore:   taskStore,
		logger:      logger,
		tasksCtx:    tasksCtx,
		cancelTasks: cancel,
	}

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if interval := cfg.Processing.CleanupInterval; interval > 0 {
		s.taskStore.StartCleanupTicker(tasksCtx, interval)
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Промежуточное ПО
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	if s.cfg.Metrics.Enabled && s.cfg.Metrics.Path != "" {
		r.Handle(s.cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)

		api.Get("/chat/info", s.handleChatInfo)
		api.Get("/chat/messages", s.handleMessages)

		api.Get("/search", s.handleSearch)
		api.Post("/search", s.handleAdvancedSearch)

		api.Route("/users", func(users chi.Router) {
			users.Get("/", s.handleUsers)
			users.Get("/{userID}", s.handleUserProfile)
			users.Get("/{userID}/messages", s.handleUserMessages)
		})

		api.Route("/analytics", func(analytics chi.Router) {
			analytics.Get("/overview", s.handleAnalyticsOverview)
			analytics.Get("/activity", s.handleActivity)
			analytics.Get("/topics", s.handleTopics)
			analytics.Get("/user-rankings", s.handleUserRankings)
			analytics.Get("/export.xlsx", s.handleAnalyticsExport)
		})

		api.Route("/tasks", func(tasks chi.Router) {
			tasks.Post("/analytics", s.handleCreateAnalyticsTask)
			tasks.Post("/profile/{userID}", s.handleCreateProfileTask)
			tasks.Get("/{taskID}", s.handleTaskStatus)
			tasks.Get("/{taskID}/result", s.handleTaskResult)
		})
	})

	return r
}

// Handler возвращает корневой обработчик маршрутов.
func (s *Server) Handler() http.Handler {
	return s.HTTPServer.Handler
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP-сервер запущен", "addr", s.HTTPServer.Addr)
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера и дожидается остановки фоновых задач
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Завершение работы HTTP-сервера")
	err := s.HTTPServer.Shutdown(ctx)
	s.cancelTasks()
	s.running.Wait()
	return err
}

// startTask регистрирует фоновую задачу и выполняет run в отдельной горутине
// с таймаутом processing.task_timeout.
func (s *Server) startTask(kind string, run func(ctx context.Context) (any, error)) string {
	taskID := uuid.NewString()

	ttl := s.cfg.Processing.TaskTTL
	if ttl <= 0 {
		ttl = config.DefaultTaskTTL
	}
	s.taskStore.CreateTask(taskID, kind, ttl)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		logger := s.logger.With("task_id", taskID, "kind", kind)

		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Фоновая задача аварийно завершилась", "panic", rec)
				s.taskStore.UpdateTaskError(taskID, fmt.Sprintf("panic: %v", rec))
			}
		}()

		s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

		ctx := s.tasksCtx
		if timeout := s.cfg.Processing.TaskTimeout; timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		result, err := run(ctx)
		if err != nil {
			logger.Error("Фоновая задача завершилась ошибкой", "error", err)
			s.taskStore.UpdateTaskError(taskID, err.Error())
			return
		}

		s.taskStore.UpdateTaskResult(taskID, result)
		logger.Info("Фоновая задача выполнена", "duration", time.Since(start))
	}()

	return taskID
}

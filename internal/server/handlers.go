package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"telegram-chat-analyzer/internal/adapters/exporter"
	"telegram-chat-analyzer/internal/domain"
)

// Значения параметров по умолчанию.
const (
	defaultMessagesLimit = 100
	defaultSearchLimit   = 50
	activitySampleSize   = 5000
	topicsSampleSize     = 5000
	rankingsSampleSize   = 10000

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errBadParam = errors.New("bad request parameter")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChatInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetChatInfo(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r, defaultMessagesLimit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	page, err := s.service.StreamMessages(r.Context(), filterFromQuery(r), skip, limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r, defaultSearchLimit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	spec := filterFromQuery(r)
	spec.Query = r.URL.Query().Get("query")
	s.search(w, r, spec, skip, limit)
}

func (s *Server) handleAdvancedSearch(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r, defaultSearchLimit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	var spec domain.FilterSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.respondError(w, http.StatusBadRequest, "Не удалось декодировать тело запроса")
		return
	}
	s.search(w, r, spec, skip, limit)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, spec domain.FilterSpec, skip, limit int) {
	result, err := s.service.SearchMessages(r.Context(), spec, skip, limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.GetUserList(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.service.GetUserProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUserMessages(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r, defaultMessagesLimit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	messages, err := s.service.GetUserMessages(r.Context(), chi.URLParam(r, "userID"), skip, limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	analytics, ok := s.analytics(w, r, 0)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	analytics, ok := s.analytics(w, r, activitySampleSize)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"peak_hours": analytics.PeakHours,
		"peak_days":  analytics.PeakDays,
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	analytics, ok := s.analytics(w, r, topicsSampleSize)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"topics": analytics.TopTopics})
}

func (s *Server) handleUserRankings(w http.ResponseWriter, r *http.Request) {
	analytics, ok := s.analytics(w, r, rankingsSampleSize)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"most_active":        analytics.MostActiveUsers,
		"emoji_users":        analytics.EmojiUsers,
		"media_users":        analytics.MediaUsers,
		"long_message_users": analytics.LongMessageUsers,
		"forwarding_users":   analytics.ForwardingUsers,
	})
}

func (s *Server) handleAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	analytics, ok := s.analytics(w, r, 0)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := exporter.NewXLSXExporter(&buf, s.logger).ExportAnalytics(analytics); err != nil {
		s.logger.ErrorContext(r.Context(), "Не удалось сформировать xlsx", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Не удалось сформировать отчет")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="chat_analytics.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WarnContext(r.Context(), "failed to write xlsx response", "error", err)
	}
}

// analytics читает sample_size из запроса (с заданным значением по умолчанию) и
// возвращает статистику. При ошибке ответ уже отправлен.
func (s *Server) analytics(w http.ResponseWriter, r *http.Request, defaultSample int) (*domain.ChatAnalytics, bool) {
	sampleSize, err := intParam(r, "sample_size", defaultSample)
	if err != nil {
		s.respondServiceError(w, r, err)
		return nil, false
	}

	analytics, err := s.service.GetChatAnalytics(r.Context(), sampleSize)
	if err != nil {
		s.respondServiceError(w, r, err)
		return nil, false
	}
	return analytics, true
}

func (s *Server) handleCreateAnalyticsTask(w http.ResponseWriter, r *http.Request) {
	sampleSize, err := intParam(r, "sample_size", 0)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if !s.service.SourceAvailable() {
		s.respondServiceError(w, r, domain.ErrSourceUnavailable)
		return
	}

	taskID := s.startTask(TaskKindAnalytics, func(ctx context.Context) (any, error) {
		return s.service.GetChatAnalytics(ctx, sampleSize)
	})
	s.respondJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleCreateProfileTask(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !s.service.SourceAvailable() {
		s.respondServiceError(w, r, domain.ErrSourceUnavailable)
		return
	}

	taskID := s.startTask(TaskKindProfile, func(ctx context.Context) (any, error) {
		return s.service.GetUserProfile(ctx, userID)
	})
	s.respondJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	if task.Status != TaskStatusCompleted {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Задача не завершена: %s", task.Status))
		return
	}
	s.respondJSON(w, http.StatusOK, task.Result)
}

// filterFromQuery собирает фильтр из повторяемых параметров user_id и message_type
// и границ date_from/date_to.
func filterFromQuery(r *http.Request) domain.FilterSpec {
	q := r.URL.Query()
	return domain.FilterSpec{
		UserIDs:      nonEmpty(q["user_id"]),
		DateFrom:     q.Get("date_from"),
		DateTo:       q.Get("date_to"),
		MessageTypes: nonEmpty(q["message_type"]),
	}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func pageParams(r *http.Request, defaultLimit int) (skip, limit int, err error) {
	if skip, err = intParam(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = intParam(r, "limit", defaultLimit); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s должен быть целым числом", errBadParam, name)
	}
	return v, nil
}

// respondServiceError сопоставляет ошибку с HTTP-статусом.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, domain.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidFilter), errors.Is(err, errBadParam):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Ошибка обработки запроса", "path", r.URL.Path, "error", err)
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

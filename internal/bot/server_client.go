package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/domain"
)

// ServerClient - клиент для взаимодействия с API бэкенд-сервера.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient создает новый экземпляр ServerClient.
func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout, // Общий таймаут для запросов
		},
	}
}

// StartTaskResponse - ответ на запуск фоновой задачи.
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

// TaskStatusResponse - статус фоновой задачи.
type TaskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// APIError - ответ бэкенда с неожиданным статусом.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound сообщает, что бэкенд ответил 404: файл экспорта недоступен или задача не найдена.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsBadRequest сообщает, что бэкенд отклонил параметры запроса.
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}

// GetChatInfo запрашивает метаданные чата.
func (c *ServerClient) GetChatInfo(ctx context.Context) (*domain.ChatMetadata, error) {
	var info domain.ChatMetadata
	if err := c.do(ctx, http.MethodGet, "/api/chat/info", nil, http.StatusOK, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Search выполняет поиск сообщений по регулярному выражению.
func (c *ServerClient) Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))

	var result domain.SearchResult
	if err := c.do(ctx, http.MethodGet, "/api/search", params, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartAnalyticsTask запускает расчет статистики по чату.
func (c *ServerClient) StartAnalyticsTask(ctx context.Context, sampleSize int) (*StartTaskResponse, error) {
	var params url.Values
	if sampleSize > 0 {
		params = url.Values{"sample_size": {strconv.Itoa(sampleSize)}}
	}

	var result StartTaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks/analytics", params, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartProfileTask запускает построение профиля пользователя.
func (c *ServerClient) StartProfileTask(ctx context.Context, userID string) (*StartTaskResponse, error) {
	var result StartTaskResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks/profile/"+url.PathEscape(userID), nil, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskStatus запрашивает статус задачи.
func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	var result TaskStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskResult запрашивает результат выполненной задачи и декодирует его в dst.
func (c *ServerClient) GetTaskResult(ctx context.Context, taskID string, dst any) error {
	return c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(taskID)+"/result", nil, http.StatusOK, dst)
}

func (c *ServerClient) do(ctx context.Context, method, path string, params url.Values, wantStatus int, dst any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage извлекает поле error из тела ответа бэкенда.
func errorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

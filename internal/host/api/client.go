// Package api implements the HTTP client the host uses to reach the content backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/sitekeeper/pkg/api"
)

// ErrServer is wrapped by every non-2xx backend response
var ErrServer = errors.New("backend error")

// StatusError описывает ответ backend с кодом вне 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrServer
}

// Client представляет HTTP клиент для взаимодействия с backend
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchAll получает все содержимое сайта
func (c *Client) FetchAll(ctx context.Context) (*api.ContentResponse, error) {
	var resp api.ContentResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/content", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch content request failed: %w", err)
	}
	if resp.Content == nil {
		resp.Content = map[string]string{}
	}
	return &resp, nil
}

// SaveBatch отправляет пакет изменений на backend
func (c *Client) SaveBatch(ctx context.Context, req api.BatchSaveRequest) (*api.BatchSaveResponse, error) {
	var resp api.BatchSaveResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/content/batch", req, &resp); err != nil {
		return nil, fmt.Errorf("save batch request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность backend
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			msg = errResp.Error
			if errResp.Message != "" {
				msg += ": " + errResp.Message
			}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

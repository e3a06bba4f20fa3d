package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/server/storage"
	"github.com/iudanet/sitekeeper/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// mockContentStorage is a mock implementation of ContentStorage for testing
type mockContentStorage struct {
	fields    map[string]storage.Field
	updatedAt time.Time
	getErr    error
	saveErr   error
	saved     [][]storage.Field
	mu        sync.Mutex
}

func (m *mockContentStorage) GetAll(ctx context.Context) (map[string]string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, time.Time{}, m.getErr
	}
	content := make(map[string]string, len(m.fields))
	for name, f := range m.fields {
		content[name] = f.Value
	}
	return content, m.updatedAt, nil
}

func (m *mockContentStorage) SaveFields(ctx context.Context, fields []storage.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.fields == nil {
		m.fields = make(map[string]storage.Field)
	}
	for _, f := range fields {
		m.fields[f.Name] = f
	}
	m.saved = append(m.saved, fields)
	return nil
}

func postBatch(t *testing.T, h *ContentHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/content/batch", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.SaveBatch(w, req)
	return w
}

func encodeBatch(t *testing.T, changes ...api.PendingChange) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(api.BatchSaveRequest{Changes: changes}))
	return buf.String()
}

func TestContentHandler_GetContent(t *testing.T) {
	updated := time.UnixMilli(1700000000123)
	store := &mockContentStorage{
		fields: map[string]storage.Field{
			"hero_title": {Name: "hero_title", Value: "Hello"},
			"footer":     {Name: "footer", Value: "(c) 2026"},
		},
		updatedAt: updated,
	}
	h := NewContentHandler(setupTestLogger(), store)

	w := httptest.NewRecorder()
	h.GetContent(w, httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.ContentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, map[string]string{"hero_title": "Hello", "footer": "(c) 2026"}, resp.Content)
	assert.Equal(t, int64(1700000000123), resp.UpdatedAt)
}

func TestContentHandler_GetContent_Empty(t *testing.T) {
	h := NewContentHandler(setupTestLogger(), &mockContentStorage{})

	w := httptest.NewRecorder()
	h.GetContent(w, httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"content":{},"updated_at":0}`, w.Body.String())
}

func TestContentHandler_GetContent_StorageError(t *testing.T) {
	h := NewContentHandler(setupTestLogger(), &mockContentStorage{getErr: errors.New("disk gone")})

	w := httptest.NewRecorder()
	h.GetContent(w, httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk gone")
}

func TestContentHandler_SaveBatch(t *testing.T) {
	store := &mockContentStorage{}
	h := NewContentHandler(setupTestLogger(), store)

	w := postBatch(t, h, encodeBatch(t,
		api.PendingChange{FieldName: "hero_title", Value: "New", Format: "plain", Source: "editor-1"},
		api.PendingChange{FieldName: "about", Value: "**bold**", Format: "markdown", Source: "editor-1"},
	))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.BatchSaveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.SavedCount)
	assert.Equal(t, []api.FieldResult{
		{FieldName: "hero_title", Value: "New", Success: true},
		{FieldName: "about", Value: "**bold**", Success: true},
	}, resp.Results)

	require.Len(t, store.saved, 1, "batch must be stored in one call")
	assert.Equal(t, models.FormatMarkdown, store.fields["about"].Format)
	assert.Equal(t, "editor-1", store.fields["about"].Source)
}

func TestContentHandler_SaveBatch_PerFieldErrors(t *testing.T) {
	store := &mockContentStorage{}
	h := NewContentHandler(setupTestLogger(), store)

	w := postBatch(t, h, encodeBatch(t,
		api.PendingChange{FieldName: "hero_title", Value: "ok"},
		api.PendingChange{FieldName: "", Value: "nameless"},
		api.PendingChange{FieldName: "huge", Value: strings.Repeat("x", storage.MaxValueBytes+1)},
		api.PendingChange{FieldName: "weird", Value: "v", Format: "html"},
	))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.BatchSaveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.False(t, resp.Success)
	assert.Equal(t, 1, resp.SavedCount)
	require.Len(t, resp.Results, 4)

	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, storage.ErrEmptyFieldName.Error(), resp.Results[1].Error)
	assert.False(t, resp.Results[2].Success)
	assert.Equal(t, storage.ErrValueTooLarge.Error(), resp.Results[2].Error)
	assert.Empty(t, resp.Results[2].Value)
	assert.False(t, resp.Results[3].Success)
	assert.Contains(t, resp.Results[3].Error, "unknown format")

	assert.Equal(t, map[string]storage.Field{
		"hero_title": {Name: "hero_title", Value: "ok", Format: models.FormatPlain},
	}, store.fields)
}

func TestContentHandler_SaveBatch_AllInvalid(t *testing.T) {
	store := &mockContentStorage{}
	h := NewContentHandler(setupTestLogger(), store)

	w := postBatch(t, h, encodeBatch(t, api.PendingChange{FieldName: "", Value: "x"}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp api.BatchSaveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Zero(t, resp.SavedCount)
	assert.Empty(t, store.saved, "storage must not be called without valid fields")
}

func TestContentHandler_SaveBatch_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{not json"},
		{name: "no changes", body: `{"changes":[]}`},
		{name: "missing changes", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewContentHandler(setupTestLogger(), &mockContentStorage{})

			w := postBatch(t, h, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestContentHandler_SaveBatch_StorageError(t *testing.T) {
	h := NewContentHandler(setupTestLogger(), &mockContentStorage{saveErr: errors.New("locked")})

	w := postBatch(t, h, encodeBatch(t, api.PendingChange{FieldName: "a", Value: "1"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRoutes(t *testing.T) {
	store := &mockContentStorage{}
	mux := Routes(NewContentHandler(setupTestLogger(), store), NewHealthHandler(setupTestLogger(), nil, "test"))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "get content", method: http.MethodGet, path: "/api/v1/content", wantStatus: http.StatusOK},
		{name: "save batch", method: http.MethodPost, path: "/api/v1/content/batch", body: `{"changes":[{"field_name":"a","value":"1","format":"plain","source":"t"}]}`, wantStatus: http.StatusOK},
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "wrong method", method: http.MethodDelete, path: "/api/v1/content", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/api/v1/users", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging_Levels(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		wantLevel string
		status    int
	}{
		{name: "get content ok", method: http.MethodGet, path: "/api/v1/content", status: http.StatusOK, wantLevel: "INFO"},
		{name: "batch bad request", method: http.MethodPost, path: "/api/v1/content/batch", status: http.StatusBadRequest, wantLevel: "WARN"},
		{name: "not found", method: http.MethodGet, path: "/api/v1/missing", status: http.StatusNotFound, wantLevel: "WARN"},
		{name: "server error", method: http.MethodPost, path: "/api/v1/content/batch", status: http.StatusInternalServerError, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf strings.Builder
			logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			out := logBuf.String()
			assert.Contains(t, out, "level="+tt.wantLevel)
			assert.Contains(t, out, tt.method)
			assert.Contains(t, out, tt.path)
		})
	}
}

func TestLogging_CapturesResponseMetrics(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Hello, World!")) // 13 bytes
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))

	out := logBuf.String()
	assert.Contains(t, out, "duration_ms=")
	assert.Contains(t, out, "bytes_written=13")
	assert.Contains(t, out, "status=200")
}

func TestLogging_SkipPaths(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := Logging(logger, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, logBuf.String())
	// request id выставляется и для пропущенных путей
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/content", nil))
	assert.Contains(t, logBuf.String(), "HTTP request")
}

func TestLogging_RequestID(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("propagated", func(t *testing.T) {
		logBuf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Contains(t, logBuf.String(), "request_id=req-42")
	})
}

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		writeHeader    bool
		statusCode     int
		expectedStatus int
	}{
		{name: "Explicit 201", writeHeader: true, statusCode: http.StatusCreated, expectedStatus: http.StatusCreated},
		{name: "Explicit 404", writeHeader: true, statusCode: http.StatusNotFound, expectedStatus: http.StatusNotFound},
		{name: "Default 200 (no WriteHeader)", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

			if tt.writeHeader {
				rw.WriteHeader(tt.statusCode)
			}
			_, _ = rw.Write([]byte("test"))

			assert.Equal(t, tt.expectedStatus, rw.statusCode)
		})
	}
}

func TestResponseWriter_CapturesBytesWritten(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	n, err := rw.Write([]byte("Hello, "))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = rw.Write([]byte("World!"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	assert.Equal(t, int64(13), rw.written)
}

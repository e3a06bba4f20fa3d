package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/server/storage"
	"github.com/iudanet/sitekeeper/pkg/api"
)

// maxBatchBytes ограничивает размер тела пакетного запроса
const maxBatchBytes = 8 << 20

// ContentHandler обрабатывает чтение и пакетное сохранение содержимого
type ContentHandler struct {
	logger  *slog.Logger
	storage storage.ContentStorage
}

// NewContentHandler creates a new content handler
func NewContentHandler(logger *slog.Logger, storage storage.ContentStorage) *ContentHandler {
	return &ContentHandler{
		logger:  logger,
		storage: storage,
	}
}

// GetContent обрабатывает GET /api/v1/content
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	content, updatedAt, err := h.storage.GetAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to load content", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}

	resp := api.ContentResponse{Content: content}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = updatedAt.UnixMilli()
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// SaveBatch обрабатывает POST /api/v1/content/batch.
// Невалидные поля получают ошибку в своем результате, остальные сохраняются одной транзакцией.
func (h *ContentHandler) SaveBatch(w http.ResponseWriter, r *http.Request) {
	var req api.BatchSaveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes)).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode batch request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Changes) == 0 {
		writeError(w, http.StatusBadRequest, "invalid request", "changes required")
		return
	}

	results := make([]api.FieldResult, len(req.Changes))
	valid := make([]storage.Field, 0, len(req.Changes))
	index := make([]int, 0, len(req.Changes))

	for i, change := range req.Changes {
		results[i] = api.FieldResult{FieldName: change.FieldName}

		format, err := models.ParseFormat(change.Format)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		field := storage.Field{
			Name:   change.FieldName,
			Value:  change.Value,
			Format: format,
			Source: change.Source,
		}
		if err := field.Validate(); err != nil {
			results[i].Error = fieldMessage(err)
			continue
		}
		valid = append(valid, field)
		index = append(index, i)
	}

	if len(valid) > 0 {
		if err := h.storage.SaveFields(r.Context(), valid); err != nil {
			h.logger.Error("Failed to save batch", "error", err, "fields", len(valid))
			writeError(w, http.StatusInternalServerError, "internal server error", "")
			return
		}
	}

	resp := api.BatchSaveResponse{Results: results}
	for n, i := range index {
		results[i].Success = true
		results[i].Value = valid[n].Value
		resp.SavedCount++
	}
	resp.Success = resp.SavedCount == len(req.Changes)

	h.logger.Info("Batch saved",
		"received", len(req.Changes),
		"saved", resp.SavedCount)

	writeJSON(w, h.logger, http.StatusOK, resp)
}

// fieldMessage возвращает короткое описание ошибки поля
func fieldMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrEmptyFieldName):
		return storage.ErrEmptyFieldName.Error()
	case errors.Is(err, storage.ErrValueTooLarge):
		return storage.ErrValueTooLarge.Error()
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: msg, Message: detail})
}

package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/iudanet/sitekeeper/pkg/api"
)

// contentTimeout ограничивает ожидание content-response от клиента
const contentTimeout = 5 * time.Second

// statusResponse is the admin view of the attached client
type statusResponse struct {
	LastSeen int64 `json:"last_seen,omitempty"` // epoch millis
	Version  int64 `json:"version"`
	Attached bool  `json:"attached"`
	Live     bool  `json:"live"`
}

// AdminHandler exposes the operator endpoints of the host:
//
//	GET  /admin/status   attached client state
//	GET  /admin/content  content currently held by the client
//	POST /admin/resync   force the client to re-fetch remote truth
func (h *Host) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/status", h.handleStatus)
	mux.HandleFunc("GET /admin/content", h.handleContent)
	mux.HandleFunc("POST /admin/resync", h.handleResync)
	return mux
}

func (h *Host) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.Status()
	resp := statusResponse{Version: st.Version, Attached: st.Attached, Live: st.Live}
	if !st.LastSeen.IsZero() {
		resp.LastSeen = st.LastSeen.UnixMilli()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Host) handleContent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), contentTimeout)
	defer cancel()

	payload, err := h.RequestContent(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *Host) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := h.ForceResync(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Host) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, ErrNoClient):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	h.logger.Warn("Admin request failed", "error", err, "status", status)
	h.writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}

func (h *Host) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

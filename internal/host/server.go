package host

import (
	"context"
	"net/http"

	"github.com/iudanet/sitekeeper/internal/transport/ws"
)

// Handler accepts the embedded client over a websocket. A new connection replaces the previous one.
func (h *Host) Handler(allowed []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		peer, err := ws.Accept(w, r, allowed, h.logger)
		if err != nil {
			h.logger.Warn("Rejected client connection", "remote_addr", r.RemoteAddr, "error", err)
			return
		}
		defer func() {
			_ = peer.Close()
		}()

		h.Attach(peer)
		defer h.detachIf(peer)

		h.logger.Info("Client connected", "origin", peer.Origin())

		ctx := r.Context()
		go func() {
			if err := h.Probe(ctx); err != nil {
				h.logger.Warn("Failed to probe client", "error", err)
			}
		}()

		if err := peer.Run(ctx, h.HandleMessage); err != nil && !isDone(ctx) {
			h.logger.Warn("Client connection closed", "error", err)
			return
		}
		h.logger.Info("Client disconnected", "origin", peer.Origin())
	})
}

func (h *Host) detachIf(peer Sender) {
	h.mu.Lock()
	current := h.peer
	h.mu.Unlock()

	if current == peer {
		h.Detach()
	}
}

func isDone(ctx context.Context) bool {
	return ctx.Err() != nil
}

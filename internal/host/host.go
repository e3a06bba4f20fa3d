// Package host is the host side of the cross-origin sync protocol.
// It forwards save requests from the embedded client to the backend collaborator
// and feeds the backend's durable state back to the client.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/sitekeeper/internal/protocol"
	"github.com/iudanet/sitekeeper/pkg/api"
)

// ErrNoClient is returned when no embedded client is attached
var ErrNoClient = errors.New("no client attached")

// Sender delivers an envelope to the embedded client
type Sender interface {
	Send(ctx context.Context, env api.Envelope) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, env api.Envelope) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, env api.Envelope) error {
	return f(ctx, env)
}

// Status describes the attached client as seen by the host
type Status struct {
	LastSeen time.Time
	Version  int64
	Attached bool
	Live     bool
}

// Host handles messages coming from one embedded client
type Host struct {
	backend  Backend
	gate     *protocol.Gate
	logger   *slog.Logger
	now      func() time.Time
	peer     Sender
	waiters  []chan api.ContentPayload
	probe    string // nonce последнего ping
	lastSeen time.Time
	version  int64
	live     bool
	mu       sync.Mutex
}

// New creates a host forwarding to backend
func New(backend Backend, gate *protocol.Gate, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{
		backend: backend,
		gate:    gate,
		logger:  logger,
		now:     time.Now,
	}
}

// Attach makes peer the current client. Liveness must be confirmed again with Probe.
func (h *Host) Attach(peer Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.peer = peer
	h.live = false
	h.probe = ""
}

// Detach forgets the current client
func (h *Host) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.peer = nil
	h.live = false
	h.probe = ""
}

// Status returns the state of the attached client
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Status{
		Attached: h.peer != nil,
		Live:     h.live,
		LastSeen: h.lastSeen,
		Version:  h.version,
	}
}

// Live reports whether the attached client answered the last probe
func (h *Host) Live() bool {
	return h.Status().Live
}

// Probe sends a ping; the client is live once it echoes the ping's nonce in access-confirmed
func (h *Host) Probe(ctx context.Context) error {
	env, err := api.NewEnvelope(api.TypePing, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.probe = env.Nonce
	h.mu.Unlock()

	return h.sendEnvelope(ctx, env)
}

// ForceResync tells the client to drop its grace windows, reload and re-fetch remote truth
func (h *Host) ForceResync(ctx context.Context) error {
	return h.send(ctx, api.TypeForceResync, nil)
}

// RequestContent asks the client for its current content and waits for the answer
func (h *Host) RequestContent(ctx context.Context) (*api.ContentPayload, error) {
	waiter := make(chan api.ContentPayload, 1)

	h.mu.Lock()
	h.waiters = append(h.waiters, waiter)
	h.mu.Unlock()

	defer h.dropWaiter(waiter)

	if err := h.send(ctx, api.TypeRequestContent, nil); err != nil {
		return nil, err
	}

	select {
	case payload := <-waiter:
		return &payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Host) dropWaiter(waiter chan api.ContentPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, w := range h.waiters {
		if w == waiter {
			h.waiters = append(h.waiters[:i], h.waiters[i+1:]...)
			return
		}
	}
}

// HandleMessage processes one message from the client
func (h *Host) HandleMessage(ctx context.Context, origin string, raw []byte) error {
	env, err := h.gate.Admit(origin, raw)
	if err != nil {
		if errors.Is(err, protocol.ErrUntrustedOrigin) {
			h.logger.Debug("Dropped message from untrusted origin", "origin", origin)
		} else {
			h.logger.Warn("Rejected client message", "origin", origin, "error", err)
		}
		return err
	}

	h.mu.Lock()
	h.lastSeen = h.now()
	h.mu.Unlock()

	switch env.Type {
	case api.TypeSaveRequest:
		return h.forwardSave(ctx, env)
	case api.TypeFetchRemote:
		return h.pushRemote(ctx)
	case api.TypeAccessConfirmed:
		return h.confirm(env)
	case api.TypeContentResponse:
		return h.deliverContent(env)
	default:
		return fmt.Errorf("%w: %q", protocol.ErrUnknownMessageType, env.Type)
	}
}

func (h *Host) forwardSave(ctx context.Context, env api.Envelope) error {
	var req api.SaveRequestPayload
	if err := env.DecodePayload(&req); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedPayload, err)
	}

	resp, err := h.backend.SaveBatch(ctx, api.BatchSaveRequest{Changes: req.Changes})
	if err != nil {
		h.logger.Error("Backend save failed", "request_id", req.RequestID, "error", err)
		ack := api.SaveAckPayload{RequestID: req.RequestID}
		for _, change := range req.Changes {
			ack.Errors = append(ack.Errors, api.FieldError{
				FieldName: change.FieldName,
				Message:   "backend unavailable: " + err.Error(),
			})
		}
		return h.send(ctx, api.TypeSaveAck, ack)
	}

	requested := make(map[string]string, len(req.Changes))
	for _, change := range req.Changes {
		requested[change.FieldName] = change.Value
	}

	ack := api.SaveAckPayload{
		RequestID:  req.RequestID,
		Success:    resp.Success,
		SavedCount: resp.SavedCount,
	}
	var saved []api.FieldChange
	for _, result := range resp.Results {
		if !result.Success {
			ack.Errors = append(ack.Errors, api.FieldError{FieldName: result.FieldName, Message: result.Error})
			continue
		}
		value := result.Value
		if value == "" {
			value = requested[result.FieldName]
		}
		saved = append(saved, api.FieldChange{FieldName: result.FieldName, FieldValue: value})
	}
	// Backend без поэлементных результатов: считаем сохраненным весь пакет
	if len(resp.Results) == 0 && resp.Success {
		for _, change := range req.Changes {
			saved = append(saved, api.FieldChange{FieldName: change.FieldName, FieldValue: change.Value})
		}
	}
	if len(ack.Errors) > 0 {
		ack.Success = false
	}

	h.logger.Info("Save forwarded",
		"request_id", req.RequestID,
		"saved", ack.SavedCount,
		"failed", len(ack.Errors))

	if err := h.send(ctx, api.TypeSaveAck, ack); err != nil {
		return err
	}
	if len(saved) == 0 {
		return nil
	}
	return h.send(ctx, api.TypeApplySavedChanges, api.ApplySavedChangesPayload{Changes: saved})
}

func (h *Host) pushRemote(ctx context.Context) error {
	resp, err := h.backend.FetchAll(ctx)
	if err != nil {
		h.logger.Error("Backend fetch failed", "error", err)
		return fmt.Errorf("failed to fetch remote content: %w", err)
	}

	names := make([]string, 0, len(resp.Content))
	for name := range resp.Content {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]api.FieldChange, 0, len(names))
	for _, name := range names {
		changes = append(changes, api.FieldChange{FieldName: name, FieldValue: resp.Content[name]})
	}

	h.logger.Info("Pushing remote content", "fields", len(changes))
	return h.send(ctx, api.TypeApplySavedChanges, api.ApplySavedChangesPayload{Changes: changes})
}

func (h *Host) confirm(env api.Envelope) error {
	var payload api.AccessConfirmedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedPayload, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.probe == "" || payload.Nonce != h.probe {
		h.logger.Debug("Ignored stale access confirmation", "nonce", payload.Nonce)
		return nil
	}
	h.live = true
	h.version = payload.Version
	h.logger.Info("Client confirmed access", "version", payload.Version)
	return nil
}

func (h *Host) deliverContent(env api.Envelope) error {
	var payload api.ContentPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedPayload, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.version = payload.Version
	for _, waiter := range h.waiters {
		select {
		case waiter <- payload:
		default:
		}
	}
	return nil
}

func (h *Host) send(ctx context.Context, msgType api.MessageType, payload any) error {
	env, err := api.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return h.sendEnvelope(ctx, env)
}

func (h *Host) sendEnvelope(ctx context.Context, env api.Envelope) error {
	h.mu.Lock()
	peer := h.peer
	h.mu.Unlock()

	if peer == nil {
		return ErrNoClient
	}
	if err := peer.Send(ctx, env); err != nil {
		h.logger.Warn("Failed to send message", "type", env.Type, "error", err)
		return fmt.Errorf("failed to send %s: %w", env.Type, err)
	}
	return nil
}

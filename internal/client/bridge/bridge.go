// Package bridge is the embedded side of the cross-origin sync protocol.
// It turns operator edits into pending changes, runs the save round trip with the host
// and routes host messages to the content store.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/sitekeeper/internal/client/content"
	"github.com/iudanet/sitekeeper/internal/client/grace"
	"github.com/iudanet/sitekeeper/internal/client/pending"
	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/protocol"
	"github.com/iudanet/sitekeeper/pkg/api"
)

// DefaultSaveTimeout is used when Config.SaveTimeout is not set
const DefaultSaveTimeout = 10 * time.Second

// Config holds the bridge settings
type Config struct {
	Scope       grace.Scope
	SaveTimeout time.Duration
}

// SaveResult describes an acknowledged save
type SaveResult struct {
	RequestID string
	Fields    []string
	Saved     int
}

// inflight is a save-request waiting for its save-ack
type inflight struct {
	ack      chan api.SaveAckPayload
	expires  time.Time // после этого момента поздний ack игнорируется
	batch    []models.PendingChange
	timedOut bool
}

// Bridge connects the content store and the pending-change aggregator to the host channel
type Bridge struct {
	store    *content.Store
	pending  *pending.Aggregator
	gate     *protocol.Gate
	sender   Sender
	journal  storage.SaveJournal
	logger   *slog.Logger
	now      func() time.Time
	inflight map[string]*inflight
	cfg      Config
	mu       sync.Mutex
}

// Option configures a Bridge
type Option func(*Bridge)

// WithClock replaces time.Now for grace windows
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

// WithJournal records every acknowledged save
func WithJournal(journal storage.SaveJournal) Option {
	return func(b *Bridge) {
		b.journal = journal
	}
}

// New creates a bridge. The store's guard is the one marked by edits and saves.
func New(
	store *content.Store,
	aggregator *pending.Aggregator,
	gate *protocol.Gate,
	sender Sender,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Bridge {
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.Scope == "" {
		cfg.Scope = grace.ScopeField
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &Bridge{
		store:    store,
		pending:  aggregator,
		gate:     gate,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]*inflight),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Edit applies an operator edit locally, queues it for the next save and opens its grace window.
// The edit stays queued even when no tier could persist it.
func (b *Bridge) Edit(ctx context.Context, field, value string, format models.Format) error {
	switch field {
	case "":
		return fmt.Errorf("%w: empty field name", ErrInvalidEdit)
	case models.WildcardField:
		return fmt.Errorf("%w: field name %q is reserved", ErrInvalidEdit, field)
	}
	format, err := models.ParseFormat(string(format))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEdit, err)
	}

	b.pending.Record(field, value, format)
	b.store.Guard().Mark(b.now(), field)

	if _, err := b.store.ApplyLocal(ctx, models.FieldChange{FieldName: field, Value: value}); err != nil {
		return fmt.Errorf("failed to apply edit: %w", err)
	}
	return nil
}

// Save flushes the pending changes to the host and waits for the save-ack.
// On timeout, send failure or cancellation the batch is put back into the aggregator.
// A rejected save returns *RejectedError and re-queues only the refused fields.
func (b *Bridge) Save(ctx context.Context) (*SaveResult, error) {
	batch := b.pending.Flush()
	if len(batch) == 0 {
		return &SaveResult{}, nil
	}

	fields := make([]string, 0, len(batch))
	changes := make([]api.PendingChange, 0, len(batch))
	for _, change := range batch {
		fields = append(fields, change.FieldName)
		changes = append(changes, api.PendingChange{
			FieldName: change.FieldName,
			Value:     change.Value,
			Format:    string(change.Format),
			Source:    change.Source,
		})
	}

	now := b.now()
	if b.cfg.Scope == grace.ScopeGlobal {
		b.store.Guard().MarkAll(now)
	} else {
		b.store.Guard().Mark(now, fields...)
	}

	requestID := uuid.NewString()
	waiter := b.register(requestID, batch, now)

	env, err := api.NewEnvelope(api.TypeSaveRequest, api.SaveRequestPayload{
		RequestID: requestID,
		Changes:   changes,
	})
	if err == nil {
		err = b.sender.Send(ctx, env)
	}
	if err != nil {
		b.unregister(requestID)
		b.pending.Restore(batch)
		b.logger.Warn("Failed to send save request", "request_id", requestID, "error", err)
		return nil, fmt.Errorf("failed to send save request: %w", err)
	}

	b.logger.Info("Save request sent", "request_id", requestID, "fields", len(batch))

	timer := time.NewTimer(b.cfg.SaveTimeout)
	defer timer.Stop()

	select {
	case ack := <-waiter.ack:
		return b.finishSave(ctx, requestID, batch, fields, ack)
	case <-timer.C:
		if !b.abandon(requestID) {
			return b.finishSave(ctx, requestID, batch, fields, <-waiter.ack)
		}
		restored := b.pending.Restore(batch)
		b.logger.Warn("Save request timed out",
			"request_id", requestID,
			"timeout", b.cfg.SaveTimeout,
			"restored", restored)
		return nil, fmt.Errorf("%w: request %s after %s", ErrSaveTimeout, requestID, b.cfg.SaveTimeout)
	case <-ctx.Done():
		if !b.abandon(requestID) {
			return b.finishSave(ctx, requestID, batch, fields, <-waiter.ack)
		}
		b.pending.Restore(batch)
		return nil, ctx.Err()
	}
}

func (b *Bridge) finishSave(
	ctx context.Context,
	requestID string,
	batch []models.PendingChange,
	fields []string,
	ack api.SaveAckPayload,
) (*SaveResult, error) {
	if !ack.Success {
		failed := make(map[string]struct{}, len(ack.Errors))
		for _, fieldErr := range ack.Errors {
			failed[fieldErr.FieldName] = struct{}{}
		}
		var retry []models.PendingChange
		for _, change := range batch {
			if _, ok := failed[change.FieldName]; ok || len(failed) == 0 {
				retry = append(retry, change)
			}
		}
		b.pending.Restore(retry)

		rejected := &RejectedError{Fields: ack.Errors}
		if len(rejected.Fields) == 0 {
			rejected.Fields = []api.FieldError{{FieldName: models.WildcardField, Message: "save failed"}}
		}
		b.logger.Error("Backend rejected save",
			"request_id", requestID,
			"saved", ack.SavedCount,
			"failed_fields", rejected.FieldNames())
		return &SaveResult{RequestID: requestID, Fields: fields, Saved: ack.SavedCount}, rejected
	}

	b.recordSave(ctx, ack)
	b.logger.Info("Save acknowledged", "request_id", requestID, "saved", ack.SavedCount)
	return &SaveResult{RequestID: requestID, Fields: fields, Saved: ack.SavedCount}, nil
}

func (b *Bridge) recordSave(ctx context.Context, ack api.SaveAckPayload) {
	if b.journal == nil {
		return
	}
	rec := storage.SaveRecord{At: b.now(), RequestID: ack.RequestID, Saved: ack.SavedCount}
	if err := b.journal.RecordSave(ctx, rec); err != nil {
		b.logger.Warn("Failed to record save", "request_id", ack.RequestID, "error", err)
	}
}

func (b *Bridge) register(requestID string, batch []models.PendingChange, now time.Time) *inflight {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Забываем давно просроченные запросы
	for id, req := range b.inflight {
		if req.timedOut && now.After(req.expires) {
			delete(b.inflight, id)
		}
	}

	req := &inflight{
		ack:     make(chan api.SaveAckPayload, 1),
		batch:   batch,
		expires: now.Add(10 * b.cfg.SaveTimeout),
	}
	b.inflight[requestID] = req
	return req
}

func (b *Bridge) unregister(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.inflight, requestID)
}

// abandon keeps the request around so that a late ack can still clear the restored entries.
// It returns false when the ack has already been taken for delivery.
func (b *Bridge) abandon(requestID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	req, ok := b.inflight[requestID]
	if ok {
		req.timedOut = true
	}
	return ok
}

// Pending returns the number of fields waiting to be saved
func (b *Bridge) Pending() int {
	return b.pending.Len()
}

// HandleMessage processes one inbound message. Messages from untrusted origins are dropped
// without side effects; malformed ones are logged and dropped as a whole.
func (b *Bridge) HandleMessage(ctx context.Context, origin string, raw []byte) error {
	env, err := b.gate.Admit(origin, raw)
	if err != nil {
		if errors.Is(err, protocol.ErrUntrustedOrigin) {
			b.logger.Debug("Dropped message from untrusted origin", "origin", origin)
		} else {
			b.logger.Warn("Rejected inbound message", "origin", origin, "error", err)
		}
		return err
	}

	switch env.Type {
	case api.TypeRequestContent:
		return b.sendContent(ctx)
	case api.TypeApplySavedChanges:
		return b.applySaved(ctx, env)
	case api.TypeSaveAck:
		return b.handleAck(ctx, env)
	case api.TypeForceResync:
		return b.ForceResync(ctx)
	case api.TypePing:
		return b.confirmAccess(ctx, env)
	default:
		return fmt.Errorf("%w: %q", protocol.ErrUnknownMessageType, env.Type)
	}
}

func (b *Bridge) sendContent(ctx context.Context) error {
	snap := b.store.Snapshot()
	return b.send(ctx, api.TypeContentResponse, api.ContentPayload{
		Content: snap.Data,
		Version: snap.Version,
	})
}

func (b *Bridge) applySaved(ctx context.Context, env api.Envelope) error {
	var payload api.ApplySavedChangesPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedPayload, err)
	}

	changes := make([]models.FieldChange, 0, len(payload.Changes))
	for _, change := range payload.Changes {
		changes = append(changes, models.FieldChange{FieldName: change.FieldName, Value: change.FieldValue})
	}

	result, err := b.store.ApplyRemote(ctx, changes)
	if err != nil {
		return fmt.Errorf("failed to apply saved changes: %w", err)
	}
	b.logger.Info("Applied saved changes",
		"applied", len(result.Applied),
		"discarded", len(result.Discarded),
		"unchanged", len(result.Unchanged))
	return nil
}

func (b *Bridge) handleAck(ctx context.Context, env api.Envelope) error {
	var ack api.SaveAckPayload
	if err := env.DecodePayload(&ack); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrMalformedPayload, err)
	}

	b.mu.Lock()
	req, ok := b.inflight[ack.RequestID]
	late := ok && req.timedOut
	if ok {
		delete(b.inflight, ack.RequestID)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Warn("Save ack for unknown request", "request_id", ack.RequestID)
		return nil
	}

	if !late {
		req.ack <- ack
		return nil
	}

	// Поздний ack: запрос уже считался неудачным, пакет возвращен в aggregator
	if !ack.Success {
		b.logger.Warn("Late save ack reported failure", "request_id", ack.RequestID)
		return nil
	}
	removed := b.pending.Acknowledge(req.batch)
	b.recordSave(ctx, ack)
	b.logger.Info("Late save ack cleared restored changes", "request_id", ack.RequestID, "removed", removed)
	return nil
}

// ForceResync drops every grace window, reloads from the tiers and asks the host for remote truth
func (b *Bridge) ForceResync(ctx context.Context) error {
	b.store.Guard().Reset()

	if _, report, err := b.store.Load(ctx); err != nil {
		return fmt.Errorf("failed to reload content: %w", err)
	} else if !report.Recovered() {
		b.logger.Warn("Resync found no local content")
	}

	return b.send(ctx, api.TypeFetchRemote, nil)
}

func (b *Bridge) confirmAccess(ctx context.Context, env api.Envelope) error {
	return b.send(ctx, api.TypeAccessConfirmed, api.AccessConfirmedPayload{
		Nonce:   env.Nonce,
		Version: b.store.Version(),
	})
}

func (b *Bridge) send(ctx context.Context, msgType api.MessageType, payload any) error {
	env, err := api.NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if err := b.sender.Send(ctx, env); err != nil {
		b.logger.Warn("Failed to send message", "type", msgType, "error", err)
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}
	return nil
}

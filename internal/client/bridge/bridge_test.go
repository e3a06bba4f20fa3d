package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sitekeeper/internal/client/content"
	"github.com/iudanet/sitekeeper/internal/client/grace"
	"github.com/iudanet/sitekeeper/internal/client/pending"
	"github.com/iudanet/sitekeeper/internal/client/storage"
	"github.com/iudanet/sitekeeper/internal/client/storage/memory"
	"github.com/iudanet/sitekeeper/internal/models"
	"github.com/iudanet/sitekeeper/internal/protocol"
	"github.com/iudanet/sitekeeper/pkg/api"
)

const (
	hostOrigin = "https://admin.example.com"
	evilOrigin = "https://evil.example.com"
)

var t0 = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	bridge  *Bridge
	store   *content.Store
	pending *pending.Aggregator
	sender  *SenderMock
	journal *storage.SaveJournalMock
	clock   *testClock
	primary *memory.Tier
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	clock := &testClock{now: t0}
	primary := memory.New(models.TierPrimary)
	store, err := content.New(
		[]storage.Tier{primary, memory.New(models.TierEmergency)},
		grace.New(20*time.Second),
		nil,
		content.WithClock(clock.Now),
	)
	require.NoError(t, err)

	allow, err := protocol.NewAllowList(hostOrigin)
	require.NoError(t, err)
	validator, err := protocol.NewValidator(protocol.HostToClient...)
	require.NoError(t, err)

	f := &fixture{
		store:   store,
		pending: pending.New("editor-1"),
		sender: &SenderMock{
			SendFunc: func(ctx context.Context, env api.Envelope) error { return nil },
		},
		journal: &storage.SaveJournalMock{
			RecordSaveFunc: func(ctx context.Context, rec storage.SaveRecord) error { return nil },
		},
		clock:   clock,
		primary: primary,
	}
	f.bridge = New(store, f.pending, protocol.NewGate(allow, validator), f.sender, cfg, nil,
		WithClock(clock.Now),
		WithJournal(f.journal),
	)
	return f
}

func hostMessage(t *testing.T, msgType api.MessageType, payload any) []byte {
	t.Helper()

	env, err := api.NewEnvelope(msgType, payload)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

// ackWith отвечает на save-request синхронно из Send
func (f *fixture) ackWith(t *testing.T, ack func(req api.SaveRequestPayload) api.SaveAckPayload) {
	f.sender.SendFunc = func(ctx context.Context, env api.Envelope) error {
		if env.Type != api.TypeSaveRequest {
			return nil
		}
		var req api.SaveRequestPayload
		require.NoError(t, env.DecodePayload(&req))
		return f.bridge.HandleMessage(ctx, hostOrigin, hostMessage(t, api.TypeSaveAck, ack(req)))
	}
}

func sentOfType(sender *SenderMock, msgType api.MessageType) []api.Envelope {
	var out []api.Envelope
	for _, call := range sender.SendCalls() {
		if call.Env.Type == msgType {
			out = append(out, call.Env)
		}
	}
	return out
}

func TestBridge_Edit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	require.NoError(t, f.bridge.Edit(ctx, "hero_title", "Hello", models.FormatPlain))

	assert.Equal(t, "Hello", f.store.Current()["hero_title"])
	assert.Equal(t, 1, f.bridge.Pending())
	assert.True(t, f.store.Guard().IsGuarded("hero_title", t0))

	snap, err := f.primary.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OriginLocalEdit, snap.Origin)
}

func TestBridge_EditInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	assert.ErrorIs(t, f.bridge.Edit(ctx, "", "x", models.FormatPlain), ErrInvalidEdit)
	assert.ErrorIs(t, f.bridge.Edit(ctx, "a", "x", "html"), ErrInvalidEdit)
	assert.ErrorIs(t, f.bridge.Edit(ctx, models.WildcardField, "x", models.FormatPlain), ErrInvalidEdit)
	assert.Equal(t, 0, f.bridge.Pending())
	assert.Empty(t, f.store.Current())
	assert.Empty(t, f.store.Guard().Active(t0))

	// Отклоненная правка не открывает глобальное окно
	raw := hostMessage(t, api.TypeApplySavedChanges, api.ApplySavedChangesPayload{
		Changes: []api.FieldChange{{FieldName: "hero_title", FieldValue: "Remote"}},
	})
	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, raw))
	assert.Equal(t, models.ContentRecord{"hero_title": "Remote"}, f.store.Current())
}

func TestBridge_SaveNothingPending(t *testing.T) {
	f := newFixture(t, Config{})

	result, err := f.bridge.Save(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Saved)
	assert.Empty(t, f.sender.SendCalls())
}

func TestBridge_SaveAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.ackWith(t, func(req api.SaveRequestPayload) api.SaveAckPayload {
		return api.SaveAckPayload{RequestID: req.RequestID, Success: true, SavedCount: len(req.Changes)}
	})

	require.NoError(t, f.bridge.Edit(ctx, "hero_title", "Hello", models.FormatPlain))
	require.NoError(t, f.bridge.Edit(ctx, "body", "**Hi**", models.FormatMarkdown))
	f.clock.Advance(5 * time.Second)

	result, err := f.bridge.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, []string{"hero_title", "body"}, result.Fields)
	assert.Equal(t, 0, f.bridge.Pending())

	requests := sentOfType(f.sender, api.TypeSaveRequest)
	require.Len(t, requests, 1)
	var req api.SaveRequestPayload
	require.NoError(t, requests[0].DecodePayload(&req))
	assert.Equal(t, result.RequestID, req.RequestID)
	assert.Equal(t, []api.PendingChange{
		{FieldName: "hero_title", Value: "Hello", Format: "plain", Source: "editor-1"},
		{FieldName: "body", Value: "**Hi**", Format: "markdown", Source: "editor-1"},
	}, req.Changes)

	// Flush обновил окно: поле защищено 20 секунд от момента сохранения
	assert.True(t, f.store.Guard().IsGuarded("hero_title", t0.Add(24*time.Second)))
	assert.False(t, f.store.Guard().IsGuarded("other", t0.Add(6*time.Second)))

	require.Len(t, f.journal.RecordSaveCalls(), 1)
	rec := f.journal.RecordSaveCalls()[0].Rec
	assert.Equal(t, t0.Add(5*time.Second), rec.At)
	assert.Equal(t, result.RequestID, rec.RequestID)
}

func TestBridge_SaveGlobalScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Scope: grace.ScopeGlobal})
	f.ackWith(t, func(req api.SaveRequestPayload) api.SaveAckPayload {
		return api.SaveAckPayload{RequestID: req.RequestID, Success: true, SavedCount: 1}
	})

	require.NoError(t, f.bridge.Edit(ctx, "hero_title", "Hello", models.FormatPlain))
	_, err := f.bridge.Save(ctx)
	require.NoError(t, err)

	assert.True(t, f.store.Guard().IsGuarded("footer", t0.Add(time.Second)))
}

func TestBridge_SaveTimeoutRestoresBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{SaveTimeout: 30 * time.Millisecond})

	require.NoError(t, f.bridge.Edit(ctx, "a", "1", models.FormatPlain))
	require.NoError(t, f.bridge.Edit(ctx, "b", "1", models.FormatPlain))

	_, err := f.bridge.Save(ctx)
	require.ErrorIs(t, err, ErrSaveTimeout)
	assert.Equal(t, 2, f.bridge.Pending())
	assert.Empty(t, f.journal.RecordSaveCalls())

	requests := sentOfType(f.sender, api.TypeSaveRequest)
	require.Len(t, requests, 1)
	var req api.SaveRequestPayload
	require.NoError(t, requests[0].DecodePayload(&req))

	// Поле "b" изменено после таймаута, поздний ack не должен его снять
	require.NoError(t, f.bridge.Edit(ctx, "b", "2", models.FormatPlain))

	late := hostMessage(t, api.TypeSaveAck, api.SaveAckPayload{RequestID: req.RequestID, Success: true, SavedCount: 2})
	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, late))

	remaining := f.pending.Pending()
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].FieldName)
	assert.Equal(t, "2", remaining[0].Value)
	assert.Len(t, f.journal.RecordSaveCalls(), 1)
}

func TestBridge_SaveRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.ackWith(t, func(req api.SaveRequestPayload) api.SaveAckPayload {
		return api.SaveAckPayload{
			RequestID:  req.RequestID,
			SavedCount: 1,
			Errors:     []api.FieldError{{FieldName: "b", Message: "value too long"}},
		}
	})

	require.NoError(t, f.bridge.Edit(ctx, "a", "1", models.FormatPlain))
	require.NoError(t, f.bridge.Edit(ctx, "b", "1", models.FormatPlain))

	result, err := f.bridge.Save(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendRejected)

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, []string{"b"}, rejected.FieldNames())
	assert.Contains(t, err.Error(), "value too long")
	assert.Equal(t, 1, result.Saved)

	remaining := f.pending.Pending()
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].FieldName)
}

func TestBridge_SaveRejectedWithoutDetails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.ackWith(t, func(req api.SaveRequestPayload) api.SaveAckPayload {
		return api.SaveAckPayload{RequestID: req.RequestID}
	})

	require.NoError(t, f.bridge.Edit(ctx, "a", "1", models.FormatPlain))

	_, err := f.bridge.Save(ctx)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, []string{models.WildcardField}, rejected.FieldNames())
	assert.Equal(t, 1, f.bridge.Pending())
}

func TestBridge_SaveSendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	sendErr := errors.New("channel closed")
	f.sender.SendFunc = func(ctx context.Context, env api.Envelope) error { return sendErr }

	require.NoError(t, f.bridge.Edit(ctx, "a", "1", models.FormatPlain))

	_, err := f.bridge.Save(ctx)
	assert.ErrorIs(t, err, sendErr)
	assert.Equal(t, 1, f.bridge.Pending())
}

func TestBridge_SaveCanceled(t *testing.T) {
	f := newFixture(t, Config{SaveTimeout: time.Minute})
	require.NoError(t, f.bridge.Edit(context.Background(), "a", "1", models.FormatPlain))

	ctx, cancel := context.WithCancel(context.Background())
	f.sender.SendFunc = func(_ context.Context, env api.Envelope) error {
		cancel()
		return nil
	}

	_, err := f.bridge.Save(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.bridge.Pending())
}

func TestBridge_UntrustedOriginNeverMutates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	_, err := f.store.Save(ctx, models.ContentRecord{"hero_title": "Original"}, models.OriginTest)
	require.NoError(t, err)
	before := f.store.Snapshot()

	messages := [][]byte{
		hostMessage(t, api.TypeApplySavedChanges, api.ApplySavedChangesPayload{
			Changes: []api.FieldChange{{FieldName: "hero_title", FieldValue: "Hacked"}},
		}),
		hostMessage(t, api.TypeForceResync, nil),
		hostMessage(t, api.TypeRequestContent, nil),
		hostMessage(t, api.TypePing, nil),
	}
	for _, raw := range messages {
		err := f.bridge.HandleMessage(ctx, evilOrigin, raw)
		assert.ErrorIs(t, err, protocol.ErrUntrustedOrigin)
	}

	assert.Equal(t, before, f.store.Snapshot())
	assert.Empty(t, f.sender.SendCalls())
}

func TestBridge_MalformedNeverPartiallyApplied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	raw := []byte(`{"type":"apply-saved-changes","nonce":"n","timestamp":1,"payload":{"changes":[` +
		`{"field_name":"a","field_value":"1"},{"field_name":"b"}]}}`)

	err := f.bridge.HandleMessage(ctx, hostOrigin, raw)
	assert.ErrorIs(t, err, protocol.ErrMalformedPayload)
	assert.Empty(t, f.store.Current())
	assert.Equal(t, int64(0), f.store.Version())
}

func TestBridge_ApplySavedChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	require.NoError(t, f.bridge.Edit(ctx, "hero_title", "Local", models.FormatPlain))

	raw := hostMessage(t, api.TypeApplySavedChanges, api.ApplySavedChangesPayload{
		Changes: []api.FieldChange{
			{FieldName: "hero_title", FieldValue: "Stale"},
			{FieldName: "footer", FieldValue: "Remote"},
		},
	})
	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, raw))
	assert.Equal(t, models.ContentRecord{"hero_title": "Local", "footer": "Remote"}, f.store.Current())

	// Повторное применение того же пакета ничего не меняет
	version := f.store.Version()
	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, raw))
	assert.Equal(t, version, f.store.Version())

	// После окна удаленное значение применяется
	f.clock.Advance(20 * time.Second)
	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, raw))
	assert.Equal(t, "Stale", f.store.Current()["hero_title"])
}

func TestBridge_RequestContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.bridge.Edit(ctx, "hero_title", "Hello", models.FormatPlain))

	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, hostMessage(t, api.TypeRequestContent, nil)))

	responses := sentOfType(f.sender, api.TypeContentResponse)
	require.Len(t, responses, 1)
	var payload api.ContentPayload
	require.NoError(t, responses[0].DecodePayload(&payload))
	assert.Equal(t, map[string]string{"hero_title": "Hello"}, payload.Content)
	assert.Equal(t, int64(1), payload.Version)
}

func TestBridge_Ping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	env, err := api.NewEnvelope(api.TypePing, nil)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, raw))

	confirmations := sentOfType(f.sender, api.TypeAccessConfirmed)
	require.Len(t, confirmations, 1)
	var payload api.AccessConfirmedPayload
	require.NoError(t, confirmations[0].DecodePayload(&payload))
	assert.Equal(t, env.Nonce, payload.Nonce)
}

func TestBridge_ForceResync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	require.NoError(t, f.bridge.Edit(ctx, "hero_title", "Local", models.FormatPlain))
	require.True(t, f.store.Guard().IsGuarded("hero_title", t0))

	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, hostMessage(t, api.TypeForceResync, nil)))

	assert.Empty(t, f.store.Guard().Active(t0))
	assert.Equal(t, "Local", f.store.Current()["hero_title"], "content reloaded from tiers")
	assert.Len(t, sentOfType(f.sender, api.TypeFetchRemote), 1)

	// Без grace-окна удаленное значение принимается сразу
	raw := hostMessage(t, api.TypeApplySavedChanges, api.ApplySavedChangesPayload{
		Changes: []api.FieldChange{{FieldName: "hero_title", FieldValue: "Remote"}},
	})
	require.NoError(t, f.bridge.HandleMessage(ctx, hostOrigin, raw))
	assert.Equal(t, "Remote", f.store.Current()["hero_title"])
}

func TestBridge_AckForUnknownRequest(t *testing.T) {
	f := newFixture(t, Config{})

	raw := hostMessage(t, api.TypeSaveAck, api.SaveAckPayload{RequestID: "nope", Success: true})
	assert.NoError(t, f.bridge.HandleMessage(context.Background(), hostOrigin, raw))
}

package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType определяет тип сообщения между host и встроенным клиентом
type MessageType string

const (
	// host -> client
	TypeRequestContent    MessageType = "request-content"
	TypeApplySavedChanges MessageType = "apply-saved-changes"
	TypeSaveAck           MessageType = "save-ack"
	TypeForceResync       MessageType = "force-resync"
	TypePing              MessageType = "ping"

	// client -> host
	TypeContentResponse MessageType = "content-response"
	TypeSaveRequest     MessageType = "save-request"
	TypeFetchRemote     MessageType = "fetch-remote"
	TypeAccessConfirmed MessageType = "access-confirmed"
)

// Envelope is the frame every cross-origin message travels in
type Envelope struct {
	Type      MessageType     `json:"type"`
	Nonce     string          `json:"nonce"`             // уникальный идентификатор сообщения
	Payload   json.RawMessage `json:"payload,omitempty"` // тело сообщения, зависит от Type
	Timestamp int64           `json:"timestamp"`         // время отправки в epoch millis
}

// NewEnvelope builds an envelope with a fresh nonce. A nil payload is omitted.
func NewEnvelope(msgType MessageType, payload any) (Envelope, error) {
	env := Envelope{
		Type:      msgType,
		Nonce:     uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
	}
	if payload == nil {
		return env, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	env.Payload = raw
	return env, nil
}

// DecodePayload unmarshals the payload into v
func (e Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// FieldChange представляет одно поле, сохраненное на backend
type FieldChange struct {
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
}

// PendingChange представляет одно локальное изменение, отправляемое на сохранение
type PendingChange struct {
	FieldName string `json:"field_name"`
	Value     string `json:"value"`
	Format    string `json:"format"`
	Source    string `json:"source"` // идентификатор редактора
}

// FieldError описывает ошибку сохранения одного поля
type FieldError struct {
	FieldName string `json:"field_name"`
	Message   string `json:"message"`
}

// ContentPayload is the body of content-response
type ContentPayload struct {
	Content map[string]string `json:"content"`
	Version int64             `json:"version"`
}

// ApplySavedChangesPayload is the body of apply-saved-changes
type ApplySavedChangesPayload struct {
	Changes []FieldChange `json:"changes"`
}

// SaveRequestPayload is the body of save-request
type SaveRequestPayload struct {
	RequestID string          `json:"request_id"`
	Changes   []PendingChange `json:"changes"`
}

// SaveAckPayload is the body of save-ack
type SaveAckPayload struct {
	RequestID  string       `json:"request_id"`
	Errors     []FieldError `json:"errors,omitempty"`
	SavedCount int          `json:"saved_count"`
	Success    bool         `json:"success"`
}

// AccessConfirmedPayload answers a ping, echoing its nonce
type AccessConfirmedPayload struct {
	Nonce   string `json:"nonce"`
	Version int64  `json:"version"`
}

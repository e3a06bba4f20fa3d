package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/iudanet/sitekeeper/pkg/api"
)

// MaxMessageBytes bounds the size of a single inbound message
const MaxMessageBytes = 1 << 20

const schemaBaseURL = "https://sitekeeper.local/schemas/"

//go:embed schemas/*.json
var schemaFS embed.FS

// payloadSchemas maps message types to their payload schema file; types absent here carry no payload
var payloadSchemas = map[api.MessageType]string{
	api.TypeApplySavedChanges: "apply-saved-changes.json",
	api.TypeSaveRequest:       "save-request.json",
	api.TypeSaveAck:           "save-ack.json",
	api.TypeContentResponse:   "content-response.json",
	api.TypeAccessConfirmed:   "access-confirmed.json",
}

// HostToClient lists the message types an embedded client accepts
var HostToClient = []api.MessageType{
	api.TypeRequestContent,
	api.TypeApplySavedChanges,
	api.TypeSaveAck,
	api.TypeForceResync,
	api.TypePing,
}

// ClientToHost lists the message types a host accepts
var ClientToHost = []api.MessageType{
	api.TypeContentResponse,
	api.TypeSaveRequest,
	api.TypeFetchRemote,
	api.TypeAccessConfirmed,
}

// Validator checks raw messages against the envelope schema and the payload schema of their type
type Validator struct {
	envelope *jsonschema.Schema
	payloads map[api.MessageType]*jsonschema.Schema
	accepted map[api.MessageType]struct{}
}

// NewValidator compiles the embedded schemas. Only the accepted message types pass validation.
func NewValidator(accepted ...api.MessageType) (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas: %w", err)
	}
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", entry.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", entry.Name(), err)
		}
		if err := compiler.AddResource(schemaBaseURL+entry.Name(), doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", entry.Name(), err)
		}
	}

	envelope, err := compiler.Compile(schemaBaseURL + "envelope.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile envelope schema: %w", err)
	}

	v := &Validator{
		envelope: envelope,
		payloads: make(map[api.MessageType]*jsonschema.Schema, len(accepted)),
		accepted: make(map[api.MessageType]struct{}, len(accepted)),
	}
	for _, msgType := range accepted {
		v.accepted[msgType] = struct{}{}

		name, ok := payloadSchemas[msgType]
		if !ok {
			continue
		}
		schema, err := compiler.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", msgType, err)
		}
		v.payloads[msgType] = schema
	}
	return v, nil
}

// Validate parses raw into an envelope. The payload is validated as a whole,
// so a message is either accepted completely or rejected.
func (v *Validator) Validate(raw []byte) (api.Envelope, error) {
	if len(raw) > MaxMessageBytes {
		return api.Envelope{}, fmt.Errorf("%w: message of %d bytes exceeds limit", ErrMalformedPayload, len(raw))
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return api.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := v.envelope.Validate(inst); err != nil {
		return api.Envelope{}, fmt.Errorf("%w: envelope: %v", ErrMalformedPayload, err)
	}

	var env api.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return api.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if _, ok := v.accepted[env.Type]; !ok {
		return api.Envelope{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}

	schema, ok := v.payloads[env.Type]
	if !ok {
		return env, nil
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return api.Envelope{}, fmt.Errorf("%w: %s without payload", ErrMalformedPayload, env.Type)
	}
	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(env.Payload))
	if err != nil {
		return api.Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := schema.Validate(payload); err != nil {
		return api.Envelope{}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Type, err)
	}
	return env, nil
}

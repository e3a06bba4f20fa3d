package protocol

import "errors"

var (
	// ErrUntrustedOrigin is returned for messages from an origin outside the allow-list
	ErrUntrustedOrigin = errors.New("untrusted origin")
	// ErrMalformedPayload is returned for messages that fail envelope or payload validation
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownMessageType is returned for message types the receiver does not accept
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrInvalidOrigin is returned when an origin or origin pattern cannot be parsed
	ErrInvalidOrigin = errors.New("invalid origin")
)

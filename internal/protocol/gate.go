// Package protocol guards the cross-origin message channel: origin allow-listing
// and schema validation of every inbound message.
package protocol

import (
	"github.com/iudanet/sitekeeper/pkg/api"
)

// Gate admits inbound messages. The origin is checked before anything else is looked at.
type Gate struct {
	allow     *AllowList
	validator *Validator
}

// NewGate combines an allow-list and a validator
func NewGate(allow *AllowList, validator *Validator) *Gate {
	return &Gate{allow: allow, validator: validator}
}

// Admit returns the decoded envelope, or ErrUntrustedOrigin, ErrMalformedPayload or ErrUnknownMessageType
func (g *Gate) Admit(origin string, raw []byte) (api.Envelope, error) {
	if err := g.allow.Check(origin); err != nil {
		return api.Envelope{}, err
	}
	return g.validator.Validate(raw)
}

// AllowList returns the origin allow-list of the gate
func (g *Gate) AllowList() *AllowList {
	return g.allow
}

package bridge

import (
	"context"

	"github.com/iudanet/sitekeeper/pkg/api"
)

//go:generate moq -out sender_mock.go . Sender

// Sender delivers an envelope to the other side of the channel
type Sender interface {
	Send(ctx context.Context, env api.Envelope) error
}

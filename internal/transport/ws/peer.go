// Package ws carries protocol envelopes between the host and the embedded client over a websocket,
// standing in for the browser's cross-window messaging primitive.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iudanet/sitekeeper/internal/protocol"
	"github.com/iudanet/sitekeeper/pkg/api"
)

// Handler processes one inbound message together with the origin of its sender
type Handler func(ctx context.Context, origin string, data []byte) error

// Peer is one end of an established channel
type Peer struct {
	conn   *websocket.Conn
	logger *slog.Logger
	origin string // origin удаленной стороны
}

func newPeer(conn *websocket.Conn, origin string, logger *slog.Logger) *Peer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	conn.SetReadLimit(protocol.MaxMessageBytes + 1)
	return &Peer{conn: conn, origin: origin, logger: logger}
}

// Dial connects to a host endpoint, presenting selfOrigin as the Origin header.
// Messages read from the returned peer are attributed to the origin of rawURL.
func Dial(ctx context.Context, rawURL, selfOrigin string, logger *slog.Logger) (*Peer, error) {
	remote, err := OriginOf(rawURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if selfOrigin != "" {
		header.Set("Origin", selfOrigin)
	}

	conn, resp, err := websocket.Dial(ctx, rawURL, &websocket.DialOptions{HTTPHeader: header})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rawURL, err)
	}
	return newPeer(conn, remote, logger), nil
}

// Accept upgrades an HTTP request. Only origins matching the allow-list complete the handshake;
// the full origin is checked again on every message by the protocol gate.
func Accept(w http.ResponseWriter, r *http.Request, allowed []string, logger *slog.Logger) (*Peer, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: HostPatterns(allowed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept websocket: %w", err)
	}
	return newPeer(conn, r.Header.Get("Origin"), logger), nil
}

// Origin returns the origin of the remote side
func (p *Peer) Origin() string {
	return p.origin
}

// Send writes env as one JSON text message
func (p *Peer) Send(ctx context.Context, env api.Envelope) error {
	if err := wsjson.Write(ctx, p.conn, env); err != nil {
		return fmt.Errorf("failed to send %s: %w", env.Type, err)
	}
	return nil
}

// Run reads messages until the connection closes or ctx is done, passing each to handler.
// Handler errors are logged and never stop the loop. A normal closure returns nil.
func (p *Peer) Run(ctx context.Context, handler Handler) error {
	for {
		msgType, data, err := p.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		if msgType != websocket.MessageText {
			p.logger.Debug("Skipped binary message", "origin", p.origin, "bytes", len(data))
			continue
		}

		if err := handler(ctx, p.origin, data); err != nil {
			p.logger.Debug("Message handler failed", "origin", p.origin, "error", err)
		}
	}
}

// Close closes the connection normally
func (p *Peer) Close() error {
	return p.conn.Close(websocket.StatusNormalClosure, "")
}

// OriginOf returns the web origin of a websocket or http URL: ws maps to http and wss to https
func OriginOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return protocol.NormalizeOrigin(u.Scheme + "://" + u.Host)
}

// HostPatterns strips the scheme from allow-list entries, giving the host patterns
// the websocket handshake checks the Origin header against
func HostPatterns(allowed []string) []string {
	patterns := make([]string, 0, len(allowed))
	for _, entry := range allowed {
		if _, host, ok := strings.Cut(entry, "://"); ok {
			entry = host
		}
		patterns = append(patterns, strings.TrimSuffix(entry, "/"))
	}
	return patterns
}

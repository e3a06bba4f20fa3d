// Package grace protects recently edited fields from being overwritten by stale remote values.
//
// Each field (plus one global entry) moves idle -> guarded on a local edit or flush and
// falls back to idle once its deadline passes. Expiry is checked lazily on every query,
// so no background timer is involved.
package grace

import (
	"sort"
	"sync"
	"time"

	"github.com/iudanet/sitekeeper/internal/models"
)

// DefaultWindow is used when a guard is created with a non-positive window
const DefaultWindow = 20 * time.Second

// Guard tracks grace windows per field and one global window
type Guard struct {
	fields map[string]time.Time // field -> expires_at
	global time.Time
	window time.Duration
	mu     sync.Mutex
}

// New creates a guard whose windows last for window
func New(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		fields: make(map[string]time.Time),
		window: window,
	}
}

// Window returns the configured window duration
func (g *Guard) Window() time.Duration {
	return g.window
}

// Mark starts (or refreshes) the grace window of each field at now.
// Names are taken literally; only MarkAll opens the global window.
func (g *Guard) Mark(now time.Time, fields ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(now)
	expiresAt := now.Add(g.window)
	for _, field := range fields {
		g.fields[field] = expiresAt
	}
}

// MarkAll starts (or refreshes) the global window that covers every field
func (g *Guard) MarkAll(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(now)
	g.global = now.Add(g.window)
}

// IsGuarded reports whether field is protected at now by its own window or the global one
func (g *Guard) IsGuarded(field string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Before(g.global) {
		return true
	}
	g.global = time.Time{}

	expiresAt, ok := g.fields[field]
	if !ok {
		return false
	}
	if now.Before(expiresAt) {
		return true
	}
	delete(g.fields, field)
	return false
}

// Reset discards every window, returning all fields to idle
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.fields = make(map[string]time.Time)
	g.global = time.Time{}
}

// Active returns the windows still open at now, global first, then by field name
func (g *Guard) Active(now time.Time) []models.GraceWindow {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(now)

	windows := make([]models.GraceWindow, 0, len(g.fields)+1)
	if now.Before(g.global) {
		windows = append(windows, models.GraceWindow{
			FieldName: models.WildcardField,
			ExpiresAt: g.global.UnixMilli(),
		})
	}

	names := make([]string, 0, len(g.fields))
	for name := range g.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		windows = append(windows, models.GraceWindow{
			FieldName: name,
			ExpiresAt: g.fields[name].UnixMilli(),
		})
	}
	return windows
}

func (g *Guard) pruneLocked(now time.Time) {
	for field, expiresAt := range g.fields {
		if !now.Before(expiresAt) {
			delete(g.fields, field)
		}
	}
	if !now.Before(g.global) {
		g.global = time.Time{}
	}
}

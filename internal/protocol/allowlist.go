package protocol

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// AllowList decides which origins may talk to the engine.
// Entries are exact origins ("https://admin.example.com") or glob patterns ("https://*.example.com").
type AllowList struct {
	exact    map[string]struct{}
	patterns []string
}

// NewAllowList builds an allow-list. At least one entry is required.
func NewAllowList(origins ...string) (*AllowList, error) {
	if len(origins) == 0 {
		return nil, fmt.Errorf("%w: allow-list is empty", ErrInvalidOrigin)
	}

	a := &AllowList{exact: make(map[string]struct{}, len(origins))}
	for _, entry := range origins {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("%w: empty allow-list entry", ErrInvalidOrigin)
		}

		if isPattern(entry) {
			pattern := strings.TrimSuffix(strings.ToLower(entry), "/")
			if !doublestar.ValidatePattern(pattern) {
				return nil, fmt.Errorf("%w: bad pattern %q", ErrInvalidOrigin, entry)
			}
			a.patterns = append(a.patterns, pattern)
			continue
		}

		origin, err := NormalizeOrigin(entry)
		if err != nil {
			return nil, err
		}
		a.exact[origin] = struct{}{}
	}
	return a, nil
}

// Allowed reports whether origin matches an entry
func (a *AllowList) Allowed(origin string) bool {
	normalized, err := NormalizeOrigin(origin)
	if err != nil {
		return false
	}
	if _, ok := a.exact[normalized]; ok {
		return true
	}
	for _, pattern := range a.patterns {
		if ok, _ := doublestar.Match(pattern, normalized); ok {
			return true
		}
	}
	return false
}

// Check returns ErrUntrustedOrigin when origin is not allowed
func (a *AllowList) Check(origin string) error {
	if !a.Allowed(origin) {
		return fmt.Errorf("%w: %q", ErrUntrustedOrigin, origin)
	}
	return nil
}

// Entries returns the exact origins followed by the patterns
func (a *AllowList) Entries() []string {
	entries := make([]string, 0, len(a.exact)+len(a.patterns))
	for origin := range a.exact {
		entries = append(entries, origin)
	}
	return append(entries, a.patterns...)
}

// NormalizeOrigin reduces s to scheme://host[:port] in lower case, dropping default ports
func NormalizeOrigin(s string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Scheme == "" || u.Host == "" || u.User != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, s)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w: %q has a path", ErrInvalidOrigin, s)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return scheme + "://" + host + ":" + port, nil
	}
	return scheme + "://" + host, nil
}

func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

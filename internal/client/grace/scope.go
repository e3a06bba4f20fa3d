package grace

import (
	"fmt"
	"strings"
)

// Scope selects which windows a flushed save opens
type Scope string

const (
	ScopeField  Scope = "field"  // only the saved fields are guarded
	ScopeGlobal Scope = "global" // every field is guarded
)

// ParseScope converts s into a Scope. An empty string means field scope.
func ParseScope(s string) (Scope, error) {
	switch scope := Scope(strings.ToLower(strings.TrimSpace(s))); scope {
	case "":
		return ScopeField, nil
	case ScopeField, ScopeGlobal:
		return scope, nil
	default:
		return "", fmt.Errorf("unknown grace scope %q", s)
	}
}

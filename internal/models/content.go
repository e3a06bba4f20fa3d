package models

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// ContentRecord maps a field name to its value.
// Keys are the unit of conflict resolution; order carries no meaning.
type ContentRecord map[string]string

// Clone returns an independent copy of the record. A nil record clones to an empty one.
func (r ContentRecord) Clone() ContentRecord {
	out := make(ContentRecord, len(r))
	maps.Copy(out, r)
	return out
}

// Equal reports whether both records hold the same fields with the same values.
func (r ContentRecord) Equal(other ContentRecord) bool {
	return maps.Equal(r, other)
}

// Fields returns the field names in lexical order.
func (r ContentRecord) Fields() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Origin describes who produced a snapshot.
type Origin string

const (
	OriginLocalEdit  Origin = "local-edit"
	OriginRemoteSync Origin = "remote-sync"
	OriginMigration  Origin = "migration"
	OriginTest       Origin = "test"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	switch o {
	case OriginLocalEdit, OriginRemoteSync, OriginMigration, OriginTest:
		return true
	default:
		return false
	}
}

// Format is the format tag carried by a field value.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatRich     Format = "rich"
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts s into a Format. An empty string means plain text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPlain, nil
	case FormatPlain, FormatRich, FormatMarkdown:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Snapshot is a content record stamped with the metadata every tier persists.
type Snapshot struct {
	Data      ContentRecord `json:"data"`      // Data содержимое полей
	Origin    Origin        `json:"origin"`    // Origin источник изменения
	Timestamp int64         `json:"timestamp"` // Timestamp время записи в epoch millis, монотонно растет
	Version   int64         `json:"version"`   // Version монотонный счетчик версий
}

// Clone создает глубокую копию snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Data:      s.Data.Clone(),
		Origin:    s.Origin,
		Timestamp: s.Timestamp,
		Version:   s.Version,
	}
}

// PendingChange is one operator edit waiting to be sent upstream.
type PendingChange struct {
	FieldName string `json:"field_name"`
	Value     string `json:"value"`
	Format    Format `json:"format"`
	Source    string `json:"source"` // Source идентификатор редактора
}

// FieldChange is a single field update coming from the remote side.
type FieldChange struct {
	FieldName string `json:"field_name"`
	Value     string `json:"field_value"`
}

// WildcardField is the field name of the global grace window.
const WildcardField = "*"

// GraceWindow protects a field (or every field) from remote overwrite until ExpiresAt.
type GraceWindow struct {
	FieldName string `json:"field_name"`
	ExpiresAt int64  `json:"expires_at"` // epoch millis
}

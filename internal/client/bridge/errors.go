package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/sitekeeper/pkg/api"
)

var (
	// ErrSaveTimeout is returned when no save-ack arrives within the save timeout
	ErrSaveTimeout = errors.New("save request timed out")
	// ErrBackendRejected is returned when the backend refused some of the fields
	ErrBackendRejected = errors.New("backend rejected changes")
	// ErrInvalidEdit is returned for an edit with an empty or reserved field name or an unknown format
	ErrInvalidEdit = errors.New("invalid edit")
)

// RejectedError lists the fields the backend refused to save
type RejectedError struct {
	Fields []api.FieldError
}

func (e *RejectedError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.FieldName, f.Message))
	}
	return fmt.Sprintf("%v: %s", ErrBackendRejected, strings.Join(parts, "; "))
}

func (e *RejectedError) Unwrap() error {
	return ErrBackendRejected
}

// FieldNames returns the names of the refused fields
func (e *RejectedError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.FieldName)
	}
	return names
}

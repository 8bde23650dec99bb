package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/everkeep/backend/internal/model"
)

var (
	// ErrTemplateNotFound reports a statement type with no registered template.
	ErrTemplateNotFound = errors.New("statement template not found")
	// ErrDependencyUnavailable marks retryable failures of an external store.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// ValidationError is surfaced to the caller and never retried.
type ValidationError struct {
	StatementType model.StatementType
	MissingPaths  []string
	Reason        string
}

func (e *ValidationError) Error() string {
	if len(e.MissingPaths) > 0 {
		return fmt.Sprintf("statement %s: missing required payload paths: %s",
			e.StatementType, strings.Join(e.MissingPaths, ", "))
	}
	if e.StatementType != "" {
		return fmt.Sprintf("statement %s: %s", e.StatementType, e.Reason)
	}
	return e.Reason
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

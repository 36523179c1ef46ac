package services

import (
	"fmt"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/repos"
)

// ValidationError is a caller mistake. Handlers answer it with 400.
type ValidationError struct {
	Message string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func invalid(msg string) error { return &ValidationError{Message: msg} }

// BackendError is a storage failure carrying the driver diagnostics. Handlers answer it with 500.
type BackendError struct {
	Op         string
	Err        error
	Diagnostic repos.Diagnostic
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func backend(op string, err error) error {
	return &BackendError{Op: op, Err: err, Diagnostic: repos.Diagnose(err)}
}

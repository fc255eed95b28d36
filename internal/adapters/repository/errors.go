package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for storage errors.
var (
	// ErrBackendUnavailable covers connectivity, auth and timeout failures.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrSchemaMissing means an expected table or view does not exist.
	ErrSchemaMissing = errors.New("schema missing")
	// ErrMalformedData means stored data could not be parsed or lacks required fields.
	ErrMalformedData = errors.New("malformed stored data")
	// ErrPersistence means no backend could serve the operation.
	ErrPersistence = errors.New("persistence failed")
)

// PersistenceError reports an operation that failed on every backend.
// It matches ErrPersistence and unwraps to each backend's error.
type PersistenceError struct {
	Op        string
	Primary   error
	Secondary error
}

func (e *PersistenceError) Error() string {
	switch {
	case e.Primary != nil && e.Secondary != nil:
		return fmt.Sprintf("%s: %v: primary: %v; secondary: %v", e.Op, ErrPersistence, e.Primary, e.Secondary)
	case e.Secondary != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrPersistence, e.Secondary)
	case e.Primary != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrPersistence, e.Primary)
	default:
		return fmt.Sprintf("%s: %v", e.Op, ErrPersistence)
	}
}

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Unwrap exposes the underlying backend errors to errors.Is/As.
func (e *PersistenceError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Secondary != nil {
		errs = append(errs, e.Secondary)
	}
	return errs
}

// Kind returns a short label for the error class of err, for logs and status reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrSchemaMissing):
		return "schema_missing"
	case errors.Is(err, ErrMalformedData):
		return "malformed_data"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "unknown"
	}
}

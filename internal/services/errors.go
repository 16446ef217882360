package services

import (
	"github.com/pkg/errors"

	"ops-dashboard/internal/repository"
)

var (
	// ErrValidation marks missing or malformed input. Nothing was changed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to an entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBackend marks a failed data-access or object-storage call.
	ErrBackend = errors.New("backend error")

	// ErrEmptyInvoice is returned when exporting a brand with no pending items.
	ErrEmptyInvoice = errors.New("no projects to invoice")

	// ErrPriceRequired is returned when a project is moved to Completed without
	// an invoice price. The caller should ask for one and use CompleteProject.
	// It matches ErrValidation.
	ErrPriceRequired = errors.Wrap(ErrValidation, "invoice price required to complete project")
)

// BackendError wraps a failed call to the database or object storage.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

func validationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// backend classifies a repository error: not-found stays not-found, the rest
// becomes a BackendError.
func backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(ErrNotFound, op)
	}
	return &BackendError{Op: op, Err: err}
}

package grievance

import (
	"errors"
	"fmt"
	"grievance/backend/internal/storage"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("concurrent update")
	ErrPersistence      = errors.New("persistence failure")
	// ErrNotification is only ever logged; operations never return it.
	ErrNotification = errors.New("notification failure")
)

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

func conflict(complaintID uint) error {
	return fmt.Errorf("%w: complaint %d changed while being updated", ErrConflict, complaintID)
}

// storeErr classifies an error coming back from storage.
func storeErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// txErr passes engine errors through and wraps anything else (commit failures) as persistence.
func txErr(err error) error {
	for _, known := range []error{ErrNotFound, ErrForbidden, ErrInvalidOperation, ErrConflict, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

package store

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no record exists for the given id under the
// given institute. A record owned by a different institute is reported
// identically, so callers can never learn about foreign-tenant rows.
var ErrNotFound = errors.New("record not found")

// StorageError wraps an underlying storage-engine failure. It is a distinct
// classification from ErrNotFound and is never swallowed.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return "storage failure: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// classify maps a gorm error to the store's error taxonomy.
func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &StorageError{Err: err}
}

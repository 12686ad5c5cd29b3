package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that no row matched. Callers treat it as an expected
// condition, like asking for the snapshot before the first ingested day.
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a storage-level failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

package domain

import "fmt"

// DataIntegrityError marks snapshot input that violates the model's
// invariants, like duplicate player names or non-positive ranks. It aborts
// the ingestion cycle before anything is written.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation: %s", e.Reason)
}

func NewDataIntegrityError(format string, args ...any) *DataIntegrityError {
	return &DataIntegrityError{Reason: fmt.Sprintf(format, args...)}
}

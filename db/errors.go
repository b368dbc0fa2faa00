package db

import "fmt"

// WriteError is a failed store write. Writes are not retried; the whole run
// is safe to repeat because every row write is idempotent.
type WriteError struct {
	Op       string
	LaunchID string
	Err      error
}

func (e *WriteError) Error() string {
	if e.LaunchID != "" {
		return fmt.Sprintf("store %s failed for launch %s: %v", e.Op, e.LaunchID, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidParams   = errors.New("invalid generation params")
	ErrPostNotEligible = errors.New("post has no persistent id")
)

// StoreError wraps a persistence failure. A generation that succeeded but
// could not be written back keeps its succeeded JobState; the StoreError is
// surfaced as a warning so the caller can retry the write alone.
type StoreError struct {
	Op     string
	PostID int64
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s post %d: %v", e.Op, e.PostID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

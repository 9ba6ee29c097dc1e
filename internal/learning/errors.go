package learning

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory indicates a category outside the closed set.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrEmptyField indicates a required entry field is empty.
	ErrEmptyField = errors.New("required field is empty")

	// ErrNoInstruction indicates a body has no imperative sentence to keep.
	ErrNoInstruction = errors.New("body has no imperative instruction")
)

// StoreReadError reports a corrupt or unreadable memory store. It aborts a
// reflection run.
type StoreReadError struct {
	Path string
	Line int
	Err  error
}

func (e *StoreReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("memory store %s unreadable at line %d: %v (inspect the file manually)", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("memory store %s unreadable: %v (inspect the file manually)", e.Path, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// StoreWriteError reports an I/O failure while appending a single entry.
type StoreWriteError struct {
	Path  string
	Title string
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to append %q to memory store %s: %v", e.Title, e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// ValidationError reports a candidate that could not be formatted into a
// well-formed entry. It is recoverable: the candidate is skipped.
type ValidationError struct {
	Title  string
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid entry %q: %s: %s", e.Title, e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

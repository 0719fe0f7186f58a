package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("model: validation failed")
	ErrNotFound    = errors.New("model: record not found")
	ErrPersistence = errors.New("model: persistence failed")
	ErrScheduling  = errors.New("model: scheduling failed")
)

// ValidationError reports malformed caller input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model: record %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a failed read or write of the persistence adapter.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("model: persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// SchedulingError wraps failed create/cancel calls on the notification port.
// Key is empty when several calls failed and Err aggregates them.
type SchedulingError struct {
	Op  string
	Key string
	Err error
}

func (e *SchedulingError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("model: scheduling %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("model: scheduling %s %q failed: %v", e.Op, e.Key, e.Err)
}

func (e *SchedulingError) Is(target error) bool { return target == ErrScheduling }

func (e *SchedulingError) Unwrap() error { return e.Err }

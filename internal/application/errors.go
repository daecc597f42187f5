package application

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidSession is the single error returned for any token failure so
	// callers cannot tell a wrong token from an expired one.
	ErrInvalidSession = errors.New("invalid or expired session")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// ConflictKind names what a write collided with.
type ConflictKind string

const (
	ConflictAvailability ConflictKind = "availability"
	ConflictBlock        ConflictKind = "block"
	ConflictTraining     ConflictKind = "training"
	ConflictLock         ConflictKind = "lock"
	ConflictNomination   ConflictKind = "nomination"
	ConflictParticipant  ConflictKind = "participant"
)

// ConflictError reports contention at commit time. The caller may retry once
// the conflicting entity is resolved.
type ConflictError struct {
	Kind     ConflictKind
	EntityID string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("conflict (%s): %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("conflict with %s %s: %s", e.Kind, e.EntityID, e.Reason)
}

// StateError reports an operation that is invalid for the entity's current state.
type StateError struct {
	Entity    string
	ID        string
	Current   string
	Operation string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %q", e.Operation, e.Entity, e.ID, e.Current)
}

// WindowError is returned when an attendance session is started outside the
// window in which it may be opened.
type WindowError struct {
	Opens  time.Time
	Closes time.Time
	Now    time.Time
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("session can only be started between %s and %s",
		e.Opens.Format(time.RFC3339), e.Closes.Format(time.RFC3339))
}

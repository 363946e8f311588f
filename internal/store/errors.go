package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for the store package, matched with errors.Is.
var (
	// ErrNotFound is returned when a referenced epic or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollision is returned when scan allocation targets a file that
	// already exists; the operation reports the observed state instead of
	// overwriting.
	ErrCollision = errors.New("identifier collision")

	// ErrCrossEpicDep is returned when a task dependency names a task in a
	// different epic. Dependencies are intra-epic only.
	ErrCrossEpicDep = errors.New("dependency crosses epics")

	// ErrSelfDep is returned when an entity would depend on itself.
	ErrSelfDep = errors.New("cannot depend on self")

	// ErrCycle is returned when adding a dependency would close a cycle.
	ErrCycle = errors.New("dependency would create a cycle")
)

// NotFoundError wraps ErrNotFound with the id that failed to resolve.
type NotFoundError struct {
	Kind string // "epic" or "task"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

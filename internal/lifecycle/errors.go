package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the lifecycle package, matched with errors.Is.
var (
	// ErrClaimConflict is returned when an operation would mutate a task
	// claimed by another actor without force.
	ErrClaimConflict = errors.New("claim conflict")

	// ErrForbidden is returned for status transitions the state machine
	// rejects.
	ErrForbidden = errors.New("forbidden transition")

	// ErrDepsNotDone is returned by start when a dependency is missing or
	// not yet done.
	ErrDepsNotDone = errors.New("dependencies not done")

	// ErrEpicNotClosable is returned by close when tasks remain open.
	ErrEpicNotClosable = errors.New("epic has open tasks")
)

// ClaimConflictError names the actor holding the claim.
type ClaimConflictError struct {
	Task     string
	Claimant string
}

func (e *ClaimConflictError) Error() string {
	return fmt.Sprintf("task %s is claimed by %s (use --force to take over)", e.Task, e.Claimant)
}

func (e *ClaimConflictError) Is(target error) bool { return target == ErrClaimConflict }

// TransitionError reports a rejected status transition.
type TransitionError struct {
	Task string
	From string
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s task %s from status %s", e.Op, e.Task, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrForbidden }

// DepsNotDoneError lists the unmet dependencies blocking a start.
type DepsNotDoneError struct {
	Task  string
	Unmet []string
}

func (e *DepsNotDoneError) Error() string {
	return fmt.Sprintf("task %s has unmet dependencies: %s", e.Task, strings.Join(e.Unmet, ", "))
}

func (e *DepsNotDoneError) Is(target error) bool { return target == ErrDepsNotDone }

// OpenTask is one incomplete task reported by the epic closure gate.
type OpenTask struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// EpicNotClosableError enumerates every incomplete task with its status.
type EpicNotClosableError struct {
	Epic string
	Open []OpenTask
}

func (e *EpicNotClosableError) Error() string {
	parts := make([]string, len(e.Open))
	for i, t := range e.Open {
		parts[i] = fmt.Sprintf("%s (%s)", t.ID, t.Status)
	}
	return fmt.Sprintf("epic %s has open tasks: %s", e.Epic, strings.Join(parts, ", "))
}

func (e *EpicNotClosableError) Is(target error) bool { return target == ErrEpicNotClosable }

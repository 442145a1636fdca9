package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/studylit/internal/logger"
)

var (
	// ErrInsufficientAvailability means free time falls short of the weekly targets.
	// Recoverable: the run still produces a partial plan.
	ErrInsufficientAvailability = stderrors.New("insufficient availability")
	// ErrUnmetSubjectTarget marks a subject whose target could not be fully planned.
	ErrUnmetSubjectTarget = stderrors.New("unmet subject target")
	// ErrPlanning is fatal for the current run: the input is structurally invalid.
	ErrPlanning = stderrors.New("planning error")
	// ErrPersistence is returned when the storage collaborator fails. In-memory state is kept.
	ErrPersistence = stderrors.New("persistence failure")
)

// PlanningError describes structurally invalid planning input.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning error: %s", e.Reason)
}

func (e *PlanningError) Unwrap() error { return ErrPlanning }

// Planningf builds a PlanningError from a format string.
func Planningf(format string, args ...interface{}) *PlanningError {
	return &PlanningError{Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a failure of the storage collaborator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Persistence wraps err as a PersistenceError, or returns nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

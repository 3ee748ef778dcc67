package infra

import (
	"errors"
	"fmt"
)

var (
	ErrSubmissionFailed = errors.New("convergence submission failed")
	ErrOutputMissing    = errors.New("convergence output missing")
	ErrConflict         = errors.New("stack is locked by another update")

	// Marks an engine failure worth retrying (network, throttling).
	ErrTransient = errors.New("transient engine failure")

	// Returned by engines asked for outputs of a stack that was never
	// converged.
	ErrStackNotFound = errors.New("stack not found")

	ErrUnsupportedBackend = errors.New("backend not supported by engine")
)

// Classifies a convergence failure.
type ErrorKind string

const (
	SubmissionFailed ErrorKind = "SubmissionFailed"
	OutputMissing    ErrorKind = "OutputMissing"
	Conflict         ErrorKind = "Conflict"
)

// Describes why convergence failed.
type Error struct {
	Kind     ErrorKind // Failure classification.
	Attempts int       // Submissions made before giving up.
	Err      error     // Underlying engine error.
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("infra %s", e.Kind)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case OutputMissing:
		return ErrOutputMissing
	case Conflict:
		return ErrConflict
	default:
		return ErrSubmissionFailed
	}
}

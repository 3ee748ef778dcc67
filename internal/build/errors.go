package build

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTarget    = errors.New("publish target is empty")
	ErrStepFailed       = errors.New("pipeline step failed")
	ErrConnectionFailed = errors.New("pipeline engine unreachable")
	ErrCopy             = errors.New("copy failed")
)

// Classifies a pipeline failure.
type ErrorKind string

const (
	MissingTarget    ErrorKind = "MissingTarget"
	StepFailed       ErrorKind = "StepFailed"
	ConnectionFailed ErrorKind = "ConnectionFailed"
)

// Describes why the pipeline stopped.
type Error struct {
	Kind   ErrorKind // Failure classification.
	Step   string    // Failing step, for StepFailed.
	Detail string    // Exit status and captured stderr, or other context.
	Err    error     // Underlying cause, if any.
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pipeline %s", e.Kind)
	if e.Step != "" {
		msg += fmt.Sprintf(": step %q", e.Step)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
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
	case MissingTarget:
		return ErrMissingTarget
	case ConnectionFailed:
		return ErrConnectionFailed
	default:
		return ErrStepFailed
	}
}

func stepFailed(step, detail string, err error) *Error {
	return &Error{Kind: StepFailed, Step: step, Detail: detail, Err: err}
}

package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidValue      = errors.New("invalid configuration value")
)

// Classifies a configuration failure.
type ErrorKind string

const (
	MissingCredential ErrorKind = "MissingCredential"
	InvalidValue      ErrorKind = "InvalidValue"
)

// Describes why configuration could not be resolved.
type Error struct {
	Kind ErrorKind // Failure classification.
	Key  string    // Configuration key at fault (e.g., "ACCESS_KEY").
	Err  error     // Underlying cause, if any.
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("config %s: %s", e.Kind, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Exposes both the kind sentinel and the cause to [errors.Is].
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	if k == MissingCredential {
		return ErrMissingCredential
	}
	return ErrInvalidValue
}

func missing(key string) *Error {
	return &Error{Kind: MissingCredential, Key: key}
}

func invalid(key string, err error) *Error {
	return &Error{Kind: InvalidValue, Key: key, Err: err}
}

package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine error text that indicates another update holds the stack lock.
var conflictMarkers = []string{
	"state lock",
	"error acquiring the state lock",
	"conflict: another update is currently in progress",
	"the stack is currently locked",
	"preconditionfailed",
}

// Engine error text that indicates a failure worth retrying.
var transientMarkers = []string{
	"connection reset",
	"connection refused",
	"i/o timeout",
	"tls handshake timeout",
	"no such host",
	"requesttimeout",
	"slowdown",
	"throttling",
	"serviceunavailable",
	"503 service unavailable",
	"internalerror",
	"unexpected eof",
}

// Wraps an engine error with [ErrConflict] or [ErrTransient] based on its
// text. Cancellation and unrecognised errors are returned as-is, which makes
// them permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, m := range conflictMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
	}
	return err
}

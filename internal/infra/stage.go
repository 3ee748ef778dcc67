package infra

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

// Convergence progress. Only logged; callers never observe intermediate
// states.
type State int

const (
	Idle State = iota
	Submitting
	Converging
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Converging:
		return "converging"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Runs before the first submission, e.g. to make sure the state bucket
// exists. A preflight failure is not retried.
type Preflight func(ctx context.Context, cfg config.DeploymentConfig) error

// Bounds retries of transient submission failures.
type RetryPolicy struct {
	Attempts int           // Total submissions, including the first.
	Initial  time.Duration // Delay before the second submission.
	Max      time.Duration // Upper bound on any single delay.
}

// Returns the retry policy used when [Stage.Retry] is zero.
func DefaultRetry() RetryPolicy {
	return RetryPolicy{
		Attempts: 4,
		Initial:  2 * time.Second,
		Max:      30 * time.Second,
	}
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = p.Max
	b.MaxElapsedTime = 0

	retries := max(p.Attempts-1, 0)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// The Infrastructure Convergence Stage.
type Stage struct {
	Engine    Engine      // Engine that owns resource state.
	Preflight Preflight   // Optional check run before submission.
	Retry     RetryPolicy // Zero value means [DefaultRetry].
}

// Converges spec under the stack identity in cfg and returns its outputs.
//
// Transient and lock-conflict failures are retried within the retry policy.
// The returned error is always a [*Error]: [Conflict] when the stack stayed
// locked, [OutputMissing] when convergence succeeded without both outputs,
// and [SubmissionFailed] otherwise.
func (s *Stage) Converge(ctx context.Context, cfg config.DeploymentConfig, spec site.ResourceSpec) (Outputs, error) {
	target := Target{Config: cfg, Resource: spec.Clone()}
	log := slog.With("engine", s.Engine.Name(), "stack", cfg.Identity.String())

	state := Idle
	transition := func(next State, args ...any) {
		log.Debug("convergence "+next.String(), append([]any{"from", state.String()}, args...)...)
		state = next
	}

	transition(Submitting)
	if err := s.preflight(ctx, cfg, log); err != nil {
		transition(Failed, "error", err)
		return Outputs{}, &Error{Kind: SubmissionFailed, Err: err}
	}

	log.Info("converging infrastructure", "resource", spec.Name, "backend", cfg.Backend.String())

	var raw map[string]string
	attempts := 0
	op := func() error {
		attempts++
		transition(Converging, "attempt", attempts)

		out, err := s.Engine.Up(ctx, target)
		if err != nil {
			if retryable(err) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		raw = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("convergence failed, retrying", "attempt", attempts, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, s.retry().backoff(ctx), notify); err != nil {
		transition(Failed, "error", err)
		kind := SubmissionFailed
		if errors.Is(err, ErrConflict) {
			kind = Conflict
		}
		return Outputs{}, &Error{Kind: kind, Attempts: attempts, Err: err}
	}

	out, err := extractOutputs(raw)
	if err != nil {
		transition(Failed, "error", err)
		return Outputs{}, &Error{Kind: OutputMissing, Attempts: attempts, Err: err}
	}

	transition(Succeeded, "resource_id", out.ResourceID)
	log.Info("infrastructure converged", "resource_id", out.ResourceID, "endpoint", out.Endpoint)
	return out, nil
}

// Reads the outputs of the last convergence of spec without converging.
//
// A stack that was never converged, or whose outputs are incomplete, yields
// [OutputMissing].
func (s *Stage) Outputs(ctx context.Context, cfg config.DeploymentConfig, spec site.ResourceSpec) (Outputs, error) {
	raw, err := s.Engine.Outputs(ctx, Target{Config: cfg, Resource: spec.Clone()})
	if err != nil {
		if errors.Is(err, ErrStackNotFound) {
			return Outputs{}, &Error{Kind: OutputMissing, Err: err}
		}
		return Outputs{}, &Error{Kind: SubmissionFailed, Err: err}
	}

	out, err := extractOutputs(raw)
	if err != nil {
		return Outputs{}, &Error{Kind: OutputMissing, Err: err}
	}
	return out, nil
}

func (s *Stage) retry() RetryPolicy {
	if s.Retry == (RetryPolicy{}) {
		return DefaultRetry()
	}
	return s.Retry
}

// Runs the preflight check, retrying transient failures within the retry
// policy.
func (s *Stage) preflight(ctx context.Context, cfg config.DeploymentConfig, log *slog.Logger) error {
	if s.Preflight == nil {
		return nil
	}

	attempts := 0
	op := func() error {
		attempts++
		err := classify(s.Preflight(ctx, cfg))
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTransient) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("preflight failed, retrying", "attempt", attempts, "wait", wait, "error", err)
	}
	return backoff.RetryNotify(op, s.retry().backoff(ctx), notify)
}

func retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}

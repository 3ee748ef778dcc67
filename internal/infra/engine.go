package infra

import (
	"context"
	"fmt"
	"strings"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

// An infrastructure-state engine.
//
// Implementations persist state at the target's backend location under the
// target's stack identity, so that submitting an unchanged spec twice is a
// no-op. Errors should wrap [ErrConflict] for lock contention and
// [ErrTransient] for failures worth retrying; anything else is treated as
// structural.
type Engine interface {

	// Converges the declared resource and returns the stack's outputs.
	Up(ctx context.Context, t Target) (map[string]string, error)

	// Returns the outputs of the last convergence without changing anything.
	Outputs(ctx context.Context, t Target) (map[string]string, error)

	// Short engine name, for logs and reports.
	Name() string
}

// What an engine converges, and where.
type Target struct {
	Config   config.DeploymentConfig
	Resource site.ResourceSpec
}

// Concrete outputs of a successful convergence.
type Outputs struct {
	ResourceID string // Physical bucket name.
	Endpoint   string // Public website endpoint.
}

// Extracts the named outputs, failing if either is absent or empty.
func extractOutputs(raw map[string]string) (Outputs, error) {
	out := Outputs{
		ResourceID: strings.TrimSpace(raw[site.OutputResourceID]),
		Endpoint:   strings.TrimSpace(raw[site.OutputEndpoint]),
	}

	var missing []string
	if out.ResourceID == "" {
		missing = append(missing, site.OutputResourceID)
	}
	if out.Endpoint == "" {
		missing = append(missing, site.OutputEndpoint)
	}
	if len(missing) > 0 {
		return Outputs{}, fmt.Errorf("%w: %s", ErrOutputMissing, strings.Join(missing, ", "))
	}

	return out, nil
}

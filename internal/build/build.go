package build

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

// Runs a pipeline and publishes its output to a converged resource.
type Publisher struct {
	Engine   Engine // Pipeline engine that provides sandboxes.
	Platform string // OCI platform for sandboxes; empty selects the host's.
}

// Everything one pipeline run needs.
type Request struct {
	ResourceID string                  // Destination bucket. Required.
	Pipeline   site.Pipeline           // Steps to run, in order.
	Root       string                  // Directory host inputs are resolved against.
	Config     config.DeploymentConfig // Region and credentials for steps that ask for them.
	RunID      string                  // Prefix for sandbox IDs, unique per run.
}

// Returned after a successful run.
type Result struct {
	Steps          []StepResult  // One entry per step, in order.
	ArtifactDigest digest.Digest // Digest of the artifact handed to the publishing step.
	Published      bool          // Whether a step synced to the destination.
}

// Outcome of one step.
type StepResult struct {
	Name        string
	Image       string
	Commands    int           // Commands executed, including the sync.
	InputDigest digest.Digest // Digest of the artifact received from the previous step, if any.
	Duration    time.Duration
}

// Runs the pipeline in req and publishes to req.ResourceID.
//
// An empty resource ID fails with [MissingTarget] before the engine is
// contacted. Steps run strictly in order, each in a fresh sandbox seeded only
// with its declared inputs. The first failing step aborts the run with
// [StepFailed]; later steps, including the publish, never start. Every
// sandbox is destroyed before Run returns.
func (p *Publisher) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.ResourceID) == "" {
		return nil, &Error{Kind: MissingTarget, Detail: "no resource identifier to publish to"}
	}
	if len(req.Pipeline.Steps) == 0 {
		return nil, &Error{Kind: StepFailed, Detail: "pipeline has no steps"}
	}

	publisher := "none"
	if step := req.Pipeline.PublishStep(); step != nil {
		publisher = step.Name
	}
	slog.Info("running pipeline",
		"target", req.ResourceID,
		"steps", req.Pipeline.Names(),
		"publish", publisher,
	)

	session, err := p.Engine.Connect(ctx)
	if err != nil {
		return nil, &Error{Kind: ConnectionFailed, Err: err}
	}
	defer session.Close()

	c := newChain(session, p.Platform, req)
	defer c.destroy(context.WithoutCancel(ctx))

	return c.run(ctx)
}

// Returns the sync command that publishes source to the bucket.
//
// Each flag is derived from its own field: the destination from the resource
// ID, deletion and ACL from the publish declaration.
func syncCommand(pub *site.Publish, resourceID string) []string {
	args := []string{"aws", "s3", "sync", pub.Source, "s3://" + resourceID, "--no-progress"}
	if pub.DeleteExtraneous() {
		args = append(args, "--delete")
	}
	if pub.ACL != "" {
		args = append(args, "--acl", pub.ACL)
	}
	return args
}

// Returns a sandbox ID for a step, scoped to the run.
func sandboxID(runID, step string) string {
	if runID == "" {
		return fmt.Sprintf("siteship-%s", step)
	}
	return fmt.Sprintf("%s-%s", runID, step)
}

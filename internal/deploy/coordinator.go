package deploy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocksun/siteship/internal/build"
	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/infra"
	"github.com/rocksun/siteship/internal/journal"
	"github.com/rocksun/siteship/internal/site"
)

// The Infrastructure Convergence Stage, as the coordinator uses it.
type Infra interface {
	Converge(ctx context.Context, cfg config.DeploymentConfig, spec site.ResourceSpec) (infra.Outputs, error)
	Outputs(ctx context.Context, cfg config.DeploymentConfig, spec site.ResourceSpec) (infra.Outputs, error)
}

// The Build-and-Publish Stage, as the coordinator uses it.
type Publisher interface {
	Run(ctx context.Context, req build.Request) (*build.Result, error)
}

// Where finished runs are recorded.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) error
}

// Sequences the stages of a run and reports its outcome.
//
// Stage collaborators are built from the resolved configuration, so a
// configuration failure never constructs, let alone calls, either of them.
type Coordinator struct {

	// Resolves the deployment configuration. Called once per run.
	Resolve func() (config.DeploymentConfig, error)

	// Loads the site manifest. Defaults to [site.Load] on the configured
	// manifest path and site directory.
	Load func(cfg config.DeploymentConfig) (*site.Manifest, error)

	// Builds the convergence stage for a configuration.
	Infra func(cfg config.DeploymentConfig) (Infra, error)

	// Builds the publish stage for a configuration.
	Publisher func(cfg config.DeploymentConfig) (Publisher, error)

	Journal Journal          // Optional run history.
	Now     func() time.Time // Defaults to [time.Now].
	NewID   func() string    // Defaults to a random UUID.
}

// Converges infrastructure, then builds and publishes the site into it.
func (c *Coordinator) Deploy(ctx context.Context) RunReport {
	return c.run(ctx, OpDeploy)
}

// Builds and publishes the site into the bucket of the last convergence,
// without converging. Used to resume after a publish failure.
func (c *Coordinator) Publish(ctx context.Context) RunReport {
	return c.run(ctx, OpPublish)
}

func (c *Coordinator) run(ctx context.Context, op Operation) RunReport {
	r := &RunReport{ID: c.newID(), Operation: op, StartedAt: c.now()}
	log := slog.With("run", r.ID, "operation", op)

	c.execute(ctx, log, r)

	r.FinishedAt = c.now()
	if r.Status == Success {
		log.Info("run succeeded",
			"resource_id", r.ResourceID,
			"endpoint", r.Endpoint,
			"duration", r.Duration().Round(time.Millisecond),
		)
	} else {
		log.Error("run failed", "stage", r.FailedStage, "error", r.ErrorDetail)
	}

	c.record(ctx, log, r)
	return *r
}

// Runs the stages in order, stopping at the first failure.
func (c *Coordinator) execute(ctx context.Context, log *slog.Logger, r *RunReport) {
	cfg, err := c.Resolve()
	if err != nil {
		r.fail(StageConfig, err)
		return
	}
	r.Project = cfg.Identity.Project
	r.Stack = cfg.Identity.Stack
	r.Engine = cfg.Engine

	manifest, err := c.load(cfg)
	if err != nil {
		r.fail(StageConfig, err)
		return
	}
	if err := site.Validate(manifest).Err(); err != nil {
		r.fail(StageConfig, err)
		return
	}

	stage, err := c.Infra(cfg)
	if err != nil {
		r.fail(StageInfra, err)
		return
	}

	var out infra.Outputs
	if r.Operation == OpPublish {
		log.Info("reading outputs of last convergence", "stack", cfg.Identity.String())
		out, err = stage.Outputs(ctx, cfg, manifest.Resource)
	} else {
		out, err = stage.Converge(ctx, cfg, manifest.Resource)
	}
	if err != nil {
		r.fail(StageInfra, err)
		return
	}
	r.ResourceID = out.ResourceID
	r.Endpoint = out.Endpoint

	publisher, err := c.Publisher(cfg)
	if err != nil {
		r.fail(StagePublish, err)
		return
	}

	res, err := publisher.Run(ctx, build.Request{
		ResourceID: out.ResourceID,
		Pipeline:   manifest.Steps(),
		Root:       manifest.Root,
		Config:     cfg,
		RunID:      sandboxPrefix(r.ID),
	})
	if err != nil {
		r.fail(StagePublish, err)
		return
	}

	r.ArtifactDigest = res.ArtifactDigest
	r.Steps = res.Steps
	r.Status = Success
}

// Appends the report to the journal. A journal failure is logged and never
// changes the outcome of the run.
func (c *Coordinator) record(ctx context.Context, log *slog.Logger, r *RunReport) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.Append(context.WithoutCancel(ctx), r.entry()); err != nil {
		log.Warn("failed to record run", "error", err)
	}
}

func (c *Coordinator) load(cfg config.DeploymentConfig) (*site.Manifest, error) {
	if c.Load != nil {
		return c.Load(cfg)
	}
	return site.Load(cfg.Manifest, cfg.SiteDir)
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// Returns a short, container-safe prefix for the sandboxes of a run.
func sandboxPrefix(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		id = id[:12]
	}
	return "siteship-" + id
}

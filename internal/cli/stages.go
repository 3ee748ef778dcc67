package cli

import (
	"context"
	"log/slog"

	"github.com/rocksun/siteship/internal/build"
	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/deploy"
	"github.com/rocksun/siteship/internal/infra"
	"github.com/rocksun/siteship/internal/journal"
)

// Creates a coordinator over the production stages.
func newCoordinator(src config.Source, store journal.Store) *deploy.Coordinator {
	return &deploy.Coordinator{
		Resolve: func() (config.DeploymentConfig, error) {
			return config.Resolve(src)
		},
		Infra:     newInfra,
		Publisher: newPublisher,
		Journal:   store,
	}
}

// Builds the convergence stage for the configured engine.
func newInfra(cfg config.DeploymentConfig) (deploy.Infra, error) {
	var engine infra.Engine
	switch cfg.Engine {
	case config.EngineTerraform:
		engine = infra.NewTerraformEngine("")
	default:
		engine = infra.NewPulumiEngine()
	}

	return &infra.Stage{
		Engine:    engine,
		Preflight: infra.StatePreflight(infra.NewStorageClient),
	}, nil
}

// Builds the publish stage over containerd.
func newPublisher(cfg config.DeploymentConfig) (deploy.Publisher, error) {
	return &build.Publisher{
		Engine: &build.ContainerdEngine{
			Address:   cfg.ContainerdAddress,
			Namespace: cfg.ContainerdNamespace,
		},
		Platform: cfg.Platform,
	}, nil
}

// Opens the run journal for a run.
//
// The journal is history, not state: if it cannot be opened the run goes
// ahead unrecorded.
func openJournal(ctx context.Context, src config.Source) journal.Store {
	location := config.JournalLocation(src)
	store, err := journal.Open(ctx, location)
	if err != nil {
		slog.Warn("run journal unavailable, not recording", "location", location, "error", err)
		return journal.Discard{}
	}
	return store
}

package cli

import (
	"context"
	"fmt"

	"github.com/rocksun/siteship/internal/deploy"
)

// Represents the 'siteship deploy' command.
type DeployCmd struct{}

// Executes the deploy command.
//
// Converges the hosting bucket, then builds and publishes the site into it.
// Prints the run report and fails if any stage failed.
func (c *DeployCmd) Run(ctx context.Context) error {
	return runCoordinator(ctx, (*deploy.Coordinator).Deploy)
}

// Represents the 'siteship publish' command.
type PublishCmd struct{}

// Executes the publish command.
//
// Resumes after a publish failure: reads the outputs of the last convergence
// and runs the pipeline again, without converging.
func (c *PublishCmd) Run(ctx context.Context) error {
	return runCoordinator(ctx, (*deploy.Coordinator).Publish)
}

func runCoordinator(ctx context.Context, run func(*deploy.Coordinator, context.Context) deploy.RunReport) error {
	src, err := source()
	if err != nil {
		return err
	}

	store := openJournal(ctx, src)
	defer store.Close()

	report := run(newCoordinator(src, store), ctx)

	fmt.Println(renderReport(report))
	return report.Err()
}

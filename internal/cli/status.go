package cli

import (
	"context"
	"fmt"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/journal"
	"github.com/rocksun/siteship/internal/storage"
)

// Represents the 'siteship status' command.
type StatusCmd struct {
	Limit int  `short:"n" help:"Number of runs to show." default:"10"`
	Check bool `help:"Inspect the bucket of the latest converged run."`
}

// Executes the status command.
//
// Lists recent runs of the stack from the journal. With --check, also
// summarizes the contents of the bucket the latest run converged, which
// requires credentials.
func (c *StatusCmd) Run(ctx context.Context) error {
	src, err := source()
	if err != nil {
		return err
	}

	id, err := config.ResolveIdentity(src)
	if err != nil {
		return err
	}

	store, err := journal.Open(ctx, config.JournalLocation(src))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, id.Project, id.Stack, c.Limit)
	if err != nil {
		return err
	}

	fmt.Println(renderHistory(id, entries))

	if !c.Check {
		return nil
	}

	bucket := latestResource(entries)
	if bucket == "" {
		return fmt.Errorf("no converged bucket recorded for %s", id)
	}

	cfg, err := config.Resolve(src)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(storage.FromDeployment(cfg))
	if err != nil {
		return err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Println(renderMissingBucket(bucket))
		return fmt.Errorf("bucket %q no longer exists", bucket)
	}

	summary, err := client.Summarize(ctx, bucket)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(bucket, client.Endpoint(), summary))
	return nil
}

// Returns the resource of the newest run that converged one.
func latestResource(entries []journal.Entry) string {
	for _, e := range entries {
		if e.ResourceID != "" {
			return e.ResourceID
		}
	}
	return ""
}

package infra

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/storage"
)

// Creates buckets on demand.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context, name string) error
}

// Returns a [BucketEnsurer] for a deployment.
type BucketClientFunc func(cfg config.DeploymentConfig) (BucketEnsurer, error)

// Returns an object storage client for the deployment's S3 endpoint.
//
// The backend's own region, when the location names one, wins over the
// deployment region: the state bucket may live elsewhere. A custom endpoint
// is kept as configured.
func NewStorageClient(cfg config.DeploymentConfig) (BucketEnsurer, error) {
	sc := storage.FromDeployment(cfg)
	if r := cfg.Backend.Region; r != "" && r != cfg.Region {
		sc.Region = r
		if sc.Endpoint == awsEndpoint(cfg.Region) {
			sc.Endpoint = awsEndpoint(r)
		}
	}
	return storage.NewClient(sc)
}

// Returns a [Preflight] that creates the S3 state bucket named by the
// backend location if it does not exist yet. Other backends are left alone.
func StatePreflight(newClient BucketClientFunc) Preflight {
	return func(ctx context.Context, cfg config.DeploymentConfig) error {
		if !cfg.Backend.IsS3() {
			slog.Debug("state preflight skipped", "scheme", cfg.Backend.Scheme)
			return nil
		}

		c, err := newClient(cfg)
		if err != nil {
			return fmt.Errorf("state bucket: %w", err)
		}
		if err := c.EnsureBucket(ctx, cfg.Backend.Bucket); err != nil {
			return fmt.Errorf("state bucket: %w", err)
		}
		return nil
	}
}

func awsEndpoint(region string) string {
	return "s3." + region + ".amazonaws.com"
}

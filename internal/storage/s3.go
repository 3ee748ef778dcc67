package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rocksun/siteship/internal/config"
)

// Region used when creating buckets if none is configured.
const defaultRegion = "us-east-1"

type Config struct {
	Endpoint     string // Host[:port], or a URL whose scheme selects TLS.
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

// Builds a storage configuration from a resolved deployment configuration.
func FromDeployment(cfg config.DeploymentConfig) Config {
	return Config{
		Endpoint:     cfg.S3Endpoint,
		AccessKey:    cfg.Credentials.AccessKey,
		SecretKey:    cfg.Credentials.SecretKey,
		SessionToken: cfg.Credentials.SessionToken,
		Region:       cfg.Region,
		UseSSL:       true,
	}
}

type Client struct {
	mc     *minio.Client
	config Config
}

// Summary of a bucket's contents.
type Summary struct {
	Objects      int
	Bytes        int64
	LastModified time.Time
}

func NewClient(cfg Config) (*Client, error) {
	host, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClient, err)
	}
	cfg.Endpoint = host
	cfg.UseSSL = secure

	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClient, err)
	}
	return &Client{mc: mc, config: cfg}, nil
}

// Creates the bucket unless it already exists.
func (c *Client) EnsureBucket(ctx context.Context, name string) error {
	exists, err := c.mc.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: check bucket %s: %w", ErrBucket, name, err)
	}
	if exists {
		slog.Debug("bucket exists", "bucket", name)
		return nil
	}

	region := c.config.Region
	if region == "" {
		region = defaultRegion
	}
	if err := c.mc.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: region}); err != nil {
		// Lost a creation race with another run; the bucket is there now.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("%w: create bucket %s: %w", ErrBucket, name, err)
	}

	slog.Info("created bucket", "bucket", name, "region", region)
	return nil
}

func (c *Client) BucketExists(ctx context.Context, name string) (bool, error) {
	ok, err := c.mc.BucketExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: check bucket %s: %w", ErrBucket, name, err)
	}
	return ok, nil
}

// Counts the objects in a bucket and their total size.
func (c *Client) Summarize(ctx context.Context, bucket string) (Summary, error) {
	var s Summary
	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return Summary{}, fmt.Errorf("%w: list %s: %w", ErrBucket, bucket, obj.Err)
		}
		s.Objects++
		s.Bytes += obj.Size
		if obj.LastModified.After(s.LastModified) {
			s.LastModified = obj.LastModified
		}
	}
	return s, nil
}

func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Splits an endpoint into the host minio expects and whether to use TLS.
//
// A bare host keeps the caller's TLS choice; an http or https URL overrides
// it. Paths are not supported by S3 endpoints and are rejected.
func parseEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("endpoint %q must not have a path", endpoint)
	}

	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
}

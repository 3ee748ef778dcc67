// Package storage is a thin client for S3-compatible object storage.
//
// It covers the few direct bucket operations a run needs outside the
// infrastructure engine: making sure the bucket that holds convergence state
// exists before the engine tries to lock it, and summarising what a publish
// left in the destination bucket.
//
// Example usage:
//
//	c, err := storage.NewClient(storage.Config{
//	    Endpoint:  "s3.ap-southeast-1.amazonaws.com",
//	    Region:    "ap-southeast-1",
//	    AccessKey: cfg.Credentials.AccessKey,
//	    SecretKey: cfg.Credentials.SecretKey,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := c.EnsureBucket(ctx, "my-pulumi-state-bucket"); err != nil {
//	    return err
//	}
package storage

package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.check(ctx, "mkdir "+path, stdio{}, "mkdir", "-p", path)
}

// Extracts a tar stream into destDir inside the container.
//
// Needs a tar binary in the image.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	in := newStdinStream(r)
	if err := c.check(ctx, "extract into "+destDir, stdio{stdin: in}, "tar", "xf", "-", "-C", destDir); err != nil {
		return err
	}
	slog.Debug("copied into container", "id", c.id, "dest", destDir, "bytes", in.Bytes())
	return nil
}

// Archives path inside the container and streams the tar to w. The archive
// holds a single top-level entry named after path's base.
//
// Needs a tar binary in the image.
func (c *Container) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	out := &countingWriter{w: w}
	if err := c.check(ctx, "archive "+path, stdio{stdout: out}, "tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path)); err != nil {
		return err
	}
	slog.Debug("copied from container", "id", c.id, "src", path, "bytes", out.n)
	return nil
}

// Runs a helper command and turns a non-zero exit into an error naming what
// was attempted.
func (c *Container) check(ctx context.Context, what string, s stdio, args ...string) error {
	code, stderr, err := c.run(ctx, s, nil, "", args)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%w: %s: exit code %d: %s", ErrRuntime, what, code, strings.TrimSpace(stderr))
	}
	return nil
}

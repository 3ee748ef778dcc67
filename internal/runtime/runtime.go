package runtime

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/distribution/reference"
)

const (

	// Default snapshotter for container filesystems.
	DefaultSnapshotter = "overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client and provides image and container operations.
type Runtime struct {
	client      *containerd.Client // Containerd client for managing containers and images.
	snapshotter string             // Snapshotter for unpacked layers and container snapshots.
}

// Configures a [Runtime].
type Option func(*Runtime)

// Selects the snapshotter (e.g., "fuse-overlayfs" for rootless containerd).
func WithSnapshotter(name string) Option {
	return func(rt *Runtime) {
		if name != "" {
			rt.snapshotter = name
		}
	}
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// connection is verified before returning, so an unreachable daemon fails
// here rather than on the first container operation. The runtime must be
// closed when no longer needed.
func New(ctx context.Context, address, namespace string, opts ...Option) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrConnect, address, err)
	}

	if _, err := client.Version(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w at %s: %w", ErrConnect, address, err)
	}

	rt := &Runtime{client: client, snapshotter: DefaultSnapshotter}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Starts a container from an image reference.
//
// The image is pulled for the target platform unless already present, and
// its layers are unpacked into the snapshotter. A container is created with a
// fresh snapshot, and a long-running task (sleep infinity) is started so that
// subsequent exec calls have a running process to attach to. Any existing
// container with the same ID is removed before the new one is created.
func (rt *Runtime) StartContainer(ctx context.Context, ref, id, platform string) (*Container, error) {
	if platform == "" {
		platform = defaultPlatform()
	}

	name, err := normalizeRef(ref)
	if err != nil {
		return nil, err
	}

	image, err := rt.ensureImage(ctx, name, platform)
	if err != nil {
		return nil, err
	}

	c := &Container{
		client:      rt.client,
		id:          id,
		platform:    platform,
		snapshotter: rt.snapshotter,
	}

	// Remove any stale container from an interrupted run with the same ID.
	c.remove(ctx)

	ctr, err := c.create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrRuntime, id, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: start %s: %w", ErrRuntime, id, err)
	}

	slog.Debug("container started", "id", id, "image", name, "platform", platform)

	return c, nil
}

// Returns the image for ref and platform, pulling it if necessary, with its
// layers unpacked into the snapshotter.
func (rt *Runtime) ensureImage(ctx context.Context, ref, platform string) (containerd.Image, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, fmt.Errorf("%w: platform %q: %w", ErrRuntime, platform, err)
	}
	matcher := platforms.Only(p)

	img, err := rt.client.ImageService().Get(ctx, ref)
	switch {
	case err == nil:
		image := containerd.NewImageWithPlatform(rt.client, img, matcher)
		if err := rt.unpack(ctx, image); err != nil {
			return nil, err
		}
		return image, nil

	case !errdefs.IsNotFound(err):
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntime, ref, err)
	}

	slog.Info("pulling image", "image", ref, "platform", platform)
	image, err := rt.client.Pull(ctx, ref,
		containerd.WithPlatformMatcher(matcher),
		containerd.WithPullUnpack,
		containerd.WithPullSnapshotter(rt.snapshotter),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPull, ref, err)
	}
	return image, nil
}

// Unpacks the image layers into the snapshotter, if not already unpacked.
func (rt *Runtime) unpack(ctx context.Context, image containerd.Image) error {
	ok, err := image.IsUnpacked(ctx, rt.snapshotter)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if ok {
		return nil
	}
	if err := image.Unpack(ctx, rt.snapshotter); err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrRuntime, image.Name(), err)
	}
	return nil
}

// Expands a short image reference ("node:18-alpine") to the fully qualified
// form containerd resolves ("docker.io/library/node:18-alpine").
func normalizeRef(ref string) (string, error) {
	named, err := reference.ParseDockerRef(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrImageRef, ref, err)
	}
	return named.String(), nil
}

// Returns the default OCI platform for the host architecture.
func defaultPlatform() string {
	return "linux/" + goruntime.GOARCH
}

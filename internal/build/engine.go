package build

import (
	"context"
	"io"

	"github.com/rocksun/siteship/internal/runtime"
)

// A container pipeline engine.
type Engine interface {

	// Establishes a session with the engine.
	Connect(ctx context.Context) (Session, error)
}

// A connection to a pipeline engine.
type Session interface {

	// Starts a disposable sandbox from a base image.
	Start(ctx context.Context, image, id, platform string) (Sandbox, error)

	Close() error
}

// An isolated, disposable execution environment.
type Sandbox interface {
	Exec(ctx context.Context, args []string, env []string, workdir string) (*runtime.ExecResult, error)
	MkdirAll(ctx context.Context, path string) error
	CopyTo(ctx context.Context, r io.Reader, destDir string) error
	CopyFrom(ctx context.Context, w io.Writer, path string) error
	Destroy(ctx context.Context)
}

// Runs pipeline steps in containerd.
type ContainerdEngine struct {
	Address     string // Containerd socket address.
	Namespace   string // Containerd namespace for pipeline containers.
	Snapshotter string // Snapshotter name; empty selects the runtime default.
}

func (e *ContainerdEngine) Connect(ctx context.Context) (Session, error) {
	rt, err := runtime.New(ctx, e.Address, e.Namespace, runtime.WithSnapshotter(e.Snapshotter))
	if err != nil {
		return nil, err
	}
	return &containerdSession{rt: rt}, nil
}

type containerdSession struct {
	rt *runtime.Runtime
}

func (s *containerdSession) Start(ctx context.Context, image, id, platform string) (Sandbox, error) {
	ctr, err := s.rt.StartContainer(ctx, image, id, platform)
	if err != nil {
		return nil, err
	}
	return ctr, nil
}

func (s *containerdSession) Close() error {
	return s.rt.Close()
}

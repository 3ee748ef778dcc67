package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync/atomic"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Bytes of stderr kept from each process.
const stderrTail = 64 << 10

// Sequence counter for exec process IDs.
var execSeq uint64

// Returns a unique exec process ID.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Output of a command execution inside a container.
type ExecResult struct {
	ExitCode int    // Exit code of the process.
	Stdout   string // Captured standard output.
	Stderr   string // Tail of standard error.
}

// Streams attached to an exec process. Nil streams are discarded.
type stdio struct {
	stdin  io.Reader
	stdout io.Writer
}

// Runs an argument vector inside the container.
//
// No shell is involved; a step that needs one asks for it (["sh", "-c",
// "..."]). env entries are merged over the image's environment and workdir
// replaces its working directory, for this process only. A non-zero exit is
// reported in the result, not as an error.
func (c *Container) Exec(ctx context.Context, args []string, env []string, workdir string) (*ExecResult, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrRuntime)
	}

	var stdout bytes.Buffer
	code, stderr, err := c.run(ctx, stdio{stdout: &stdout}, env, workdir, args)
	if err != nil {
		return nil, err
	}

	return &ExecResult{ExitCode: code, Stdout: stdout.String(), Stderr: stderr}, nil
}

// Runs args as an additional process of the container's task and waits for
// it. Returns the exit code and the tail of stderr.
func (c *Container) run(ctx context.Context, s stdio, env []string, workdir string, args []string) (int, string, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	pspec, err := processSpec(ctx, ctr, env, workdir, args)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	stderr := &tailBuffer{max: stderrTail}
	code, err := execTask(ctx, task, pspec, s, stderr)
	if err != nil {
		return 0, "", err
	}
	return code, stderr.String(), nil
}

// Derives the process spec for args from the container's own spec.
func processSpec(ctx context.Context, ctr containerd.Container, env []string, workdir string, args []string) (*specs.Process, error) {
	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, env)
	}
	if workdir != "" {
		pspec.Cwd = workdir
	}

	return &pspec, nil
}

// Merges override entries over base, sorted by key. Entries without "=" are
// dropped.
func mergeEnv(base, overrides []string) []string {
	merged := make(map[string]string, len(base)+len(overrides))
	for _, list := range [][]string{base, overrides} {
		for _, entry := range list {
			if k, v, ok := strings.Cut(entry, "="); ok {
				merged[k] = v
			}
		}
	}

	result := make([]string, 0, len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		result = append(result, k+"="+merged[k])
	}
	return result
}

// Execs pspec in task, waits for it to exit and deletes it.
//
// When stdin is attached, the process's stdin is closed once the reader is
// exhausted; see [stdinStream].
func execTask(ctx context.Context, task containerd.Task, pspec *specs.Process, s stdio, stderr io.Writer) (int, error) {
	stdout := s.stdout
	if stdout == nil {
		stdout = io.Discard
	}

	var stdin io.Reader
	var stdinDone <-chan struct{}
	if s.stdin != nil {
		in := newStdinStream(s.stdin)
		stdin, stdinDone = in, in.done
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(cio.WithStreams(stdin, stdout, stderr)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer process.Delete(context.WithoutCancel(ctx))

	statusC, err := process.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if err := process.Start(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if stdinDone != nil {
		go func() {
			select {
			case <-stdinDone:
				process.CloseIO(ctx, containerd.WithStdinCloser)
			case <-ctx.Done():
			}
		}()
	}

	var status containerd.ExitStatus
	select {
	case status = <-statusC:
	case <-ctx.Done():
		process.Kill(context.WithoutCancel(ctx), syscall.SIGKILL)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, ctx.Err())
	}

	code, _, err := status.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return int(code), nil
}

// Package runtime manages pipeline containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon, pulls base images from their
// registries for the target platform, and creates containers with fresh
// snapshots. Each [Container] wraps a running containerd task that idles
// until commands are executed in it.
//
// Commands run as argument vectors with per-call environment and working
// directory. Files move in and out of containers as tar streams, which lets
// one container's output be piped straight into the next without touching
// the host. Containers are disposable: destroy each one when done to release
// its snapshot and task.
//
// Example usage:
//
//	rt, err := runtime.New(ctx, "/run/containerd/containerd.sock", "siteship")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "node:18-alpine", "run-1-build", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, []string{"npm", "install"}, nil, "/src")
//	if err != nil {
//	    return err
//	}
//	if result.ExitCode != 0 {
//	    return fmt.Errorf("npm install: %s", result.Stderr)
//	}
package runtime

// Package build runs the site pipeline and publishes its output.
//
// A pipeline is an ordered chain of steps. Each step gets a fresh sandbox
// from the pipeline engine, started from the step's base image and seeded
// only with its declared inputs: host paths, or the artifact of the step
// immediately before it, streamed between sandboxes as a tar archive. The
// step's commands run in order; a non-zero exit aborts the run. The step that
// publishes then syncs a directory to the destination bucket with
// delete-extraneous semantics, so repeated runs converge the bucket on the
// artifact rather than accumulating objects.
//
// Publication requires a destination. An empty resource identifier is
// rejected before the engine is contacted. Sandboxes are destroyed as soon
// as their artifact has been handed on, and in any case before [Publisher.Run]
// returns.
//
// Example usage:
//
//	p := &build.Publisher{Engine: &build.ContainerdEngine{
//	    Address:   "/run/containerd/containerd.sock",
//	    Namespace: "siteship",
//	}}
//
//	result, err := p.Run(ctx, build.Request{
//	    ResourceID: outputs.ResourceID,
//	    Pipeline:   manifest.Steps(),
//	    Root:       manifest.Root,
//	    Config:     cfg,
//	    RunID:      runID,
//	})
//	if err != nil {
//	    return err // *build.Error
//	}
package build

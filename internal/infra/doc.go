// Package infra converges the hosting resource through an infrastructure
// engine and returns the outputs publication needs.
//
// An [Engine] owns resource diffing and persisted state; this package only
// submits a [site.ResourceSpec] under a stable (project, stack) identity and
// reads back two named outputs. Two engines are provided: [PulumiEngine]
// drives the Pulumi automation API with an inline program, and
// [TerraformEngine] renders an equivalent configuration and drives the
// terraform binary.
//
// A [Stage] wraps an engine with the convergence contract. Submissions that
// fail transiently (network trouble, lock contention on the stack) are
// retried with bounded exponential backoff; anything else fails at once. A
// convergence that succeeds without both outputs is reported as
// [OutputMissing]. Callers see either outputs or a single [*Error]:
//
//	Idle -> Submitting -> Converging -> Succeeded | Failed
//
// Example usage:
//
//	stage := &infra.Stage{
//	    Engine:    infra.NewPulumiEngine(),
//	    Preflight: infra.StatePreflight(infra.NewStorageClient),
//	}
//
//	out, err := stage.Converge(ctx, cfg, spec)
//	if err != nil {
//	    return err // *infra.Error
//	}
//	fmt.Println(out.ResourceID, out.Endpoint)
package infra

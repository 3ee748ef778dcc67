// Sequences a release: configuration, convergence, then build and publish.
//
// The [Coordinator] is the only component that sees all three stages. It
// resolves the deployment configuration exactly once, converges the hosting
// bucket, and only with the converged resource identifier in hand runs the
// site pipeline that publishes into it. The first stage to fail ends the run.
// Nothing is retried across stage boundaries and nothing is rolled back: a
// publish failure leaves the bucket converged, and the report says so by
// carrying the resource identifier and endpoint alongside the failure.
//
// Every run ends in a [RunReport]. Failures are classified only by stage
// (Config, Infra or Publish); the stage's own error text is kept verbatim in
// the report's ErrorDetail.
//
// [Coordinator.Publish] is the resume path for a partial success. It reads the
// outputs of the last convergence instead of converging, then runs the
// pipeline again.
//
// Example usage:
//
//	c := &deploy.Coordinator{
//	    Resolve:   func() (config.DeploymentConfig, error) { return config.Resolve(src) },
//	    Infra:     newInfra,
//	    Publisher: newPublisher,
//	    Journal:   store,
//	}
//
//	report := c.Deploy(ctx)
//	if err := report.Err(); err != nil {
//	    return err
//	}
package deploy

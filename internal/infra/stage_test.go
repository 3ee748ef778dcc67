package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

// Engine fake that keeps one stack's outputs in memory and fails on demand.
type fakeEngine struct {
	upErrs  []error // Returned by successive Up calls before succeeding.
	outputs map[string]string
	state   map[string]map[string]string
	ups     int
	reads   int
	targets []Target
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		outputs: map[string]string{
			site.OutputResourceID: "site-bucket-123",
			site.OutputEndpoint:   "site-bucket-123.s3-website.ap-southeast-1.amazonaws.com",
		},
		state: make(map[string]map[string]string),
	}
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Up(_ context.Context, t Target) (map[string]string, error) {
	f.ups++
	f.targets = append(f.targets, t)
	if len(f.upErrs) > 0 {
		err := f.upErrs[0]
		f.upErrs = f.upErrs[1:]
		return nil, err
	}

	id := t.Config.Identity.String()
	if _, ok := f.state[id]; !ok {
		f.state[id] = f.outputs
	}
	return f.state[id], nil
}

func (f *fakeEngine) Outputs(_ context.Context, t Target) (map[string]string, error) {
	f.reads++
	out, ok := f.state[t.Config.Identity.String()]
	if !ok {
		return nil, ErrStackNotFound
	}
	return out, nil
}

func testConfig() config.DeploymentConfig {
	return config.DeploymentConfig{
		Region:   "ap-southeast-1",
		Identity: config.StackIdentity{Project: "dagger-pulumi-demo", Stack: "dev"},
		Engine:   "fake",
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{Attempts: 4, Initial: time.Millisecond, Max: 5 * time.Millisecond}
}

func TestConvergeReturnsOutputs(t *testing.T) {
	eng := newFakeEngine()
	stage := &Stage{Engine: eng, Retry: fastRetry()}

	out, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())
	require.NoError(t, err)

	assert.Equal(t, "site-bucket-123", out.ResourceID)
	assert.Equal(t, "site-bucket-123.s3-website.ap-southeast-1.amazonaws.com", out.Endpoint)
	assert.Equal(t, 1, eng.ups)
	assert.Equal(t, site.DefaultResource(), eng.targets[0].Resource)
}

func TestConvergeIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	stage := &Stage{Engine: eng, Retry: fastRetry()}
	cfg := testConfig()
	spec := site.DefaultResource()

	first, err := stage.Converge(context.Background(), cfg, spec)
	require.NoError(t, err)
	second, err := stage.Converge(context.Background(), cfg, spec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, eng.state, 1, "same identity must not create a second stack")
}

func TestConvergeRetriesTransientFailures(t *testing.T) {
	eng := newFakeEngine()
	eng.upErrs = []error{
		classify(errors.New("dial tcp: i/o timeout")),
		fmtConflict(),
	}
	stage := &Stage{Engine: eng, Retry: fastRetry()}

	out, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())
	require.NoError(t, err)

	assert.Equal(t, 3, eng.ups)
	assert.Equal(t, "site-bucket-123", out.ResourceID)
}

func TestConvergeExhaustedConflict(t *testing.T) {
	eng := newFakeEngine()
	for range 4 {
		eng.upErrs = append(eng.upErrs, fmtConflict())
	}
	stage := &Stage{Engine: eng, Retry: fastRetry()}

	_, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())
	require.Error(t, err)

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, Conflict, ierr.Kind)
	assert.Equal(t, 4, ierr.Attempts)
	assert.Equal(t, 4, eng.ups, "retries are bounded by the policy")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestConvergeStructuralFailureIsNotRetried(t *testing.T) {
	eng := newFakeEngine()
	eng.upErrs = []error{classify(errors.New("AccessDenied: not authorized to perform s3:CreateBucket"))}
	stage := &Stage{Engine: eng, Retry: fastRetry()}

	_, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, SubmissionFailed, ierr.Kind)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "AccessDenied")
	assert.Equal(t, 1, eng.ups)
}

func TestConvergeOutputMissing(t *testing.T) {
	tests := []struct {
		name    string
		outputs map[string]string
	}{
		{name: "no outputs", outputs: map[string]string{}},
		{name: "endpoint missing", outputs: map[string]string{site.OutputResourceID: "b"}},
		{name: "resource id empty", outputs: map[string]string{site.OutputResourceID: " ", site.OutputEndpoint: "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newFakeEngine()
			eng.outputs = tt.outputs
			stage := &Stage{Engine: eng, Retry: fastRetry()}

			_, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())

			var ierr *Error
			require.ErrorAs(t, err, &ierr)
			assert.Equal(t, OutputMissing, ierr.Kind)
			assert.ErrorIs(t, err, ErrOutputMissing)
		})
	}
}

func TestConvergePreflightFailure(t *testing.T) {
	eng := newFakeEngine()
	stage := &Stage{
		Engine: eng,
		Retry:  fastRetry(),
		Preflight: func(context.Context, config.DeploymentConfig) error {
			return errors.New("state bucket unreachable")
		},
	}

	_, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())

	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, SubmissionFailed, ierr.Kind)
	assert.Zero(t, eng.ups, "engine must not be called after a failed preflight")
}

func TestConvergePreflightRetriesTransient(t *testing.T) {
	eng := newFakeEngine()
	calls := 0
	stage := &Stage{
		Engine: eng,
		Retry:  fastRetry(),
		Preflight: func(context.Context, config.DeploymentConfig) error {
			calls++
			if calls == 1 {
				return errors.New("state bucket: SlowDown: please reduce your request rate")
			}
			return nil
		},
	}

	out, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())
	require.NoError(t, err)
	assert.Equal(t, "site-bucket-123", out.ResourceID)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, eng.ups)
}

func TestConvergePreflightPermanentNotRetried(t *testing.T) {
	calls := 0
	stage := &Stage{
		Engine: newFakeEngine(),
		Retry:  fastRetry(),
		Preflight: func(context.Context, config.DeploymentConfig) error {
			calls++
			return errors.New("state bucket: AccessDenied")
		},
	}

	_, err := stage.Converge(context.Background(), testConfig(), site.DefaultResource())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestConvergeCancelledStopsRetrying(t *testing.T) {
	eng := newFakeEngine()
	ctx, cancel := context.WithCancel(context.Background())
	eng.upErrs = []error{classify(errors.New("connection reset by peer"))}
	cancel()

	stage := &Stage{Engine: eng, Retry: fastRetry()}
	_, err := stage.Converge(ctx, testConfig(), site.DefaultResource())

	require.Error(t, err)
	assert.Equal(t, 1, eng.ups)
}

func TestConvergeDoesNotShareTags(t *testing.T) {
	eng := newFakeEngine()
	stage := &Stage{Engine: eng, Retry: fastRetry()}
	spec := site.DefaultResource()

	_, err := stage.Converge(context.Background(), testConfig(), spec)
	require.NoError(t, err)

	eng.targets[0].Resource.Tags["Environment"] = "mutated"
	assert.Equal(t, "Dev", spec.Tags["Environment"])
}

func TestStageOutputs(t *testing.T) {
	eng := newFakeEngine()
	stage := &Stage{Engine: eng, Retry: fastRetry()}
	cfg := testConfig()

	_, err := stage.Outputs(context.Background(), cfg, site.DefaultResource())
	var ierr *Error
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, OutputMissing, ierr.Kind, "never-converged stack has no outputs")

	converged, err := stage.Converge(context.Background(), cfg, site.DefaultResource())
	require.NoError(t, err)

	read, err := stage.Outputs(context.Background(), cfg, site.DefaultResource())
	require.NoError(t, err)
	assert.Equal(t, converged, read)
	assert.Equal(t, 1, eng.ups, "reading outputs must not converge")
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		Idle:       "idle",
		Submitting: "submitting",
		Converging: "converging",
		Succeeded:  "succeeded",
		Failed:     "failed",
		State(99):  "unknown",
	}
	for s, w := range want {
		assert.Equal(t, w, s.String())
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: Conflict, Attempts: 3, Err: errors.New("locked")}
	assert.Equal(t, "infra Conflict after 3 attempts: locked", err.Error())

	err = &Error{Kind: OutputMissing, Attempts: 1}
	assert.Equal(t, "infra OutputMissing", err.Error())
}

func fmtConflict() error {
	return classify(errors.New("Error acquiring the state lock: ConditionalCheckFailedException"))
}

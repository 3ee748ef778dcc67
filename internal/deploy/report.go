package deploy

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/rocksun/siteship/internal/build"
	"github.com/rocksun/siteship/internal/journal"
)

// Terminal status of a run.
type Status string

const (
	Success Status = "Success"
	Failed  Status = "Failed"
)

// Stage at which a run failed.
type Stage string

const (
	StageConfig  Stage = "Config"
	StageInfra   Stage = "Infra"
	StagePublish Stage = "Publish"
)

// Entry point that produced a run.
type Operation string

const (
	OpDeploy  Operation = "deploy"
	OpPublish Operation = "publish"
)

// Terminal record of one run.
type RunReport struct {
	ID             string
	Operation      Operation
	Project        string
	Stack          string
	Engine         string
	Status         Status
	FailedStage    Stage         // Set only when Status is Failed.
	ResourceID     string        // Set once convergence has succeeded, even if publish failed.
	Endpoint       string        // Set together with ResourceID.
	ErrorDetail    string        // Failing stage's error text, verbatim.
	ArtifactDigest digest.Digest // Artifact handed to the publishing step.
	Steps          []build.StepResult
	StartedAt      time.Time
	FinishedAt     time.Time

	cause error
}

// Returns nil for a successful run, otherwise an error naming the failed
// stage and wrapping the stage's own error.
func (r RunReport) Err() error {
	if r.Status == Success {
		return nil
	}
	if r.cause == nil {
		return fmt.Errorf("%s stage failed: %s", r.FailedStage, r.ErrorDetail)
	}
	return fmt.Errorf("%s stage failed: %w", r.FailedStage, r.cause)
}

// Reports whether infrastructure converged but publishing did not.
func (r RunReport) PartialSuccess() bool {
	return r.Status == Failed && r.FailedStage == StagePublish && r.ResourceID != ""
}

// Duration of the run.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *RunReport) fail(stage Stage, err error) {
	r.Status = Failed
	r.FailedStage = stage
	r.ErrorDetail = err.Error()
	r.cause = err
}

// Converts the report to a journal entry.
func (r RunReport) entry() journal.Entry {
	return journal.Entry{
		ID:             r.ID,
		Operation:      string(r.Operation),
		Project:        r.Project,
		Stack:          r.Stack,
		Engine:         r.Engine,
		Status:         string(r.Status),
		FailedStage:    string(r.FailedStage),
		ResourceID:     r.ResourceID,
		Endpoint:       r.Endpoint,
		ErrorDetail:    r.ErrorDetail,
		ArtifactDigest: r.ArtifactDigest.String(),
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

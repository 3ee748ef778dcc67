package site

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Severity levels for validation findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Outcome of validating a manifest.
type ValidationResult struct {
	Valid    bool
	Findings []ValidationFinding
}

// A single problem found in a manifest.
type ValidationFinding struct {
	Severity string
	Field    string
	Message  string
}

func (f ValidationFinding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Field, f.Message)
}

// S3 bucket naming rules, minus the IP-address exclusion.
var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

var stepNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Checks a manifest for problems that would otherwise surface mid-run.
//
// Errors make the result invalid. Warnings flag configurations that run but
// are probably not what was meant.
func Validate(m *Manifest) *ValidationResult {
	r := &ValidationResult{Valid: true}

	validateResource(r, m.Resource)
	validatePipeline(r, m.Pipeline)

	return r
}

func validateResource(r *ValidationResult, res ResourceSpec) {
	switch {
	case res.Name == "":
		r.add(SeverityError, "resource.name", "bucket name is required")
	case !bucketNameRe.MatchString(res.Name) || strings.Contains(res.Name, ".."):
		r.add(SeverityError, "resource.name", fmt.Sprintf("%q is not a valid bucket name", res.Name))
	}

	if res.IndexDocument == "" {
		r.add(SeverityError, "resource.indexDocument", "index document is required")
	} else if strings.Contains(res.IndexDocument, "/") {
		r.add(SeverityError, "resource.indexDocument", "index document must not contain a slash")
	}

	for k := range res.Tags {
		if k == "" {
			r.add(SeverityError, "resource.tags", "tag keys must not be empty")
		}
	}
}

func validatePipeline(r *ValidationResult, steps []Step) {
	if len(steps) == 0 {
		r.add(SeverityError, "pipeline", "at least one step is required")
		return
	}

	seen := make(map[string]bool, len(steps))
	publishers := 0

	for i, step := range steps {
		field := fmt.Sprintf("pipeline[%d]", i)

		switch {
		case step.Name == "":
			r.add(SeverityError, field+".name", "step name is required")
		case !stepNameRe.MatchString(step.Name):
			r.add(SeverityError, field+".name", fmt.Sprintf("step name %q must match %s", step.Name, stepNameRe))
		case seen[step.Name]:
			r.add(SeverityError, field+".name", fmt.Sprintf("duplicate step name %q", step.Name))
		}
		seen[step.Name] = true

		if step.Image == "" {
			r.add(SeverityError, field+".image", "base image is required")
		}

		for j, cmd := range step.Run {
			if len(cmd) == 0 {
				r.add(SeverityError, fmt.Sprintf("%s.run[%d]", field, j), "command is empty")
			}
		}

		var prev *Step
		if i > 0 {
			prev = &steps[i-1]
		}
		validateInputs(r, field, step, prev)

		if step.Publish != nil {
			publishers++
			validatePublish(r, field, step, i == len(steps)-1)
		}

		if step.Artifact != "" && i == len(steps)-1 {
			r.add(SeverityWarning, field+".artifact", "artifact of the last step is never consumed")
		}
	}

	if publishers == 0 {
		r.add(SeverityWarning, "pipeline", "no step publishes; the run will not change the destination")
	}
	if publishers > 1 {
		r.add(SeverityError, "pipeline", "at most one step may publish")
	}
}

// Checks that a step reads only host paths or the previous step's artifact.
func validateInputs(r *ValidationResult, field string, step Step, prev *Step) {
	for j, raw := range step.Inputs {
		f := fmt.Sprintf("%s.inputs[%d]", field, j)

		in, err := ParseInput(raw, step.Workdir)
		if err != nil {
			r.add(SeverityError, f, err.Error())
			continue
		}
		if !in.FromStep() {
			continue
		}

		switch {
		case prev == nil:
			r.add(SeverityError, f, fmt.Sprintf("first step cannot read from step %q", in.Step))
		case in.Step != prev.Name:
			r.add(SeverityError, f, fmt.Sprintf("step %q may only read from the previous step %q", step.Name, prev.Name))
		case prev.Artifact == "":
			r.add(SeverityError, f, fmt.Sprintf("step %q declares no artifact", prev.Name))
		case !within(prev.Artifact, in.Source):
			r.add(SeverityError, f, fmt.Sprintf("%s is outside the artifact %s of step %q", in.Source, prev.Artifact, prev.Name))
		}
	}
}

func validatePublish(r *ValidationResult, field string, step Step, last bool) {
	if !last {
		r.add(SeverityError, field+".publish", "only the last step may publish")
	}
	if step.Publish.Source == "" {
		r.add(SeverityError, field+".publish.source", "publish source is required")
	}
	if !step.Credentials {
		r.add(SeverityWarning, field+".credentials", "publish step runs without cloud credentials")
	}
	if !step.Publish.DeleteExtraneous() {
		r.add(SeverityWarning, field+".publish.delete", "stale objects will accumulate in the destination")
	}
}

func (r *ValidationResult) add(severity, field, message string) {
	if severity == SeverityError {
		r.Valid = false
	}
	r.Findings = append(r.Findings, ValidationFinding{
		Severity: severity,
		Field:    field,
		Message:  message,
	})
}

// Returns the error findings joined as one error, or nil when valid.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	var errs []error
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			errs = append(errs, errors.New(f.Field+": "+f.Message))
		}
	}
	return fmt.Errorf("%w: %w", ErrManifest, errors.Join(errs...))
}

package build

import (
	"maps"
	"slices"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

// Effective execution settings for one step.
//
// Values come from the step declaration, overlaid with cloud credentials when
// the step asks for them. Credential variables are remembered so they can be
// masked wherever the environment is logged.
type stepState struct {
	workdir string
	env     map[string]string
	secrets map[string]bool
}

// Resolves the settings for step. Credentials override any same-named
// variables the step declares, so a manifest cannot point the sync at a
// different account by accident.
func newStepState(step site.Step, creds config.Credentials, region string) *stepState {
	s := &stepState{
		workdir: step.Workdir,
		env:     make(map[string]string, len(step.Env)+5),
		secrets: make(map[string]bool),
	}
	maps.Copy(s.env, step.Env)

	if step.Credentials {
		for k, v := range creds.AWSEnv(region) {
			s.env[k] = v
			if k != "AWS_DEFAULT_REGION" && k != "AWS_REGION" {
				s.secrets[k] = true
			}
		}
	}

	return s
}

// Formats the environment as a sorted list of "key=value" strings suitable
// for passing to container exec.
func (s *stepState) environ() []string {
	env := make([]string, 0, len(s.env))
	for _, k := range slices.Sorted(maps.Keys(s.env)) {
		env = append(env, k+"="+s.env[k])
	}
	return env
}

// Like [stepState.environ], with secret values masked.
func (s *stepState) redacted() []string {
	env := make([]string, 0, len(s.env))
	for _, k := range slices.Sorted(maps.Keys(s.env)) {
		v := s.env[k]
		if s.secrets[k] {
			v = "***"
		}
		env = append(env, k+"="+v)
	}
	return env
}

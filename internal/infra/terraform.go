package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/terraform-exec/tfexec"

	"github.com/rocksun/siteship/internal/paths"
)

// How long apply waits for another holder of the state lock before failing.
const terraformLockTimeout = "60s"

// Environment variables tfexec sets itself and refuses to inherit.
var managedTerraformVars = []string{
	"TF_APPEND_USER_AGENT",
	"TF_CLI_ARGS",
	"TF_DISABLE_PLUGIN_TLS",
	"TF_IN_AUTOMATION",
	"TF_INPUT",
	"TF_LOG",
	"TF_REATTACH_PROVIDERS",
	"TF_SKIP_PROVIDER_VERIFY",
	"TF_WORKSPACE",
}

// Drives the terraform binary against a configuration rendered from the
// resource spec.
type TerraformEngine struct {
	execPath  string
	workspace func(project, stack string) string
}

// Creates a Terraform engine. An empty execPath locates the binary on first
// use.
func NewTerraformEngine(execPath string) *TerraformEngine {
	return &TerraformEngine{
		execPath:  execPath,
		workspace: paths.TerraformWorkspace,
	}
}

func (e *TerraformEngine) Name() string {
	return "terraform"
}

// Renders the configuration, initialises the backend, and applies.
func (e *TerraformEngine) Up(ctx context.Context, t Target) (map[string]string, error) {
	tf, done, err := e.init(ctx, t)
	if err != nil {
		return nil, err
	}
	defer done()

	// Lock contention surfaces only as "Error acquiring the state lock" text.
	if err := tf.Apply(ctx, tfexec.Lock(true), tfexec.LockTimeout(terraformLockTimeout)); err != nil {
		return nil, classify(err)
	}

	return e.output(ctx, tf)
}

// Initialises the backend and reads the outputs recorded in state.
func (e *TerraformEngine) Outputs(ctx context.Context, t Target) (map[string]string, error) {
	tf, done, err := e.init(ctx, t)
	if err != nil {
		return nil, err
	}
	defer done()

	out, err := e.output(ctx, tf)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, t.Config.Identity)
	}
	return out, nil
}

// Prepares the stack's working directory and runs terraform init.
//
// The returned func flushes the progress log and must be called when the
// caller is done with the handle.
func (e *TerraformEngine) init(ctx context.Context, t Target) (*tfexec.Terraform, func(), error) {
	cfg := t.Config

	src, err := renderTerraform(t.Resource, cfg.Backend, cfg.Region)
	if err != nil {
		return nil, nil, err
	}

	dir := e.workspace(cfg.Identity.Project, cfg.Identity.Stack)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "main.tf"), src, paths.DefaultFileMode); err != nil {
		return nil, nil, err
	}

	execPath := e.execPath
	if execPath == "" {
		if execPath, err = findTerraform(); err != nil {
			return nil, nil, err
		}
	}

	tf, err := tfexec.NewTerraform(dir, execPath)
	if err != nil {
		return nil, nil, fmt.Errorf("terraform: %w", err)
	}
	if err := tf.SetEnv(terraformEnv(os.Environ(), cfg.Credentials.AWSEnv(cfg.Region))); err != nil {
		return nil, nil, fmt.Errorf("terraform: %w", err)
	}

	progress := newLogWriter(slog.Default().With("engine", e.Name()), slog.LevelDebug)
	tf.SetStdout(progress)
	tf.SetStderr(progress)
	done := func() { progress.Close() }

	opts := []tfexec.InitOption{tfexec.Reconfigure(true)}
	for _, kv := range backendConfig(cfg.Backend, cfg.Region) {
		opts = append(opts, tfexec.BackendConfig(kv))
	}

	slog.Debug("terraform init", "dir", dir, "exec", execPath)
	if err := tf.Init(ctx, opts...); err != nil {
		done()
		return nil, nil, classify(err)
	}

	return tf, done, nil
}

func (e *TerraformEngine) output(ctx context.Context, tf *tfexec.Terraform) (map[string]string, error) {
	meta, err := tf.Output(ctx)
	if err != nil {
		return nil, classify(err)
	}

	out := make(map[string]string, len(meta))
	for name, m := range meta {
		var s string
		if err := json.Unmarshal(m.Value, &s); err != nil {
			// Non-string outputs are not ours.
			continue
		}
		out[name] = s
	}
	return out, nil
}

// Merges the process environment (for PATH, HOME, proxies) with the
// deployment's cloud credentials. Variables tfexec manages itself are dropped,
// as are ambient AWS variables the deployment replaces.
func terraformEnv(base []string, aws map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(aws))
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || managedTerraformVar(k) || strings.HasPrefix(k, "AWS_") {
			continue
		}
		env[k] = v
	}
	for k, v := range aws {
		env[k] = v
	}
	return env
}

func managedTerraformVar(key string) bool {
	for _, m := range managedTerraformVars {
		if key == m || strings.HasPrefix(key, m+"_") {
			return true
		}
	}
	return false
}

// Locates the terraform binary on PATH, then in common install locations.
func findTerraform() (string, error) {
	if p, err := exec.LookPath("terraform"); err == nil {
		return p, nil
	}

	candidates := []string{
		"/opt/homebrew/bin/terraform",
		"/usr/local/bin/terraform",
		"/usr/bin/terraform",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.New("terraform not found on PATH or in common locations")
}

package infra

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/pulumi/pulumi/sdk/v3/go/common/tokens"
	"github.com/pulumi/pulumi/sdk/v3/go/common/workspace"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/rocksun/siteship/internal/paths"
	"github.com/rocksun/siteship/internal/site"
)

// Drives the Pulumi automation API with an inline Go program.
type PulumiEngine struct{}

func NewPulumiEngine() *PulumiEngine {
	return &PulumiEngine{}
}

func (e *PulumiEngine) Name() string {
	return "pulumi"
}

// Upserts the stack for the target identity and runs an update.
func (e *PulumiEngine) Up(ctx context.Context, t Target) (map[string]string, error) {
	stack, err := e.stack(ctx, t, auto.UpsertStackInlineSource)
	if err != nil {
		return nil, classifyPulumi(err)
	}

	if err := stack.SetConfig(ctx, "aws:region", auto.ConfigValue{Value: t.Config.Region}); err != nil {
		return nil, classifyPulumi(fmt.Errorf("set aws:region: %w", err))
	}

	progress := newLogWriter(slog.Default().With("engine", e.Name()), slog.LevelDebug)
	defer progress.Close()

	res, err := stack.Up(ctx, optup.ProgressStreams(progress), optup.ErrorProgressStreams(progress))
	if err != nil {
		return nil, classifyPulumi(err)
	}

	slog.Debug("pulumi update finished", "result", res.Summary.Result, "changes", res.Summary.ResourceChanges)
	return flattenOutputs(res.Outputs), nil
}

// Selects the existing stack and reads its outputs.
func (e *PulumiEngine) Outputs(ctx context.Context, t Target) (map[string]string, error) {
	stack, err := e.stack(ctx, t, auto.SelectStackInlineSource)
	if err != nil {
		if auto.IsSelectStack404Error(err) {
			return nil, fmt.Errorf("%w: %s", ErrStackNotFound, t.Config.Identity)
		}
		return nil, classifyPulumi(err)
	}

	out, err := stack.Outputs(ctx)
	if err != nil {
		return nil, classifyPulumi(err)
	}
	return flattenOutputs(out), nil
}

type stackFunc func(ctx context.Context, stackName, projectName string, program pulumi.RunFunc, opts ...auto.LocalWorkspaceOption) (auto.Stack, error)

func (e *PulumiEngine) stack(ctx context.Context, t Target, open stackFunc) (auto.Stack, error) {
	cfg := t.Config
	dir := paths.PulumiWorkspace(cfg.Identity.Project, cfg.Identity.Stack)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return auto.Stack{}, err
	}

	project := workspace.Project{
		Name:    tokens.PackageName(cfg.Identity.Project),
		Runtime: workspace.NewProjectRuntimeInfo("go", nil),
		Backend: &workspace.ProjectBackend{URL: cfg.Backend.String()},
	}

	return open(ctx, cfg.Identity.Stack, cfg.Identity.Project, program(t.Resource),
		auto.Project(project),
		auto.WorkDir(dir),
		auto.EnvVars(pulumiEnv(t)),
	)
}

// Environment for the Pulumi CLI and the AWS provider plugin.
func pulumiEnv(t Target) map[string]string {
	cfg := t.Config
	env := cfg.Credentials.AWSEnv(cfg.Region)
	if cfg.PulumiAccessToken != "" {
		env["PULUMI_ACCESS_TOKEN"] = cfg.PulumiAccessToken
	}
	if cfg.Backend.Scheme != "https" {
		// Self-managed backends encrypt stack secrets with a passphrase. An
		// empty one is valid and keeps unattended runs from prompting.
		env["PULUMI_CONFIG_PASSPHRASE"] = cfg.PulumiPassphrase
	}
	return env
}

// Declares the hosting bucket described by spec.
//
// The program depends on nothing but spec, so the resource graph is a pure
// function of the spec value.
func program(spec site.ResourceSpec) pulumi.RunFunc {
	return func(ctx *pulumi.Context) error {
		website := &s3.BucketWebsiteArgs{
			IndexDocument: pulumi.String(spec.IndexDocument),
		}
		if spec.ErrorDocument != "" {
			website.ErrorDocument = pulumi.String(spec.ErrorDocument)
		}

		bucket, err := s3.NewBucket(ctx, spec.Name, &s3.BucketArgs{
			Website: website,
			Tags:    pulumi.ToStringMap(spec.Tags),
		})
		if err != nil {
			return err
		}

		ctx.Export(site.OutputResourceID, bucket.ID())
		ctx.Export(site.OutputEndpoint, bucket.WebsiteEndpoint)
		return nil
	}
}

// Keeps string-valued outputs only.
func flattenOutputs(out auto.OutputMap) map[string]string {
	flat := make(map[string]string, len(out))
	for k, v := range out {
		if s, ok := v.Value.(string); ok {
			flat[k] = s
		}
	}
	return flat
}

func classifyPulumi(err error) error {
	if auto.IsConcurrentUpdateError(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if auto.IsCompilationError(err) || auto.IsRuntimeError(err) {
		return err
	}
	return classify(err)
}

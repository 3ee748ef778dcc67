package build

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rocksun/siteship/internal/site"
)

// Bytes of stderr kept in a step failure detail.
const maxDetail = 2048

// A step whose sandbox is still alive.
type sandboxStep struct {
	name    string
	sandbox Sandbox
}

// Holds shared state for one pipeline run.
type chain struct {
	session   Session
	platform  string
	req       Request
	sandboxes []Sandbox // Live sandboxes, destroyed when the run ends.
}

func newChain(session Session, platform string, req Request) *chain {
	return &chain{session: session, platform: platform, req: req}
}

// Runs every step in order, handing each one the previous step's sandbox.
func (c *chain) run(ctx context.Context) (*Result, error) {
	result := &Result{}
	var prev *sandboxStep

	for _, step := range c.req.Pipeline.Steps {
		sr, current, err := c.runStep(ctx, step, prev)
		if err != nil {
			return nil, err
		}

		result.Steps = append(result.Steps, sr)
		if sr.InputDigest != "" {
			result.ArtifactDigest = sr.InputDigest
		}
		if step.Publish != nil {
			result.Published = true
		}

		// The previous artifact has been consumed; nothing can read it again.
		if prev != nil {
			c.release(ctx, prev.sandbox)
		}
		prev = current
	}

	return result, nil
}

// Runs one step: start its sandbox, seed inputs, run commands, then sync if
// the step publishes.
func (c *chain) runStep(ctx context.Context, step site.Step, prev *sandboxStep) (StepResult, *sandboxStep, error) {
	started := time.Now()
	sr := StepResult{Name: step.Name, Image: step.Image}
	log := slog.With("step", step.Name)

	log.Info("starting step", "image", step.Image)

	sb, err := c.session.Start(ctx, step.Image, sandboxID(c.req.RunID, step.Name), c.platform)
	if err != nil {
		return sr, nil, stepFailed(step.Name, "start sandbox", err)
	}
	c.sandboxes = append(c.sandboxes, sb)
	current := &sandboxStep{name: step.Name, sandbox: sb}

	for _, raw := range step.Inputs {
		in, err := site.ParseInput(raw, step.Workdir)
		if err != nil {
			return sr, nil, stepFailed(step.Name, "input "+raw, err)
		}
		d, err := seedInput(ctx, sb, in, c.req.Root, prev)
		if err != nil {
			return sr, nil, stepFailed(step.Name, "input "+raw, err)
		}
		if d != "" {
			sr.InputDigest = d
			log.Debug("artifact received", "from", in.Step, "digest", d)
		}
	}

	state := newStepState(step, c.req.Config.Credentials, c.req.Config.Region)
	if state.workdir != "" {
		if err := sb.MkdirAll(ctx, state.workdir); err != nil {
			return sr, nil, stepFailed(step.Name, "workdir", err)
		}
	}

	commands := make([][]string, 0, len(step.Run)+1)
	for _, cmd := range step.Run {
		commands = append(commands, []string(cmd))
	}
	if step.Publish != nil {
		commands = append(commands, syncCommand(step.Publish, c.req.ResourceID))
	}

	for _, argv := range commands {
		if err := c.exec(ctx, sb, step.Name, argv, state); err != nil {
			return sr, nil, err
		}
		sr.Commands++
	}

	sr.Duration = time.Since(started)
	log.Info("step finished", "duration", sr.Duration.Round(time.Millisecond))

	return sr, current, nil
}

// Executes one command, failing the step on a non-zero exit.
func (c *chain) exec(ctx context.Context, sb Sandbox, step string, argv []string, state *stepState) error {
	slog.Debug("run", "step", step, "command", argv, "env", state.redacted(), "workdir", state.workdir)

	res, err := sb.Exec(ctx, argv, state.environ(), state.workdir)
	if err != nil {
		return stepFailed(step, strings.Join(argv, " "), err)
	}

	if out := strings.TrimSpace(res.Stdout); out != "" {
		slog.Debug("output", "step", step, "stdout", out)
	}

	if res.ExitCode != 0 {
		detail := fmt.Sprintf("%s: exit code %d", strings.Join(argv, " "), res.ExitCode)
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			detail += ": " + truncate(stderr, maxDetail)
		}
		return stepFailed(step, detail, nil)
	}

	return nil
}

// Destroys one sandbox ahead of the end of the run.
func (c *chain) release(ctx context.Context, sb Sandbox) {
	for i, s := range c.sandboxes {
		if s == sb {
			c.sandboxes = append(c.sandboxes[:i], c.sandboxes[i+1:]...)
			break
		}
	}
	sb.Destroy(ctx)
}

// Destroys all sandboxes still alive.
func (c *chain) destroy(ctx context.Context) {
	for _, sb := range c.sandboxes {
		sb.Destroy(ctx)
	}
	c.sandboxes = nil
}

// Keeps the tail of s, where tools print the actual error.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}

package site

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBuildImage   = "node:18-alpine"
	DefaultPublishImage = "amazon/aws-cli:latest"
	DefaultACL          = "public-read"
)

// Ordered chain of pipeline steps. Each step may consume only the artifact of
// the step immediately before it.
type Pipeline struct {
	Steps []Step
}

// One isolated, disposable execution unit.
type Step struct {
	Name        string            `yaml:"name"`                  // Unique step name, referenced by the next step's inputs.
	Image       string            `yaml:"image"`                 // Base image reference.
	Inputs      []string          `yaml:"inputs,omitempty"`      // Copy specs: "src dest" (host) or "step:path dest" (previous artifact).
	Workdir     string            `yaml:"workdir,omitempty"`     // Working directory for commands.
	Run         []Command         `yaml:"run,omitempty"`         // Commands executed in order.
	Env         map[string]string `yaml:"env,omitempty"`         // Extra environment for commands.
	Artifact    string            `yaml:"artifact,omitempty"`    // Path this step produces for the next one.
	Credentials bool              `yaml:"credentials,omitempty"` // Whether cloud credentials are injected.
	Publish     *Publish          `yaml:"publish,omitempty"`     // Sync to the destination after Run.
}

// Sync of a directory inside the step's container to the destination bucket.
type Publish struct {
	Source string `yaml:"source"`           // Directory to sync.
	ACL    string `yaml:"acl,omitempty"`    // Canned ACL applied to uploaded objects.
	Delete *bool  `yaml:"delete,omitempty"` // Remove extraneous destination objects. Defaults to true.
}

// Reports whether extraneous destination objects are removed.
func (p *Publish) DeleteExtraneous() bool {
	return p.Delete == nil || *p.Delete
}

// A single process invocation, as an argument vector.
//
// In YAML a command is either a sequence of arguments or a string, which is
// split on whitespace. Strings are not passed through a shell.
type Command []string

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*c = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return err
		}
		*c = argv
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a list of arguments", node.Line)
	}
}

func (c Command) String() string {
	return strings.Join(c, " ")
}

// Returns the stock two-step pipeline: build the site from siteDir with Node,
// then sync the build output with the AWS CLI.
func DefaultPipeline(siteDir string) Pipeline {
	return Pipeline{Steps: []Step{
		{
			Name:    "build",
			Image:   DefaultBuildImage,
			Inputs:  []string{siteDir + " /src"},
			Workdir: "/src",
			Run: []Command{
				{"npm", "install"},
				{"npm", "run", "build"},
			},
			Artifact: "/src/build",
		},
		{
			Name:        "publish",
			Image:       DefaultPublishImage,
			Inputs:      []string{"build:/src/build /website"},
			Credentials: true,
			Publish: &Publish{
				Source: "/website",
				ACL:    DefaultACL,
			},
		},
	}}
}

// Returns the step that publishes, or nil.
func (p Pipeline) PublishStep() *Step {
	for i := range p.Steps {
		if p.Steps[i].Publish != nil {
			return &p.Steps[i]
		}
	}
	return nil
}

// Returns the names of all steps, in order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}

package site

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A parsed step input.
type Input struct {
	Step   string // Producing step, or empty for a host path.
	Source string // Host path, or path inside the producing step's container.
	Dest   string // Absolute destination inside the consuming container.
}

// Reports whether the input is read from a previous step.
func (in Input) FromStep() bool {
	return in.Step != ""
}

// Parses an input spec of the form "src dest" or "step:path dest".
//
// A relative dest is joined with workdir.
func ParseInput(s, workdir string) (Input, error) {
	src, dest, err := splitInput(s, workdir)
	if err != nil {
		return Input{}, err
	}

	if step, path, ok := parseStepSource(src); ok {
		return Input{Step: step, Source: path, Dest: dest}, nil
	}
	return Input{Source: src, Dest: dest}, nil
}

// Parses a step-sourced input of the form "step:path".
//
// Returns false if src is a regular host path.
func parseStepSource(src string) (step, path string, ok bool) {
	i := strings.IndexByte(src, ':')
	if i < 1 {
		return "", "", false
	}

	// A colon after a path separator is not a step prefix (e.g. "/foo:bar").
	if strings.ContainsRune(src[:i], '/') {
		return "", "", false
	}

	return src[:i], src[i+1:], true
}

// Splits an input spec into source and destination.
//
// The string must contain exactly two whitespace-separated tokens.
func splitInput(s, workdir string) (src, dest string, err error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected source and destination, got %q", s)
	}

	src = parts[0]
	dest = parts[1]

	if !filepath.IsAbs(dest) {
		if workdir == "" {
			return "", "", fmt.Errorf("relative dest %q requires workdir", dest)
		}
		dest = filepath.Join(workdir, dest)
	}

	return src, filepath.Clean(dest), nil
}

// Reports whether path lies within dir (or is dir itself).
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, "../"))
}

package site

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Everything a run deploys.
type Manifest struct {
	Resource ResourceSpec `yaml:"resource"`
	Pipeline []Step       `yaml:"pipeline,omitempty"`

	// Directory that host input paths are resolved against. Set by [Load]
	// to the manifest's directory; not part of the YAML document.
	Root string `yaml:"-"`
}

// Returns the stock manifest, with the build step reading from siteDir.
//
// A relative siteDir is made absolute against the working directory, so the
// default pipeline reads the same directory wherever the manifest lives.
func Default(siteDir string) *Manifest {
	if !filepath.IsAbs(siteDir) {
		if abs, err := filepath.Abs(siteDir); err == nil {
			siteDir = abs
		}
	}
	return &Manifest{
		Resource: DefaultResource(),
		Pipeline: DefaultPipeline(siteDir).Steps,
		Root:     ".",
	}
}

// Returns the pipeline described by the manifest.
func (m *Manifest) Steps() Pipeline {
	return Pipeline{Steps: m.Pipeline}
}

// Loads a manifest from path, layered over [Default].
//
// A missing file yields the defaults. Resource fields absent from the file
// keep their default values and tags are merged over the default tag set. A
// pipeline in the file replaces the default one entirely, since steps
// reference each other by name.
func Load(path, siteDir string) (*Manifest, error) {
	m := Default(siteDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	if err := decode(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, path, err)
	}

	m.Root = filepath.Dir(path)
	return m, nil
}

// Parses a manifest document over the values already in m.
func decode(data []byte, m *Manifest) error {
	var doc struct {
		Resource yaml.Node `yaml:"resource"`
		Pipeline []Step    `yaml:"pipeline"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if doc.Resource.Kind != 0 {
		if err := doc.Resource.Decode(&m.Resource); err != nil {
			return err
		}
	}
	if doc.Pipeline != nil {
		m.Pipeline = doc.Pipeline
	}

	return nil
}

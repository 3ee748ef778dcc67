package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Supported backend schemes.
var backendSchemes = map[string]bool{
	"s3":     true,
	"gs":     true,
	"azblob": true,
	"file":   true,
	"https":  true,
	"http":   true,
}

// Location where an infrastructure engine persists convergence state.
//
// The raw URL is preserved verbatim because Pulumi consumes it as-is; the
// parsed parts serve engines (Terraform) and preflight checks that need the
// bucket and key separately.
type Backend struct {
	raw    string
	Scheme string // URL scheme (e.g., "s3", "file").
	Bucket string // Bucket or host component; empty for file backends.
	Prefix string // Path within the bucket, without leading slash.
	Region string // Region from the "region" query parameter, if any.
}

// Parses and validates a backend location URL.
func ParseBackend(raw string) (Backend, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Backend{}, errors.New("backend location is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Backend{}, fmt.Errorf("backend location: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if !backendSchemes[scheme] {
		return Backend{}, fmt.Errorf("backend location %q: unsupported scheme %q", raw, u.Scheme)
	}

	b := Backend{
		raw:    raw,
		Scheme: scheme,
		Region: u.Query().Get("region"),
	}

	if scheme == "file" {
		b.Prefix = u.Path
		if u.Host != "" {
			b.Prefix = u.Host + u.Path
		}
		if b.Prefix == "" {
			return Backend{}, fmt.Errorf("backend location %q: missing path", raw)
		}
		return b, nil
	}

	if u.Host == "" {
		return Backend{}, fmt.Errorf("backend location %q: missing bucket", raw)
	}
	b.Bucket = u.Host
	b.Prefix = strings.Trim(u.Path, "/")

	return b, nil
}

// Returns the backend location exactly as configured.
func (b Backend) String() string {
	return b.raw
}

// Reports whether the backend lives in an S3-compatible bucket.
func (b Backend) IsS3() bool {
	return b.Scheme == "s3"
}

// Returns the object key for a state file under the backend prefix.
func (b Backend) Key(name string) string {
	if b.Prefix == "" {
		return name
	}
	return b.Prefix + "/" + name
}

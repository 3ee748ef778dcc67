package site

import "maps"

const (
	DefaultResourceName  = "my-website-bucket"
	DefaultIndexDocument = "index.html"
)

// Names of the outputs every engine must export after convergence.
const (
	OutputResourceID = "bucket_id"
	OutputEndpoint   = "bucket_website_endpoint"
)

// Declarative description of the hosting bucket.
//
// A ResourceSpec has no identity until converged; engines derive the
// resource graph from it and nothing else.
type ResourceSpec struct {
	Name          string            `yaml:"name"`                    // Logical (and requested physical) bucket name.
	IndexDocument string            `yaml:"indexDocument"`           // Website index document.
	ErrorDocument string            `yaml:"errorDocument,omitempty"` // Website error document, optional.
	Tags          map[string]string `yaml:"tags,omitempty"`          // Tag set applied to the bucket.
}

// Returns the stock hosting bucket description.
func DefaultResource() ResourceSpec {
	return ResourceSpec{
		Name:          DefaultResourceName,
		IndexDocument: DefaultIndexDocument,
		Tags: map[string]string{
			"Environment": "Dev",
			"ManagedBy":   "Pulumi",
		},
	}
}

// Returns a deep copy, so callers can hand the spec to an engine without
// sharing the tag map.
func (r ResourceSpec) Clone() ResourceSpec {
	r.Tags = maps.Clone(r.Tags)
	return r
}

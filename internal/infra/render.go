package infra

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

const (
	awsProviderSource  = "hashicorp/aws"
	awsProviderVersion = "~> 5.0"

	// Longest prefix the AWS provider accepts for generated bucket names.
	maxBucketPrefix = 37
)

// Maps a backend scheme to the Terraform backend type that stores state there.
var terraformBackends = map[string]string{
	"s3":   "s3",
	"file": "local",
}

// Renders the Terraform configuration for spec.
//
// The output depends only on its arguments. Backend settings are left to
// -backend-config so that the same configuration serves any stack; only the
// backend type is fixed here.
func renderTerraform(spec site.ResourceSpec, backend config.Backend, region string) ([]byte, error) {
	backendType, ok := terraformBackends[backend.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: terraform cannot store state at %s:// locations", ErrUnsupportedBackend, backend.Scheme)
	}

	f := hclwrite.NewEmptyFile()
	root := f.Body()

	tf := root.AppendNewBlock("terraform", nil).Body()
	tf.AppendNewBlock("backend", []string{backendType})
	providers := tf.AppendNewBlock("required_providers", nil).Body()
	providers.SetAttributeValue("aws", cty.ObjectVal(map[string]cty.Value{
		"source":  cty.StringVal(awsProviderSource),
		"version": cty.StringVal(awsProviderVersion),
	}))
	root.AppendNewline()

	provider := root.AppendNewBlock("provider", []string{"aws"}).Body()
	provider.SetAttributeValue("region", cty.StringVal(region))
	root.AppendNewline()

	bucket := root.AppendNewBlock("resource", []string{"aws_s3_bucket", "site"}).Body()
	if prefix := spec.Name + "-"; len(prefix) <= maxBucketPrefix {
		bucket.SetAttributeValue("bucket_prefix", cty.StringVal(prefix))
	} else {
		bucket.SetAttributeValue("bucket", cty.StringVal(spec.Name))
	}
	if len(spec.Tags) > 0 {
		bucket.SetAttributeValue("tags", tagsValue(spec.Tags))
	}
	root.AppendNewline()

	website := root.AppendNewBlock("resource", []string{"aws_s3_bucket_website_configuration", "site"}).Body()
	website.SetAttributeTraversal("bucket", ref("aws_s3_bucket", "site", "id"))
	website.AppendNewBlock("index_document", nil).Body().
		SetAttributeValue("suffix", cty.StringVal(spec.IndexDocument))
	if spec.ErrorDocument != "" {
		website.AppendNewBlock("error_document", nil).Body().
			SetAttributeValue("key", cty.StringVal(spec.ErrorDocument))
	}
	root.AppendNewline()

	root.AppendNewBlock("output", []string{site.OutputResourceID}).Body().
		SetAttributeTraversal("value", ref("aws_s3_bucket", "site", "id"))
	root.AppendNewline()
	root.AppendNewBlock("output", []string{site.OutputEndpoint}).Body().
		SetAttributeTraversal("value", ref("aws_s3_bucket_website_configuration", "site", "website_endpoint"))

	return hclwrite.Format(f.Bytes()), nil
}

// Returns -backend-config entries locating the stack's state.
func backendConfig(backend config.Backend, region string) []string {
	switch backend.Scheme {
	case "s3":
		if backend.Region != "" {
			region = backend.Region
		}
		return []string{
			"bucket=" + backend.Bucket,
			"key=" + backend.Key("terraform.tfstate"),
			"region=" + region,
			"use_lockfile=true",
		}
	case "file":
		return []string{"path=" + backend.Key("terraform.tfstate")}
	default:
		return nil
	}
}

// Builds a map value. cty iterates map keys in sorted order, so the rendered
// attribute is stable.
func tagsValue(tags map[string]string) cty.Value {
	vals := make(map[string]cty.Value, len(tags))
	for k, v := range tags {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}

func ref(root string, attrs ...string) hcl.Traversal {
	t := hcl.Traversal{hcl.TraverseRoot{Name: root}}
	for _, a := range attrs {
		t = append(t, hcl.TraverseAttr{Name: a})
	}
	return t
}

package infra

import (
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

func mustBackend(t *testing.T, raw string) config.Backend {
	t.Helper()
	b, err := config.ParseBackend(raw)
	if err != nil {
		t.Fatalf("ParseBackend(%q): %v", raw, err)
	}
	return b
}

func TestRenderTerraform(t *testing.T) {
	spec := site.DefaultResource()
	spec.ErrorDocument = "404.html"

	src, err := renderTerraform(spec, mustBackend(t, "s3://state/demo/dev"), "ap-southeast-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, diags := hclwrite.ParseConfig(src, "main.tf", hcl.InitialPos); diags.HasErrors() {
		t.Fatalf("rendered configuration does not parse: %s\n%s", diags.Error(), src)
	}

	text := string(src)
	for _, want := range []string{
		`backend "s3" {`,
		`region = "ap-southeast-1"`,
		`resource "aws_s3_bucket" "site" {`,
		`bucket_prefix = "my-website-bucket-"`,
		`ManagedBy   = "Pulumi"`,
		`bucket = aws_s3_bucket.site.id`,
		`suffix = "index.html"`,
		`key = "404.html"`,
		`output "bucket_id" {`,
		`value = aws_s3_bucket.site.id`,
		`output "bucket_website_endpoint" {`,
		`value = aws_s3_bucket_website_configuration.site.website_endpoint`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered configuration lacks %q:\n%s", want, text)
		}
	}
}

func TestRenderTerraformIsDeterministic(t *testing.T) {
	spec := site.DefaultResource()
	spec.Tags["Team"] = "web"
	spec.Tags["Cost"] = "marketing"
	backend := mustBackend(t, "s3://state")

	first, err := renderTerraform(spec, backend, "us-east-1")
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		again, _ := renderTerraform(spec, backend, "us-east-1")
		if string(again) != string(first) {
			t.Fatalf("render is not stable:\n%s\n---\n%s", first, again)
		}
	}
}

func TestRenderTerraformLongName(t *testing.T) {
	spec := site.DefaultResource()
	spec.Name = "a-very-long-bucket-name-that-exceeds-the-prefix-limit"

	src, err := renderTerraform(spec, mustBackend(t, "file:///tmp/state"), "us-east-1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(src), `bucket = "`+spec.Name+`"`) {
		t.Fatalf("long names must be used verbatim:\n%s", src)
	}
	if !strings.Contains(string(src), `backend "local" {`) {
		t.Fatalf("file backend must render a local backend:\n%s", src)
	}
}

func TestRenderTerraformUnsupportedBackend(t *testing.T) {
	_, err := renderTerraform(site.DefaultResource(), mustBackend(t, "https://api.pulumi.com"), "us-east-1")
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("err = %v, want ErrUnsupportedBackend", err)
	}
}

func TestBackendConfig(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "s3 with region",
			raw:  "s3://state/demo/dev?region=eu-west-1",
			want: []string{"bucket=state", "key=demo/dev/terraform.tfstate", "region=eu-west-1", "use_lockfile=true"},
		},
		{
			name: "s3 falls back to deployment region",
			raw:  "s3://state",
			want: []string{"bucket=state", "key=terraform.tfstate", "region=ap-southeast-1", "use_lockfile=true"},
		},
		{
			name: "local",
			raw:  "file:///var/lib/siteship",
			want: []string{"path=/var/lib/siteship/terraform.tfstate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backendConfig(mustBackend(t, tt.raw), "ap-southeast-1")
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("backendConfig = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerraformEnv(t *testing.T) {
	base := []string{
		"PATH=/usr/bin",
		"HOME=/root",
		"TF_LOG=DEBUG",
		"TF_CLI_ARGS_apply=-parallelism=1",
		"TF_PLUGIN_CACHE_DIR=/cache",
		"AWS_PROFILE=personal",
		"AWS_ACCESS_KEY_ID=ambient",
		"malformed",
	}
	aws := config.Credentials{AccessKey: "AK", SecretKey: "SK"}.AWSEnv("ap-southeast-1")

	env := terraformEnv(base, aws)

	for k, want := range map[string]string{
		"PATH":                  "/usr/bin",
		"HOME":                  "/root",
		"TF_PLUGIN_CACHE_DIR":   "/cache",
		"AWS_ACCESS_KEY_ID":     "AK",
		"AWS_SECRET_ACCESS_KEY": "SK",
		"AWS_DEFAULT_REGION":    "ap-southeast-1",
	} {
		if env[k] != want {
			t.Errorf("env[%s] = %q, want %q", k, env[k], want)
		}
	}
	for _, k := range []string{"TF_LOG", "TF_CLI_ARGS_apply", "AWS_PROFILE", "malformed"} {
		if _, ok := env[k]; ok {
			t.Errorf("env contains %s", k)
		}
	}
}

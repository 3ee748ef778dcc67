package config

import (
	"fmt"
	"net/url"
	"regexp"
	goruntime "runtime"
	"strings"

	"github.com/rocksun/siteship/internal/paths"
)

const (
	DefaultRegion              = "ap-southeast-1"
	DefaultBackendBucket       = "my-pulumi-state-bucket"
	DefaultProjectName         = "dagger-pulumi-demo"
	DefaultStackName           = "dev"
	DefaultEngine              = EnginePulumi
	DefaultSiteDir             = "./website"
	DefaultManifest            = "siteship.yaml"
	DefaultContainerdAddress   = "/run/containerd/containerd.sock"
	DefaultContainerdNamespace = "siteship"

	// Journal URL value that disables run history.
	JournalOff = "off"
)

const (
	EnginePulumi    = "pulumi"
	EngineTerraform = "terraform"
)

// Recognised configuration keys. Aliases follow in lookup order.
var (
	keyRegion       = []string{"REGION", "AWS_DEFAULT_REGION", "AWS_REGION"}
	keyBackend      = []string{"BACKEND_LOCATION"}
	keyBackendBkt   = []string{"BACKEND_BUCKET", "PULUMI_BACKEND_BUCKET"}
	keyAccessKey    = []string{"ACCESS_KEY", "AWS_ACCESS_KEY_ID"}
	keySecretKey    = []string{"SECRET_KEY", "AWS_SECRET_ACCESS_KEY"}
	keySession      = []string{"SESSION_TOKEN", "AWS_SESSION_TOKEN"}
	keyProject      = []string{"PROJECT_NAME"}
	keyStack        = []string{"STACK_NAME"}
	keyEngine       = []string{"ENGINE"}
	keySiteDir      = []string{"SITE_DIR"}
	keyManifest     = []string{"MANIFEST"}
	keyCtrdAddress  = []string{"CONTAINERD_ADDRESS"}
	keyCtrdNS       = []string{"CONTAINERD_NAMESPACE"}
	keyPlatform     = []string{"PLATFORM"}
	keyJournal      = []string{"JOURNAL_URL"}
	keyS3Endpoint   = []string{"S3_ENDPOINT"}
	keyPassphrase   = []string{"PULUMI_CONFIG_PASSPHRASE"}
	keyPulumiAccess = []string{"PULUMI_ACCESS_TOKEN"}
)

// Pulumi project and stack names share this character set.
var identityRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Cloud credential material. Treated as opaque by everything except the
// engines that hand it to a provider.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// Redacts the secret material.
func (c Credentials) String() string {
	if c.AccessKey == "" {
		return "(none)"
	}
	key := []rune(c.AccessKey)
	return fmt.Sprintf("%s…/***", string(key[:min(4, len(key))]))
}

// Redacts the secret material when formatted with %#v.
func (c Credentials) GoString() string {
	return "config.Credentials{" + c.String() + "}"
}

// Environment variables understood by AWS tooling (CLI, SDKs, providers).
func (c Credentials) AWSEnv(region string) map[string]string {
	env := map[string]string{
		"AWS_ACCESS_KEY_ID":     c.AccessKey,
		"AWS_SECRET_ACCESS_KEY": c.SecretKey,
		"AWS_DEFAULT_REGION":    region,
		"AWS_REGION":            region,
	}
	if c.SessionToken != "" {
		env["AWS_SESSION_TOKEN"] = c.SessionToken
	}
	return env
}

// Identifies one persisted infrastructure state instance.
type StackIdentity struct {
	Project string
	Stack   string
}

func (s StackIdentity) String() string {
	return s.Project + "/" + s.Stack
}

// Everything a run needs to know about its environment. Constructed once by
// [Resolve] and passed by value; never modified afterwards.
type DeploymentConfig struct {
	Region              string        // Target cloud region.
	Backend             Backend       // Where convergence state is persisted.
	Credentials         Credentials   // Cloud credentials for convergence and publish.
	Identity            StackIdentity // Stable (project, stack) identity.
	Engine              string        // Infrastructure engine ("pulumi" or "terraform").
	SiteDir             string        // Host directory mounted into the first pipeline step.
	Manifest            string        // Optional site manifest path.
	ContainerdAddress   string        // Containerd socket address.
	ContainerdNamespace string        // Containerd namespace for pipeline containers.
	Platform            string        // OCI platform for pipeline containers.
	JournalURL          string        // Run journal location, or [JournalOff].
	S3Endpoint          string        // S3-compatible endpoint for state and destination checks.
	PulumiPassphrase    string        // Secrets passphrase for self-managed Pulumi backends.
	PulumiAccessToken   string        // Token for the Pulumi Cloud backend.
}

// Resolves the deployment configuration from src.
//
// Returns a [*Error] with Kind [MissingCredential] when the access or secret
// key is absent, or [InvalidValue] when a value is present but malformed.
func Resolve(src Source) (DeploymentConfig, error) {
	accessKey, ok := first(src, keyAccessKey...)
	if !ok {
		return DeploymentConfig{}, missing(keyAccessKey[0])
	}
	secretKey, ok := first(src, keySecretKey...)
	if !ok {
		return DeploymentConfig{}, missing(keySecretKey[0])
	}
	session, _ := first(src, keySession...)

	region := lookupOr(src, keyRegion, DefaultRegion)

	identity, err := ResolveIdentity(src)
	if err != nil {
		return DeploymentConfig{}, err
	}

	rawBackend, ok := first(src, keyBackend...)
	if !ok {
		rawBackend = defaultBackend(lookupOr(src, keyBackendBkt, DefaultBackendBucket), identity, region)
	}
	backend, err := ParseBackend(rawBackend)
	if err != nil {
		return DeploymentConfig{}, invalid(keyBackend[0], err)
	}

	engine := strings.ToLower(lookupOr(src, keyEngine, DefaultEngine))
	if engine != EnginePulumi && engine != EngineTerraform {
		return DeploymentConfig{}, invalid(keyEngine[0], fmt.Errorf("unknown engine %q", engine))
	}

	manifest, siteDir := ManifestLocation(src)

	cfg := DeploymentConfig{
		Region:  region,
		Backend: backend,
		Credentials: Credentials{
			AccessKey:    accessKey,
			SecretKey:    secretKey,
			SessionToken: session,
		},
		Identity:            identity,
		Engine:              engine,
		SiteDir:             siteDir,
		Manifest:            manifest,
		ContainerdAddress:   lookupOr(src, keyCtrdAddress, DefaultContainerdAddress),
		ContainerdNamespace: lookupOr(src, keyCtrdNS, DefaultContainerdNamespace),
		Platform:            lookupOr(src, keyPlatform, "linux/"+goruntime.GOARCH),
		JournalURL:          JournalLocation(src),
		S3Endpoint:          lookupOr(src, keyS3Endpoint, "s3."+region+".amazonaws.com"),
	}
	cfg.PulumiPassphrase, _ = first(src, keyPassphrase...)
	cfg.PulumiAccessToken, _ = first(src, keyPulumiAccess...)

	return cfg, nil
}

// Resolves the stack identity alone. Needs no credentials, so read-only
// commands can address a stack's history without them.
func ResolveIdentity(src Source) (StackIdentity, error) {
	id := StackIdentity{
		Project: lookupOr(src, keyProject, DefaultProjectName),
		Stack:   lookupOr(src, keyStack, DefaultStackName),
	}
	if !identityRe.MatchString(id.Project) {
		return StackIdentity{}, invalid(keyProject[0], fmt.Errorf("%q must match %s", id.Project, identityRe))
	}
	if !identityRe.MatchString(id.Stack) {
		return StackIdentity{}, invalid(keyStack[0], fmt.Errorf("%q must match %s", id.Stack, identityRe))
	}
	return id, nil
}

// Returns the site manifest path and the site source directory.
func ManifestLocation(src Source) (manifest, siteDir string) {
	return lookupOr(src, keyManifest, DefaultManifest), lookupOr(src, keySiteDir, DefaultSiteDir)
}

// Returns the run journal location.
func JournalLocation(src Source) string {
	return lookupOr(src, keyJournal, paths.Journal())
}

// Builds the default backend location for a stack identity, matching the
// layout "s3://<bucket>/<project>/<stack>?region=<region>&awssdk=v2".
func defaultBackend(bucket string, id StackIdentity, region string) string {
	q := url.Values{}
	q.Set("region", region)
	q.Set("awssdk", "v2")
	u := url.URL{
		Scheme:   "s3",
		Host:     bucket,
		Path:     "/" + id.Project + "/" + id.Stack,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func lookupOr(src Source, keys []string, fallback string) string {
	if v, ok := first(src, keys...); ok {
		return v
	}
	return fallback
}

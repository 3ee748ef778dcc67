// Package config resolves the deployment configuration for a single run.
//
// Configuration is read once, at the start of a run, from an ordered set of
// sources (command-line overrides, the process environment, an optional
// dotenv file) and frozen into a [DeploymentConfig] value. Stages receive
// that value and never consult the environment themselves.
//
// Missing credentials are reported here, before any network call is made,
// rather than surfacing later as an opaque failure from a cloud API.
//
// Example usage:
//
//	dotenv, err := config.Dotenv(".env")
//	if err != nil {
//	    return err
//	}
//
//	cfg, err := config.Resolve(config.Layered(config.Env(), dotenv))
//	if err != nil {
//	    return err // *config.Error with Kind MissingCredential or InvalidValue
//	}
package config

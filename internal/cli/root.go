package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/rocksun/siteship/internal"
	"github.com/rocksun/siteship/internal/config"
)

// Represents the root command for siteship.
var RootCmd struct {
	Quiet     bool   `short:"q" help:"Suppress informational output."`
	Verbose   bool   `short:"v" help:"Enable verbose output."`
	Debug     bool   `short:"d" help:"Enable debug output."`
	LogFormat string `help:"Log format (text, logfmt or json)." placeholder:"FORMAT"`
	EnvFile   string `help:"Dotenv file read below the process environment." default:".env" placeholder:"PATH" type:"path"`
	Manifest  string `help:"Site manifest path." placeholder:"PATH"`
	SiteDir   string `help:"Site source directory." placeholder:"DIR"`
	Engine    string `help:"Infrastructure engine (pulumi or terraform)."`
	Project   string `help:"Project name of the stack identity."`
	Stack     string `help:"Stack name of the stack identity."`
	Region    string `help:"Target cloud region."`

	Deploy   DeployCmd   `cmd:"" help:"Converge infrastructure, then build and publish the site."`
	Publish  PublishCmd  `cmd:"" help:"Build and publish into the last converged bucket."`
	Status   StatusCmd   `cmd:"" help:"Show recent runs of the stack."`
	Validate ValidateCmd `cmd:"" help:"Check the site manifest."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Ships a static site.\n\nConverges an S3 hosting bucket, then builds the site in isolated containers and syncs it into the bucket."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	handler, ok := slog.Default().Handler().(*log.Logger)
	if !ok {
		return // Not a charmbracelet handler, nothing to configure
	}

	internal.SetDebug(RootCmd.Debug || internal.IsDebug())
	internal.SetQuiet(RootCmd.Quiet || internal.IsQuiet())
	internal.SetVerbose(RootCmd.Verbose || internal.IsVerbose())
	if RootCmd.LogFormat != "" {
		internal.SetLogFormat(RootCmd.LogFormat)
	}

	// Configure formatter
	switch internal.LogFormat() {
	case "json":
		handler.SetFormatter(log.JSONFormatter)
	case "logfmt":
		handler.SetFormatter(log.LogfmtFormatter)
	default:
		handler.SetFormatter(log.TextFormatter)
	}
	handler.SetReportTimestamp(internal.IsVerbose())
	handler.SetReportCaller(internal.IsVerbose())

	// Configure level
	if internal.IsDebug() {
		handler.SetLevel(log.DebugLevel)
	} else if internal.IsQuiet() {
		handler.SetLevel(log.WarnLevel)
	} else {
		handler.SetLevel(log.InfoLevel)
	}
}

// Returns the configuration source for the parsed flags.
func source() (config.Source, error) {
	dotenv, err := config.Dotenv(RootCmd.EnvFile)
	if err != nil {
		return nil, err
	}
	return config.Layered(config.Map(flagValues()), config.Env(), dotenv), nil
}

// Returns the flags that were set, keyed like their environment variables.
func flagValues() map[string]string {
	values := map[string]string{}
	set := func(key, v string) {
		if v != "" {
			values[key] = v
		}
	}
	set("MANIFEST", RootCmd.Manifest)
	set("SITE_DIR", RootCmd.SiteDir)
	set("ENGINE", RootCmd.Engine)
	set("PROJECT_NAME", RootCmd.Project)
	set("STACK_NAME", RootCmd.Stack)
	set("REGION", RootCmd.Region)
	return values
}

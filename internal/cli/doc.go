// Parses flags, configures logging, and runs siteship commands.
//
// Global flags:
//
//	-q, --quiet        Suppress informational output.
//	-v, --verbose      Enable verbose output (timestamps and callers).
//	-d, --debug        Enable debug output.
//	    --log-format   Log format: text, logfmt or json.
//	    --env-file     Dotenv file read below the process environment.
//	    --manifest     Site manifest path.
//	    --site-dir     Site source directory.
//	    --engine       Infrastructure engine: pulumi or terraform.
//	    --project      Project name of the stack identity.
//	    --stack        Stack name of the stack identity.
//	    --region       Target cloud region.
//
// Configuration values are layered: flags first, then the process
// environment, then the dotenv file, then built-in defaults. Flags override
// build-time defaults set via linker flags. After parsing, the global logger
// is reconfigured to reflect the final level, format and verbosity before the
// command runs.
//
// SIGINT and SIGTERM cancel the command's context. A deployment interrupted
// mid-convergence leaves the stack lock to the infrastructure backend.
package cli

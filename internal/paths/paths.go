package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "siteship"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Permission mode for files that may carry credentials.
	PrivateFileMode os.FileMode = 0600
)

// Path to the directory for persistent state (run journal, engine workspaces).
//
//	Linux:   $XDG_STATE_HOME/siteship or ~/.local/state/siteship
//	macOS:   ~/Library/Application Support/siteship
func State() string {
	return filepath.Join(xdg.StateHome, appName)
}

// Default path to the SQLite run journal.
//
//	Linux:   $XDG_STATE_HOME/siteship/journal.db
func Journal() string {
	return filepath.Join(State(), "journal.db")
}

// Working directory for a Terraform configuration owned by a stack identity.
//
// Each (project, stack) pair gets its own directory so that the rendered
// configuration and the local .terraform cache never mix across stacks.
//
//	Linux:   $XDG_STATE_HOME/siteship/terraform/<project>/<stack>
func TerraformWorkspace(project, stack string) string {
	return filepath.Join(State(), "terraform", project, stack)
}

// Working directory for Pulumi inline programs owned by a stack identity.
//
//	Linux:   $XDG_STATE_HOME/siteship/pulumi/<project>/<stack>
func PulumiWorkspace(project, stack string) string {
	return filepath.Join(State(), "pulumi", project, stack)
}

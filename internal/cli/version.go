package cli

import (
	"context"
	"fmt"

	"github.com/rocksun/siteship/internal"
)

// Represents the 'siteship version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}

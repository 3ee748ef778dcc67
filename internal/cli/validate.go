package cli

import (
	"context"
	"fmt"

	"github.com/rocksun/siteship/internal/config"
	"github.com/rocksun/siteship/internal/site"
)

// Represents the 'siteship validate' command.
type ValidateCmd struct{}

// Executes the validate command.
//
// Loads the site manifest over the defaults and prints every finding. Fails
// if any finding is an error. Needs no credentials.
func (c *ValidateCmd) Run(ctx context.Context) error {
	src, err := source()
	if err != nil {
		return err
	}

	path, siteDir := config.ManifestLocation(src)
	m, err := site.Load(path, siteDir)
	if err != nil {
		return err
	}

	result := site.Validate(m)
	fmt.Println(renderFindings(path, result))
	return result.Err()
}

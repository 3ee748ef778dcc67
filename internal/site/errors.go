package site

import "errors"

var (
	ErrManifest = errors.New("invalid site manifest")
)

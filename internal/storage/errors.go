package storage

import "errors"

var (
	ErrClient = errors.New("object storage client")
	ErrBucket = errors.New("bucket operation failed")
)

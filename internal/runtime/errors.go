package runtime

import "errors"

var (
	ErrRuntime  = errors.New("runtime error")
	ErrConnect  = errors.New("cannot reach containerd")
	ErrPull     = errors.New("image pull failed")
	ErrImageRef = errors.New("invalid image reference")
)

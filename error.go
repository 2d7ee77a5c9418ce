package canbridge

import "errors"

var (
	ErrNilRegistry = errors.New("registry is nil")
	ErrNilRouter   = errors.New("router is nil")
)

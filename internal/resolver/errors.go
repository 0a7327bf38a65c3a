package resolver

import "errors"

// Sentinel errors for path resolution.
var (
	// ErrNotFound indicates no animation file matches the path.
	ErrNotFound = errors.New("resolver: no animation found")

	// ErrUnsupported indicates the path names a file of an unknown type.
	ErrUnsupported = errors.New("resolver: unsupported file type")
)

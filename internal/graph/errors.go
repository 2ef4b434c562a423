package graph

import "errors"

var (
	// ErrNodeNotFound is returned when an ID or edge points at a type that is
	// not in the workspace, which only happens with a damaged index file.
	ErrNodeNotFound = errors.New("type not found in workspace")

	// ErrIndexCorrupt is returned when a persisted index cannot be decoded.
	ErrIndexCorrupt = errors.New("workspace index is corrupt")
)

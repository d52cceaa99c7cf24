package tree

import "errors"

// Sentinel errors returned by structural primitives. The engine maps them
// onto command error codes.
var (
	ErrNotFound      = errors.New("node not found")
	ErrNameCollision = errors.New("sibling with this name already exists")
	ErrInvalidName   = errors.New("invalid node name")
	ErrCycle         = errors.New("new parent is the node itself or one of its descendants")
)

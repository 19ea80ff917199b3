package plcnode

import "errors"

var (
	// ErrConfigInvalid is raised for invariant violations at add_node
	// time: fatal to the caller, but never to the process by itself —
	// cmd/simplc decides whether a single bad node aborts startup.
	ErrConfigInvalid = errors.New("plcnode: invalid node configuration")
	// ErrNotFound is returned by Lookup for an unknown qualified name.
	ErrNotFound = errors.New("plcnode: node not found")
)

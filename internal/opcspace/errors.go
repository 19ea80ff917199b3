package opcspace

import "errors"

var (
	// ErrInvalidNamespace is returned by RegisterNamespace when uri does
	// not parse as an absolute URL.
	ErrInvalidNamespace = errors.New("opcspace: invalid namespace uri")
	// ErrNamespaceNotFound is returned by RegisterNode/RegisterVariable
	// when the target namespace was never registered.
	ErrNamespaceNotFound = errors.New("opcspace: namespace not found")
	// ErrNodeNotFound is returned when a referenced parent object or
	// variable qualified name does not exist in the address space.
	ErrNodeNotFound = errors.New("opcspace: node not found")
)

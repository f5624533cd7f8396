// internal/app/registry/errors.go
package registry

import "errors"

var (
	// ErrInvalidIdentifier is returned when the database identifier is not a
	// member of catalog.Databases(), including the zero value.
	ErrInvalidIdentifier = errors.New("registry: invalid database identifier")

	// ErrUnregisteredIdentifier is returned by lookups for a database that has
	// not been registered yet.
	ErrUnregisteredIdentifier = errors.New("registry: database not registered")

	// ErrAlreadyRegistered is returned by Register when the identifier already
	// has a live connection. Use Replace to swap clusters deliberately.
	ErrAlreadyRegistered = errors.New("registry: database already registered")

	// ErrInvalidCluster is returned when the cluster name is blank.
	ErrInvalidCluster = errors.New("registry: cluster name is required")

	// ErrStoreUnavailable wraps any connect, ping, or collection setup failure.
	ErrStoreUnavailable = errors.New("registry: store unavailable")

	// ErrClosed is returned by Register and Replace after Close.
	ErrClosed = errors.New("registry: closed")
)

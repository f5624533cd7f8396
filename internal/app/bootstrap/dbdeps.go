// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/mild/internal/app/registry"
)

// DBDeps holds the backends the service depends on.
type DBDeps struct {
	Registry *registry.Registry
}

// toolkit/db/mongodb/errors.go
package mongodb

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

const codeNamespaceExists = 48

// IsNamespaceExists reports whether err is the server's NamespaceExists
// error (code 48), returned when creating a collection that already exists.
func IsNamespaceExists(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code == codeNamespaceExists || ce.Name == "NamespaceExists"
	}

	// Some hosts only surface the text.
	return strings.Contains(strings.ToLower(err.Error()), "namespaceexists")
}

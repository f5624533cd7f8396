// toolkit/db/mongodb/ensure.go
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionStore is the part of *mongo.Database needed to ensure collections.
type CollectionStore interface {
	ListCollectionNames(ctx context.Context, filter interface{}, opts ...*options.ListCollectionsOptions) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error
}

// EnsureCollections creates every collection in names that db does not have
// yet, using default options. Existing collections are left untouched, so it
// is safe to run on every startup.
func EnsureCollections(ctx context.Context, db CollectionStore, names []string) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	have := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		have[n] = struct{}{}
	}

	for _, name := range names {
		if _, ok := have[name]; ok {
			continue
		}
		// A concurrent creator winning the race is fine.
		if err := db.CreateCollection(ctx, name); err != nil && !IsNamespaceExists(err) {
			return fmt.Errorf("create collection %q: %w", name, err)
		}
		have[name] = struct{}{}
	}
	return nil
}

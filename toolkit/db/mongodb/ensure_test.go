package mongodb

import (
	"context"
	"errors"
	"sort"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// memStore is an in-memory CollectionStore that behaves like the server:
// creating an existing collection fails with NamespaceExists.
type memStore struct {
	names     []string
	creates   []string
	listErr   error
	createErr error
}

func (m *memStore) ListCollectionNames(ctx context.Context, filter interface{}, opts ...*options.ListCollectionsOptions) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out, nil
}

func (m *memStore) CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, n := range m.names {
		if n == name {
			return mongo.CommandError{Code: 48, Name: "NamespaceExists", Message: "collection already exists"}
		}
	}
	m.names = append(m.names, name)
	m.creates = append(m.creates, name)
	return nil
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestEnsureCollections_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	names := []string{"users", "printers", "print_jobs"}

	if err := EnsureCollections(ctx, store, names); err != nil {
		t.Fatalf("first EnsureCollections() error = %v", err)
	}
	if err := EnsureCollections(ctx, store, names); err != nil {
		t.Fatalf("second EnsureCollections() error = %v", err)
	}

	got := sorted(store.names)
	want := sorted(names)
	if len(got) != len(want) {
		t.Fatalf("collections = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("collections = %v, want %v", got, want)
			break
		}
	}
	if len(store.creates) != len(names) {
		t.Errorf("CreateCollection called %d times, want %d", len(store.creates), len(names))
	}
}

func TestEnsureCollections_KeepsExisting(t *testing.T) {
	store := &memStore{names: []string{"users", "audit"}}

	if err := EnsureCollections(context.Background(), store, []string{"users", "printers"}); err != nil {
		t.Fatalf("EnsureCollections() error = %v", err)
	}
	if len(store.creates) != 1 || store.creates[0] != "printers" {
		t.Errorf("creates = %v, want [printers]", store.creates)
	}
	if len(store.names) != 3 {
		t.Errorf("names = %v, want users, audit, printers", store.names)
	}
}

func TestEnsureCollections_DuplicateInput(t *testing.T) {
	store := &memStore{}
	if err := EnsureCollections(context.Background(), store, []string{"users", "users"}); err != nil {
		t.Fatalf("EnsureCollections() error = %v", err)
	}
	if len(store.creates) != 1 {
		t.Errorf("creates = %v, want one create", store.creates)
	}
}

func TestEnsureCollections_ConcurrentCreatorIsNotAnError(t *testing.T) {
	store := &memStore{createErr: mongo.CommandError{Code: 48, Name: "NamespaceExists"}}
	if err := EnsureCollections(context.Background(), store, []string{"users"}); err != nil {
		t.Errorf("EnsureCollections() error = %v, want nil", err)
	}
}

func TestEnsureCollections_StoreErrors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("list", func(t *testing.T) {
		err := EnsureCollections(context.Background(), &memStore{listErr: boom}, []string{"users"})
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want wrapping %v", err, boom)
		}
	})

	t.Run("create", func(t *testing.T) {
		err := EnsureCollections(context.Background(), &memStore{createErr: boom}, []string{"users"})
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want wrapping %v", err, boom)
		}
	})
}

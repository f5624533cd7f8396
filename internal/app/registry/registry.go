// internal/app/registry/registry.go
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/mild/internal/app/catalog"
	"github.com/dalemusser/mild/metrics"
	"github.com/dalemusser/mild/toolkit/db/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// disconnectTimeout bounds the cleanup of a client that is being thrown away.
const disconnectTimeout = 10 * time.Second

// Credentials are the account used for every registered cluster.
type Credentials struct {
	Username string
	Password string
}

// Entry is one registered database. Entries are immutable once returned.
type Entry struct {
	ID           catalog.DatabaseID
	ClusterName  string
	DatabaseName string
	RegisteredAt time.Time

	Client   *mongo.Client
	Database *mongo.Database

	uri string
}

// ConnectionString returns the entry's connection string with the password masked.
func (e *Entry) ConnectionString() string {
	return mongodb.RedactURI(e.uri)
}

// Registry maps logical database identifiers to live, ready-to-use database
// handles. Registration opens and prepares the connection; lookups only read.
// Construct one with New during startup and pass it to whatever needs it.
type Registry struct {
	creds  Credentials
	conn   mongodb.ConnectConfig
	logger *zap.Logger
	deps   deps

	// regMu serializes Register, Replace, EnsureAll and Close so that a
	// connection is never opened twice for the same identifier.
	regMu sync.Mutex

	mu      sync.RWMutex
	entries map[catalog.DatabaseID]*Entry
	closed  bool
}

// deps are the driver calls the registry makes. Tests swap them out.
type deps struct {
	connect    func(ctx context.Context, uri string, cc mongodb.ConnectConfig) (*mongo.Client, error)
	ensure     func(ctx context.Context, db *mongo.Database) error
	ping       func(ctx context.Context, client *mongo.Client) error
	disconnect func(ctx context.Context, client *mongo.Client) error
}

func defaultDeps() deps {
	return deps{
		connect: mongodb.Connect,
		ensure: func(ctx context.Context, db *mongo.Database) error {
			return ensureCatalog(ctx, db)
		},
		ping: func(ctx context.Context, client *mongo.Client) error {
			return client.Ping(ctx, readpref.Primary())
		},
		disconnect: func(ctx context.Context, client *mongo.Client) error {
			return client.Disconnect(ctx)
		},
	}
}

// ensureCatalog creates every catalog collection missing from db.
func ensureCatalog(ctx context.Context, db mongodb.CollectionStore) error {
	return mongodb.EnsureCollections(ctx, db, catalog.CollectionNames())
}

// Option configures a Registry.
type Option func(*Registry)

// WithConnectConfig sets the connect and server selection timeouts used for
// every client.
func WithConnectConfig(cc mongodb.ConnectConfig) Option {
	return func(r *Registry) {
		r.conn = cc
	}
}

// New returns an empty registry that will authenticate with creds.
func New(creds Credentials, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		creds:   creds,
		logger:  logger,
		deps:    defaultDeps(),
		entries: make(map[catalog.DatabaseID]*Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register connects to clusterName, opens the database for id, and makes sure
// every catalog collection exists. It fails with ErrAlreadyRegistered if id
// already has an entry; the existing connection is left as is.
func (r *Registry) Register(ctx context.Context, id catalog.DatabaseID, clusterName string) (*Entry, error) {
	return r.register(ctx, id, clusterName, false)
}

// Replace is Register with last-write-wins semantics: the new connection is
// built first, then swapped in, then the previous client (if any) is
// disconnected. If building the new connection fails the old entry stays.
func (r *Registry) Replace(ctx context.Context, id catalog.DatabaseID, clusterName string) (*Entry, error) {
	return r.register(ctx, id, clusterName, true)
}

func (r *Registry) register(ctx context.Context, id catalog.DatabaseID, clusterName string, replace bool) (*Entry, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIdentifier, id)
	}
	clusterName = strings.TrimSpace(clusterName)
	if clusterName == "" {
		return nil, fmt.Errorf("%w: database %s", ErrInvalidCluster, id)
	}

	r.regMu.Lock()
	defer r.regMu.Unlock()

	r.mu.RLock()
	closed := r.closed
	prev := r.entries[id]
	r.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if prev != nil && !replace {
		return nil, fmt.Errorf("%w: %s (cluster %s)", ErrAlreadyRegistered, id, prev.ClusterName)
	}

	start := time.Now()
	entry, err := r.open(ctx, id, clusterName)
	metrics.ObserveRegistration(string(id), time.Since(start), err)
	if err != nil {
		r.logger.Error("database registration failed",
			zap.String("database", string(id)),
			zap.String("cluster", clusterName),
			zap.Error(err),
		)
		return nil, err
	}

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()
	if prev == nil {
		metrics.AddRegisteredDatabases(1)
	}

	r.logger.Info("database registered",
		zap.String("database", string(id)),
		zap.String("db_name", entry.DatabaseName),
		zap.String("cluster", clusterName),
		zap.String("uri", entry.ConnectionString()),
		zap.Bool("replaced", prev != nil),
	)

	if prev != nil {
		r.release(prev)
	}
	return entry, nil
}

// open builds a ready entry without touching the map.
func (r *Registry) open(ctx context.Context, id catalog.DatabaseID, clusterName string) (*Entry, error) {
	dbName := id.DatabaseName()
	uri, err := mongodb.BuildURI(mongodb.URIConfig{
		Username: r.creds.Username,
		Password: r.creds.Password,
		Host:     clusterName,
		Database: dbName,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCluster, err)
	}

	client, err := r.deps.connect(ctx, uri, r.conn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s on %s: %w", ErrStoreUnavailable, id, clusterName, err)
	}

	db := client.Database(dbName)
	if err := r.deps.ensure(ctx, db); err != nil {
		r.release(&Entry{ID: id, ClusterName: clusterName, Client: client})
		return nil, fmt.Errorf("%w: ensure collections in %s: %w", ErrStoreUnavailable, dbName, err)
	}

	return &Entry{
		ID:           id,
		ClusterName:  clusterName,
		DatabaseName: dbName,
		RegisteredAt: time.Now().UTC(),
		Client:       client,
		Database:     db,
		uri:          uri,
	}, nil
}

// release disconnects a client that is no longer reachable through the map.
func (r *Registry) release(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := r.deps.disconnect(ctx, e.Client); err != nil {
		r.logger.Warn("disconnect failed",
			zap.String("database", string(e.ID)),
			zap.String("cluster", e.ClusterName),
			zap.Error(err),
		)
	}
}

// Get returns the entry registered for id.
func (r *Registry) Get(id catalog.DatabaseID) (*Entry, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIdentifier, id)
	}

	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredIdentifier, id)
	}
	return e, nil
}

// Database returns the database handle registered for id.
func (r *Registry) Database(id catalog.DatabaseID) (*mongo.Database, error) {
	e, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return e.Database, nil
}

// Registered lists the registered identifiers in catalog order.
func (r *Registry) Registered() []catalog.DatabaseID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]catalog.DatabaseID, 0, len(r.entries))
	for _, id := range catalog.Databases() {
		if _, ok := r.entries[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Ping checks that the primary for id is reachable.
func (r *Registry) Ping(ctx context.Context, id catalog.DatabaseID) error {
	e, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := r.deps.ping(ctx, e.Client); err != nil {
		return fmt.Errorf("%w: ping %s: %w", ErrStoreUnavailable, id, err)
	}
	return nil
}

// EnsureAll re-runs collection setup for every registered database.
func (r *Registry) EnsureAll(ctx context.Context) error {
	r.regMu.Lock()
	defer r.regMu.Unlock()

	for _, id := range r.Registered() {
		e, err := r.Get(id)
		if err != nil {
			return err
		}
		if err := r.deps.ensure(ctx, e.Database); err != nil {
			return fmt.Errorf("%w: ensure collections in %s: %w", ErrStoreUnavailable, e.DatabaseName, err)
		}
	}
	return nil
}

// Close disconnects every registered client and empties the registry.
// Register and Replace fail with ErrClosed afterwards.
func (r *Registry) Close(ctx context.Context) error {
	r.regMu.Lock()
	defer r.regMu.Unlock()

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[catalog.DatabaseID]*Entry)
	r.closed = true
	r.mu.Unlock()
	metrics.AddRegisteredDatabases(-len(entries))

	var errs []error
	for id, e := range entries {
		if err := r.deps.disconnect(ctx, e.Client); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", id, err))
		}
	}
	if len(entries) > 0 {
		r.logger.Info("database registry closed", zap.Int("databases", len(entries)))
	}
	return errors.Join(errs...)
}

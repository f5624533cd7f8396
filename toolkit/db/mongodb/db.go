// toolkit/db/mongodb/db.go
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const mongoConnectTimeout = 10 * time.Second

// ConnectConfig bounds how long a client may take to come up. Zero fields
// leave the driver default in place.
type ConnectConfig struct {
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

// ClientOptions returns driver options for uri with the durability settings
// every registered database uses: retryable writes and majority write concern.
func ClientOptions(uri string, cc ConnectConfig) *options.ClientOptions {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	if cc.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(cc.ConnectTimeout)
	}
	if cc.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(cc.ServerSelectionTimeout)
	}
	return clientOpts
}

// Connect opens a durable Mongo connection (see ClientOptions) with a bounded
// timeout derived from the provided parent context, and pings the primary
// before returning. The returned client must be disconnected by the caller.
func Connect(ctx context.Context, uri string, cc ConnectConfig) (*mongo.Client, error) {
	if err := ValidateURI(uri); err != nil {
		return nil, fmt.Errorf("invalid mongo uri: %w", err)
	}
	timeout := cc.ConnectTimeout
	if timeout <= 0 {
		timeout = mongoConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, ClientOptions(uri, cc))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

// Package store talks to the MongoDB database behind the pipeline:
// collection provisioning, boundary and footprint documents, and the
// aggregations that feed the reports.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store is an open handle to one database. Callers own its lifetime and
// hand it to whatever needs the data; there is no package-level client.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the database and verifies it answers before returning.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging %s: %w", uri, err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database returns the connected database name.
func (s *Store) Database() string { return s.db.Name() }

// Count returns the number of documents in one collection.
func (s *Store) Count(ctx context.Context, coll string) (int64, error) {
	n, err := s.collection(coll).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", coll, err)
	}

	return n, nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

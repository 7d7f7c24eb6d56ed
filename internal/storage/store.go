// Package storage owns the MongoDB client for the whole process. The store
// is constructed once at startup with the connection configuration and
// handed to the services that need it; there is no package-level state.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"shelfdesk/internal/config"
)

// Collection names used by the application. The shapes are documented on the
// domain structs in internal/catalog, internal/circulation and
// internal/membership.
const (
	CollBooks        = "books"
	CollStudents     = "students"
	CollTransactions = "booktransactions"
	CollCategories   = "bookcategories"
)

// Store wraps the Mongo client and database handle.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	queryTimeout time.Duration
}

// Connect dials MongoDB with the configured timeouts, retrying with backoff
// up to cfg.MaxConnectRetry attempts before giving up.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(cfg.ConnectTimeout).
		SetSocketTimeout(45 * time.Second)

	var client *mongo.Client
	var err error
	delay := 2 * time.Second
	attempts := cfg.MaxConnectRetry
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		client, err = mongo.Connect(ctx, opts)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				break
			}
			_ = client.Disconnect(ctx)
		}
		logger.Warn("mongo connect failed",
			"attempt", i+1, "max", attempts, "error", err)
		if i == attempts-1 {
			return nil, fmt.Errorf("connect to mongo after %d attempts: %w", attempts, err)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if delay *= 2; delay > time.Minute {
			delay = time.Minute
		}
	}

	logger.Info("mongo connected", "database", cfg.MongoDatabase)
	return &Store{
		client:       client,
		db:           client.Database(cfg.MongoDatabase),
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// QueryContext derives a context bounded by the configured query timeout.
func (s *Store) QueryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Store) Books() *mongo.Collection        { return s.db.Collection(CollBooks) }
func (s *Store) Students() *mongo.Collection     { return s.db.Collection(CollStudents) }
func (s *Store) Transactions() *mongo.Collection { return s.db.Collection(CollTransactions) }
func (s *Store) Categories() *mongo.Collection   { return s.db.Collection(CollCategories) }

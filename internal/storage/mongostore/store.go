// Package mongostore implements the storage backend over MongoDB. It keeps
// the same behavioral contract as sqlstore, with one deliberate difference:
// mutations are applied as sequential writes rather than a transaction, so a
// crash mid-mutation can leave an item row without its version. The record
// store tolerates that; version numbers stay unique via a unique index.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/logging"
	"github.com/devvoxel/itemdb/internal/storage/clock"
)

const connectTimeout = 10 * time.Second

// Store is the MongoDB-backed storage implementation.
type Store struct {
	client   *mongo.Client
	items    *mongo.Collection
	versions *mongo.Collection
	audit    *mongo.Collection
	log      logging.Logger
	clock    clock.Clock
}

// Open connects to MongoDB, resolves the three collections from the
// configured prefix and ensures their indexes. Failures wrap
// common.ErrConnection.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool := cfg.PoolSize
	if pool < 1 {
		pool = 1
	}
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(uint64(pool))
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConnection, err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", common.ErrConnection, err)
	}

	db := client.Database(cfg.MongoDatabase)
	s := &Store{
		client:   client,
		items:    db.Collection(cfg.MongoPrefix + "items"),
		versions: db.Collection(cfg.MongoPrefix + "versions"),
		audit:    db.Collection(cfg.MongoPrefix + "audit"),
		log:      log,
	}

	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: indexes: %v", common.ErrConnection, err)
	}

	log.Info(ctx, "connected to database", "backend", config.BackendMongo)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = s.versions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "item_name", Value: 1}}},
		{
			Keys:    bson.D{{Key: "item_name", Value: 1}, {Key: "version", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.audit.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	return err
}

// Now returns the next strictly increasing logical timestamp.
func (s *Store) Now() int64 {
	return s.clock.Now()
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

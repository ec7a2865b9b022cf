package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/model"
)

// insertVersion appends the next version for the key. The number is read
// from the newest existing version; the unique (item_name, version) index
// turns a concurrent race into a write error instead of a duplicate.
func (s *Store) insertVersion(ctx context.Context, key, payload, editor, comment string, ts int64, deleted bool) error {
	next, err := s.nextVersion(ctx, key)
	if err != nil {
		return err
	}
	doc := versionDoc{
		ItemName:  key,
		Version:   next,
		Editor:    editor,
		Payload:   payload,
		CreatedAt: ts,
		Comment:   comment,
		Deleted:   deleted,
	}
	if _, err := s.versions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: insert version %d of %s: %v", common.ErrPersistence, next, key, err)
	}
	return nil
}

func (s *Store) nextVersion(ctx context.Context, key string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	var doc versionDoc
	err := s.versions.FindOne(ctx, bson.M{"item_name": key}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return 1, nil
	case err != nil:
		return 0, fmt.Errorf("%w: max version of %s: %v", common.ErrPersistence, key, err)
	}
	return doc.Version + 1, nil
}

// FetchHistory returns versions for a key, newest first.
func (s *Store) FetchHistory(ctx context.Context, key string, limit int) ([]*model.Version, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.versions.Find(ctx, bson.M{"item_name": model.NormalizeKey(key)}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: history of %s: %v", common.ErrPersistence, key, err)
	}
	defer cur.Close(ctx)

	var out []*model.Version
	for cur.Next(ctx) {
		var doc versionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode version: %v", common.ErrPersistence, err)
		}
		out = append(out, doc.version())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate versions: %v", common.ErrPersistence, err)
	}
	return out, nil
}

// FetchVersion returns one version, or common.ErrNotFound.
func (s *Store) FetchVersion(ctx context.Context, key string, version int) (*model.Version, error) {
	var doc versionDoc
	err := s.versions.FindOne(ctx, bson.M{"item_name": model.NormalizeKey(key), "version": version}).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("%w: version %d of %s", common.ErrNotFound, version, key)
	case err != nil:
		return nil, fmt.Errorf("%w: version %d of %s: %v", common.ErrPersistence, version, key, err)
	}
	return doc.version(), nil
}

package mongostore

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devvoxel/itemdb/internal/common"
	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/model"
)

// SaveItem replaces the item document, appends the next version and an audit
// line. The three writes are sequential; see the package comment.
func (s *Store) SaveItem(ctx context.Context, rec *model.Record, editor, comment string) error {
	payload, err := item.Encode(rec.Item)
	if err != nil {
		return err
	}

	doc := newItemDoc(rec, payload)
	_, err = s.items.ReplaceOne(ctx, bson.M{"_id": rec.Key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: save item %s: %v", common.ErrPersistence, rec.Key, err)
	}

	if err := s.insertVersion(ctx, rec.Key, payload, editor, comment, rec.UpdatedAt, false); err != nil {
		return err
	}
	return s.insertAudit(ctx, "save", rec.Key, editor, comment, rec.UpdatedAt)
}

// MarkDeleted flags the document deleted at ts and appends a deleted version
// plus an audit line. Returns false when no document matched.
func (s *Store) MarkDeleted(ctx context.Context, rec *model.Record, ts int64, editor, comment string) (bool, error) {
	res, err := s.items.UpdateOne(ctx, bson.M{"_id": rec.Key},
		bson.M{"$set": bson.M{"is_deleted": true, "updated_at": ts}})
	if err != nil {
		return false, fmt.Errorf("%w: delete item %s: %v", common.ErrPersistence, rec.Key, err)
	}
	if res.MatchedCount == 0 {
		return false, nil
	}

	payload, err := item.Encode(rec.Item)
	if err != nil {
		return false, err
	}
	if err := s.insertVersion(ctx, rec.Key, payload, editor, comment, ts, true); err != nil {
		return false, err
	}
	return true, s.insertAudit(ctx, "delete", rec.Key, editor, comment, ts)
}

// LoadAllItems returns every non-deleted record.
func (s *Store) LoadAllItems(ctx context.Context) ([]*model.Record, error) {
	return s.findRecords(ctx, bson.M{"is_deleted": false}, nil)
}

// FetchChanges returns every record, deleted or not, updated after since.
func (s *Store) FetchChanges(ctx context.Context, since int64) ([]*model.Record, error) {
	return s.findRecords(ctx, bson.M{"updated_at": bson.M{"$gt": since}}, nil)
}

// Search matches query case-insensitively against key, display name and
// lore, newest-updated first.
func (s *Store) Search(ctx context.Context, query string, customModelData *int, limit int) ([]*model.Record, error) {
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{
		"is_deleted": false,
		"$or": bson.A{
			bson.M{"_id": rx},
			bson.M{"display_name": rx},
			bson.M{"lore_text": rx},
		},
	}
	if customModelData != nil {
		filter["custom_model_data"] = *customModelData
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.findRecords(ctx, filter, opts)
}

func (s *Store) findRecords(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Record, error) {
	var cursorOpts []*options.FindOptions
	if opts != nil {
		cursorOpts = append(cursorOpts, opts)
	}
	cur, err := s.items.Find(ctx, filter, cursorOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: find items: %v", common.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var out []*model.Record
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode item: %v", common.ErrPersistence, err)
		}
		rec, err := doc.record()
		if err != nil {
			// A corrupt payload should not take the whole load down.
			s.log.Warn(ctx, "skipping undecodable item", "key", doc.Key, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate items: %v", common.ErrPersistence, err)
	}
	return out, nil
}

package usage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/JoseRicoK/SecondBrain-sub001/pkg/limits"
)

const usageCollection = "monthly_usage"

// MongoStore is the document-database backed usage Store. One document per
// (uid, period); counters live in a sub-document so increments are a single
// atomic $inc upsert.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a usage store over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(usageCollection)}
}

func (s *MongoStore) Get(ctx context.Context, uid, period string) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"uid": uid, "period": period}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{UID: uid, Period: period, Counters: map[limits.Feature]int64{}}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("get usage %s/%s: %w", uid, period, err)
	}
	if rec.Counters == nil {
		rec.Counters = map[limits.Feature]int64{}
	}
	return rec, nil
}

func (s *MongoStore) Increment(ctx context.Context, uid, period string, f limits.Feature, delta int64) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"uid": uid, "period": period},
		bson.M{
			"$inc":         bson.M{"counters." + string(f): delta},
			"$setOnInsert": bson.M{"uid": uid, "period": period},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("increment usage %s/%s/%s: %w", uid, period, f, err)
	}
	return nil
}

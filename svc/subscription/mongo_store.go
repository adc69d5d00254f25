package subscription

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const profilesCollection = "users"

// MongoStore is the document-database backed ProfileStore.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a profile store over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(profilesCollection)}
}

func (s *MongoStore) Get(ctx context.Context, uid string) (*Profile, error) {
	var profile Profile
	err := s.coll.FindOne(ctx, bson.M{"_id": uid}).Decode(&profile)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return &profile, nil
}

func (s *MongoStore) Save(ctx context.Context, profile *Profile) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": profile.UID},
		profile,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrFailedToSaveRecord, err)
	}
	return nil
}

func (s *MongoStore) ListPendingCancellation(ctx context.Context) ([]*Profile, error) {
	cursor, err := s.coll.Find(ctx, bson.M{
		"subscription.cancelAtPeriodEnd": true,
		"subscription.status":            StatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list pending cancellation: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*Profile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode pending cancellation profiles: %w", err)
	}
	return profiles, nil
}

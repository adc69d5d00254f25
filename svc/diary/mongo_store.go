package diary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	entriesCollection = "diary_entries"
	peopleCollection  = "people"
)

// MongoStore is the document-database backed diary Store.
type MongoStore struct {
	entries *mongo.Collection
	people  *mongo.Collection
}

// NewMongoStore creates a diary store over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		entries: db.Collection(entriesCollection),
		people:  db.Collection(peopleCollection),
	}
}

func (s *MongoStore) SaveEntry(ctx context.Context, entry *Entry) error {
	_, err := s.entries.ReplaceOne(ctx,
		bson.M{"_id": entry.ID},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrFailedToSaveRecord, err)
	}
	return nil
}

func (s *MongoStore) ListEntries(ctx context.Context, uid string, from, to time.Time) ([]*Entry, error) {
	cursor, err := s.entries.Find(ctx,
		bson.M{
			"uid":  uid,
			"date": bson.M{"$gte": from, "$lte": to},
		},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", uid, err)
	}
	defer cursor.Close(ctx)

	var entries []*Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

func (s *MongoStore) UpsertPerson(ctx context.Context, uid, name string) error {
	_, err := s.people.UpdateOne(ctx,
		bson.M{"uid": uid, "name": name},
		bson.M{
			"$inc":         bson.M{"mentions": 1},
			"$setOnInsert": bson.M{"_id": bson.NewObjectID().Hex(), "uid": uid, "name": name},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Join(ErrFailedToSaveRecord, err)
	}
	return nil
}

func (s *MongoStore) ListPeople(ctx context.Context, uid string) ([]*Person, error) {
	cursor, err := s.people.Find(ctx,
		bson.M{"uid": uid},
		options.Find().SetSort(bson.D{{Key: "mentions", Value: -1}, {Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list people for %s: %w", uid, err)
	}
	defer cursor.Close(ctx)

	var people []*Person
	if err := cursor.All(ctx, &people); err != nil {
		return nil, fmt.Errorf("decode people: %w", err)
	}
	return people, nil
}

func (s *MongoStore) CountPeople(ctx context.Context, uid string) (int64, error) {
	n, err := s.people.CountDocuments(ctx, bson.M{"uid": uid})
	if err != nil {
		return 0, fmt.Errorf("count people for %s: %w", uid, err)
	}
	return n, nil
}

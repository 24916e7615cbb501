package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sessionDocument holds every slot of a session in one document, which makes
// a multi-slot commit a single atomic update.
type sessionDocument struct {
	ID        string            `bson:"_id"`
	Slots     map[string][]byte `bson:"slots"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewMongoRepository(db *mongo.Database, ttl time.Duration) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("storefront_sessions"),
		ttl:        ttl,
	}
}

func (m *MongoRepository) Get(ctx context.Context, sessionID string, slot Slot) ([]byte, error) {
	var doc sessionDocument

	filter := bson.M{"_id": sessionID}
	opts := options.FindOne().SetProjection(bson.M{"slots." + string(slot): 1})
	err := m.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	data, ok := doc.Slots[string(slot)]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return data, nil
}

func (m *MongoRepository) Put(ctx context.Context, sessionID string, slot Slot, data []byte) error {
	return m.Apply(ctx, sessionID, Commit{Writes: map[Slot][]byte{slot: data}})
}

func (m *MongoRepository) Apply(ctx context.Context, sessionID string, commit Commit) error {
	if commit.empty() {
		return nil
	}

	set := bson.M{"updated_at": time.Now()}
	for s, data := range commit.Writes {
		set["slots."+string(s)] = data
	}
	update := bson.M{"$set": set}

	if dels := commit.deletes(); len(dels) > 0 {
		unset := bson.M{}
		for _, s := range dels {
			unset["slots."+string(s)] = ""
		}
		update["$unset"] = unset
	}

	filter := bson.M{"_id": sessionID}
	opts := options.Update().SetUpsert(true)
	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// CreateIndexes expires idle sessions after the configured TTL.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(m.ttl.Seconds())),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}

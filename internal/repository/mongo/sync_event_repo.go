// internal/repository/mongo/sync_event_repo.go
package mongo

import (
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/repository"
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const syncEventCollectionName = "sync_events"

// mongoSyncEventRepository implements repository.SyncEventRepository
type mongoSyncEventRepository struct {
	collection *mongo.Collection
}

// NewMongoSyncEventRepository creates a new SyncEvent repository.
func NewMongoSyncEventRepository(db *mongo.Database) repository.SyncEventRepository {
	return &mongoSyncEventRepository{
		collection: db.Collection(syncEventCollectionName),
	}
}

// Create appends an event to the overflow log. The log is append-only; there
// are no update or delete operations on this collection.
func (r *mongoSyncEventRepository) Create(ctx context.Context, event *domain.SyncEvent) (primitive.ObjectID, error) {
	if event.UserID == primitive.NilObjectID || event.Action == "" {
		return primitive.NilObjectID, errors.New("sync event requires userId and action")
	}
	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted sync event ID")
	}
	return insertedID, nil
}

// EnsureSyncEventIndexes creates necessary indexes. Call during startup.
func EnsureSyncEventIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "action", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}

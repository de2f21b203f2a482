package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poll-service/internal/models"
	"poll-service/internal/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const pollCollection = "polls"

// PollRepository stores each poll as a single document keyed by its
// public id, so an upsert writes counters and ledger together.
type PollRepository struct {
	collection *mongo.Collection
}

func NewPollRepository(db *mongo.Database) *PollRepository {
	return &PollRepository{collection: db.Collection(pollCollection)}
}

// EnsureIndexes creates the unique index on the public poll id
func (r *PollRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("poll_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create poll index: %w", err)
	}
	return nil
}

func (r *PollRepository) Load(ctx context.Context, id string) (*models.Poll, error) {
	var poll models.Poll
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&poll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load poll %s: %w", id, err)
	}
	return &poll, nil
}

func (r *PollRepository) Save(ctx context.Context, poll *models.Poll) (*models.Poll, error) {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"id": poll.ID}, poll, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to save poll %s: %w", poll.ID, err)
	}
	return poll, nil
}

func (r *PollRepository) SoftDelete(ctx context.Context, id string, at time.Time) (*models.Poll, error) {
	update := bson.M{"$set": bson.M{
		"isDeleted": true,
		"deletedAt": at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var poll models.Poll
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&poll)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete poll %s: %w", id, err)
	}
	return &poll, nil
}

func (r *PollRepository) List(ctx context.Context) ([]*models.Poll, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	defer cursor.Close(ctx)

	var polls []*models.Poll
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, fmt.Errorf("failed to decode polls: %w", err)
	}
	return polls, nil
}

func (r *PollRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daybrief/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a lookup matches no document
var ErrNotFound = errors.New("not found")

// ContextStore is the narrow persistence interface the context and retrieval
// services depend on. The Mongo implementation below is the production one;
// tests substitute in-memory fakes.
type ContextStore interface {
	// Upsert atomically replaces-or-inserts the entry keyed by
	// (userID, source, sourceID), setting content and embedding in the
	// same write. Last writer wins under concurrency; no duplicate rows.
	Upsert(ctx context.Context, userID string, source models.ContextSource, sourceID, content string, embedding []float64) (*models.ContextEntry, error)

	// ListByUser returns the user's entries newest-first
	ListByUser(ctx context.Context, userID string, filter models.ContextFilter) ([]models.ContextEntry, error)

	// ListSince returns entries created within the window, newest-first
	ListSince(ctx context.Context, userID string, since time.Time, limit int64) ([]models.ContextEntry, error)

	// DeleteBySource removes every entry the user has for one source
	DeleteBySource(ctx context.Context, userID string, source models.ContextSource) (int64, error)
}

// MongoContextStore implements ContextStore on the context_entries collection
type MongoContextStore struct {
	collection *mongo.Collection
}

// NewMongoContextStore creates a context store backed by MongoDB
func NewMongoContextStore(db *MongoDB) *MongoContextStore {
	return &MongoContextStore{collection: db.Collection(CollectionContextEntries)}
}

// Upsert performs the composite-key upsert. FindOneAndUpdate with
// SetUpsert plus the unique index gives last-writer-wins without
// lost-insert duplicates under concurrent calls for the same key.
func (s *MongoContextStore) Upsert(ctx context.Context, userID string, source models.ContextSource, sourceID, content string, embedding []float64) (*models.ContextEntry, error) {
	now := time.Now()

	filter := bson.M{
		"userId":   userID,
		"source":   source,
		"sourceId": sourceID,
	}
	update := bson.M{
		"$set": bson.M{
			"content":   content,
			"embedding": embedding,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"userId":    userID,
			"source":    source,
			"sourceId":  sourceID,
			"createdAt": now,
		},
	}

	result := s.collection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var entry models.ContextEntry
	if err := result.Decode(&entry); err != nil {
		return nil, fmt.Errorf("failed to upsert context entry: %w", err)
	}
	return &entry, nil
}

// ListByUser returns entries newest-first, optionally filtered by source
func (s *MongoContextStore) ListByUser(ctx context.Context, userID string, filter models.ContextFilter) ([]models.ContextEntry, error) {
	query := bson.M{"userId": userID}
	if filter.Source != "" {
		query["source"] = filter.Source
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		findOptions.SetLimit(filter.Limit)
	}

	cursor, err := s.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find context entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.ContextEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode context entries: %w", err)
	}
	return entries, nil
}

// ListSince returns entries created within the window, newest-first
func (s *MongoContextStore) ListSince(ctx context.Context, userID string, since time.Time, limit int64) ([]models.ContextEntry, error) {
	query := bson.M{
		"userId":    userID,
		"createdAt": bson.M{"$gte": since},
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := s.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent context entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.ContextEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode recent context entries: %w", err)
	}
	return entries, nil
}

// DeleteBySource removes every entry for one (user, source) pair. This is
// the only deletion path; ingestion never deletes.
func (s *MongoContextStore) DeleteBySource(ctx context.Context, userID string, source models.ContextSource) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"userId": userID, "source": source})
	if err != nil {
		return 0, fmt.Errorf("failed to delete context entries: %w", err)
	}
	return result.DeletedCount, nil
}

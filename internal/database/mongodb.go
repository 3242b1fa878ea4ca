package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Collection names
const (
	CollectionContextEntries = "context_entries"
	CollectionFeedItems      = "feed_items"
)

// NewMongoDB creates a new MongoDB connection with connection pooling
func NewMongoDB(uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	if dbName == "" {
		dbName = "daybrief"
	}

	db := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	log.Printf("✅ Connected to MongoDB database: %s", dbName)

	return db, nil
}

// Collection returns a handle to the named collection
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Ping checks database reachability, used by the health endpoint
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes both idempotency guarantees
// depend on: one context entry per (userId, source, sourceId), and one feed
// item per (userId, sourceId). Safe to call on every startup.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	contextIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "source", Value: 1},
				{Key: "sourceId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_user_source_sourceId"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_recency"),
		},
	}
	if _, err := m.Collection(CollectionContextEntries).Indexes().CreateMany(ctx, contextIndexes); err != nil {
		return fmt.Errorf("failed to create context indexes: %w", err)
	}

	feedIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "sourceId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_user_sourceId"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("user_status_expiry"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "priorityRank", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("user_feed_order"),
		},
	}
	if _, err := m.Collection(CollectionFeedItems).Indexes().CreateMany(ctx, feedIndexes); err != nil {
		return fmt.Errorf("failed to create feed indexes: %w", err)
	}

	log.Println("✅ MongoDB indexes ensured")
	return nil
}

// extractDBName extracts the database name from a MongoDB URI
// mongodb://localhost:27017/daybrief?authSource=admin -> daybrief
func extractDBName(uri string) string {
	lastSlash := -1
	questionMark := -1

	for i, c := range uri {
		if c == '/' {
			lastSlash = i
		}
		if c == '?' && questionMark == -1 {
			questionMark = i
		}
	}

	if lastSlash == -1 {
		return ""
	}

	start := lastSlash + 1
	end := len(uri)
	if questionMark > lastSlash {
		end = questionMark
	}
	if start >= end {
		return ""
	}
	return uri[start:end]
}

package database

import (
	"context"
	"fmt"
	"time"

	"daybrief/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateFeedItem is returned when an insert hits the unique
// (userId, sourceId) index, meaning the generating context entry already has
// a feed item.
var ErrDuplicateFeedItem = fmt.Errorf("feed item already exists for source")

// ErrItemExpired is returned when a status update targets an item the expiry
// sweep has already retired. EXPIRED is terminal.
var ErrItemExpired = fmt.Errorf("feed item is expired")

// FeedStore is the narrow persistence interface the feed synthesizer and
// lifecycle manager depend on.
type FeedStore interface {
	// Insert writes a feed item with its embedded actions in one atomic
	// document write. Returns ErrDuplicateFeedItem on composite-key
	// collision.
	Insert(ctx context.Context, item *models.FeedItem) error

	// ExistingSourceIDs returns the set of composite source keys already
	// present on the user's feed items.
	ExistingSourceIDs(ctx context.Context, userID string) (map[string]bool, error)

	// UpdateStatus sets status (and snoozeUntil when snoozing) on one item
	UpdateStatus(ctx context.Context, userID string, itemID primitive.ObjectID, status models.FeedStatus, snoozeUntil *time.Time) error

	// AppendInteraction pushes one interaction onto the item's log
	AppendInteraction(ctx context.Context, userID string, itemID primitive.ObjectID, interaction models.Interaction) error

	// ListActive returns items visible in the feed (see service for rules)
	ListActive(ctx context.Context, userID string, opts models.FeedListOptions) ([]models.FeedItem, error)

	// ExpireSweep transitions every non-EXPIRED item past its expiry
	ExpireSweep(ctx context.Context, now time.Time) (int64, error)
}

// MongoFeedStore implements FeedStore on the feed_items collection
type MongoFeedStore struct {
	collection *mongo.Collection
}

// NewMongoFeedStore creates a feed store backed by MongoDB
func NewMongoFeedStore(db *MongoDB) *MongoFeedStore {
	return &MongoFeedStore{collection: db.Collection(CollectionFeedItems)}
}

// Insert writes the item plus its actions as one document. The embedded
// actions make the multi-row write atomic without a transaction; the unique
// index on (userId, sourceId) turns a concurrent duplicate into
// ErrDuplicateFeedItem instead of a second item.
func (s *MongoFeedStore) Insert(ctx context.Context, item *models.FeedItem) error {
	_, err := s.collection.InsertOne(ctx, item)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateFeedItem
		}
		return fmt.Errorf("failed to insert feed item: %w", err)
	}
	return nil
}

// ExistingSourceIDs loads only the sourceId field for the user's items
func (s *MongoFeedStore) ExistingSourceIDs(ctx context.Context, userID string) (map[string]bool, error) {
	cursor, err := s.collection.Find(
		ctx,
		bson.M{"userId": userID},
		options.Find().SetProjection(bson.M{"sourceId": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed source ids: %w", err)
	}
	defer cursor.Close(ctx)

	ids := make(map[string]bool)
	for cursor.Next(ctx) {
		var doc struct {
			SourceID string `bson:"sourceId"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode feed source id: %w", err)
		}
		ids[doc.SourceID] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("feed source id cursor error: %w", err)
	}
	return ids, nil
}

// UpdateStatus sets the status and snooze fields. The filter includes userId
// so users can only touch their own items, and excludes EXPIRED items so a
// swept item can never be revived.
func (s *MongoFeedStore) UpdateStatus(ctx context.Context, userID string, itemID primitive.ObjectID, status models.FeedStatus, snoozeUntil *time.Time) error {
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}
	update := bson.M{"$set": set}
	if status == models.StatusSnoozed {
		set["snoozeUntil"] = snoozeUntil
	} else {
		update["$unset"] = bson.M{"snoozeUntil": ""}
	}

	filter := bson.M{
		"_id":    itemID,
		"userId": userID,
		"status": bson.M{"$ne": models.StatusExpired},
	}
	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update feed item status: %w", err)
	}
	if result.MatchedCount == 0 {
		// Distinguish "no such item" from "item exists but is expired"
		if s.collection.FindOne(ctx, bson.M{"_id": itemID, "userId": userID}).Err() == nil {
			return ErrItemExpired
		}
		return ErrNotFound
	}
	return nil
}

// AppendInteraction is append-only: interactions are never updated or removed
func (s *MongoFeedStore) AppendInteraction(ctx context.Context, userID string, itemID primitive.ObjectID, interaction models.Interaction) error {
	result, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": itemID, "userId": userID},
		bson.M{"$push": bson.M{"interactions": interaction}},
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActive returns NEW items plus SNOOZED items whose snooze has elapsed,
// ordered by priority rank then event time ascending. Ordering happens in
// the query, before skip/limit, so pagination never splits a priority band
// incorrectly.
func (s *MongoFeedStore) ListActive(ctx context.Context, userID string, opts models.FeedListOptions) ([]models.FeedItem, error) {
	now := time.Now()

	statusFilter := bson.A{
		bson.M{"status": models.StatusNew},
		bson.M{
			"status":      models.StatusSnoozed,
			"snoozeUntil": bson.M{"$lte": now},
		},
	}
	query := bson.M{
		"userId": userID,
		"$or":    statusFilter,
	}
	if opts.IncludeExpired {
		query = bson.M{
			"userId": userID,
			"$or": append(statusFilter,
				bson.M{"status": models.StatusExpired}),
		}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "priorityRank", Value: 1}, {Key: "timestamp", Value: 1}}).
		SetSkip(opts.Offset)
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}

	cursor, err := s.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find active feed items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []models.FeedItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode feed items: %w", err)
	}
	return items, nil
}

// ExpireSweep bulk-transitions items past their expiry. The status filter
// excludes already-EXPIRED docs, making repeated sweeps idempotent.
func (s *MongoFeedStore) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.collection.UpdateMany(
		ctx,
		bson.M{
			"status":    bson.M{"$ne": models.StatusExpired},
			"expiresAt": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{
			"status":    models.StatusExpired,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to run expiry sweep: %w", err)
	}
	return result.ModifiedCount, nil
}

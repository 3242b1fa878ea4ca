package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmbeddingDimensions is the fixed vector size produced by the embedding
// provider. Every stored embedding and every query embedding has this length.
const EmbeddingDimensions = 1536

// ContextSource identifies the external system a context entry came from
type ContextSource string

const (
	ContextSourceCalendar ContextSource = "calendar"
	ContextSourceMail     ContextSource = "mail"
	ContextSourceProfile  ContextSource = "profile"
)

// ProfileSourceID is the fixed sourceId used for singleton sources like the
// user profile, which has no external identifier of its own.
const ProfileSourceID = "profile"

// ContextEntry is one normalized, embedded fact about a user.
// The triple (userId, source, sourceId) is unique: re-ingesting the same
// fact replaces content/embedding in place instead of creating a duplicate.
type ContextEntry struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   string             `bson:"userId" json:"user_id"`
	Source   ContextSource      `bson:"source" json:"source"`
	SourceID string             `bson:"sourceId" json:"source_id"`

	// Content is the plain-text rendering used both for embedding and for
	// display/citation.
	Content   string    `bson:"content" json:"content"`
	Embedding []float64 `bson:"embedding" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// CompositeKey returns the source-scoped key used to deduplicate feed items
// generated from this entry (FeedItem.SourceID).
func (e *ContextEntry) CompositeKey() string {
	return string(e.Source) + "-" + e.ID.Hex()
}

// ScoredEntry pairs a context entry with a retrieval score
type ScoredEntry struct {
	Entry ContextEntry `json:"entry"`
	Score float64      `json:"score"`
}

// RelevantContext is the result of blended semantic + recency retrieval
type RelevantContext struct {
	Semantic []ScoredEntry `json:"semantic"`
	Recent   []ScoredEntry `json:"recent"`
	Combined []ScoredEntry `json:"combined"`
}

// ContextFilter narrows ListByUser results
type ContextFilter struct {
	Source ContextSource // empty means all sources
	Limit  int64         // 0 means no limit
}

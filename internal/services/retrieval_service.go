package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"daybrief/internal/database"
	"daybrief/internal/models"
)

// DefaultSemanticWeight is how much blended retrieval favors semantic
// similarity over recency.
const DefaultSemanticWeight = 0.7

// RetrievalService ranks context entries for a query by blending embedding
// similarity with recency. The corpus per user is small enough that a full
// scan with in-process cosine scoring beats maintaining a vector index.
type RetrievalService struct {
	store    database.ContextStore
	embedder Embedder
}

// NewRetrievalService creates the retrieval ranker
func NewRetrievalService(store database.ContextStore, embedder Embedder) *RetrievalService {
	return &RetrievalService{
		store:    store,
		embedder: embedder,
	}
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns ErrZeroVector when either magnitude is zero, since the cosine is
// undefined there.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// SearchBySimilarity embeds the query and ranks the user's entries by cosine
// similarity, highest first. A query embedding with zero magnitude is an
// error; entries whose stored embedding has zero magnitude are skipped
// rather than failing the whole search.
func (s *RetrievalService) SearchBySimilarity(ctx context.Context, userID, query string, limit int) ([]models.ScoredEntry, error) {
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	entries, err := s.store.ListByUser(ctx, userID, models.ContextFilter{})
	if err != nil {
		return nil, err
	}

	return rankBySimilarity(queryVector, entries, limit)
}

func rankBySimilarity(queryVector []float64, entries []models.ContextEntry, limit int) ([]models.ScoredEntry, error) {
	var queryNorm float64
	for _, v := range queryVector {
		queryNorm += v * v
	}
	if queryNorm == 0 {
		return nil, fmt.Errorf("query embedding: %w", ErrZeroVector)
	}

	scored := make([]models.ScoredEntry, 0, len(entries))
	for _, entry := range entries {
		score, err := CosineSimilarity(queryVector, entry.Embedding)
		if err == ErrZeroVector {
			continue
		}
		if err != nil {
			return nil, err
		}
		scored = append(scored, models.ScoredEntry{Entry: entry, Score: score})
	}

	sortScoredDesc(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// RecentContext returns entries created within the window, newest-first,
// scored by list position: the newest gets 1.0 and each following entry
// steps down by 1/limit.
func (s *RetrievalService) RecentContext(ctx context.Context, userID string, window time.Duration, limit int) ([]models.ScoredEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: recent limit must be positive", ErrValidation)
	}

	entries, err := s.store.ListSince(ctx, userID, time.Now().Add(-window), int64(limit))
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredEntry, 0, len(entries))
	for i, entry := range entries {
		scored = append(scored, models.ScoredEntry{
			Entry: entry,
			Score: 1.0 - float64(i)/float64(limit),
		})
	}
	return scored, nil
}

// RelevantContext blends semantic and recency retrieval into one ranked
// list. Semantic scores are weighted by semanticWeight and recency scores by
// its complement; entries appearing in both lists keep only their semantic
// contribution.
func (s *RetrievalService) RelevantContext(ctx context.Context, userID, query string, semanticLimit int, recentWindow time.Duration, recentLimit int, semanticWeight float64) (*models.RelevantContext, error) {
	if semanticWeight < 0 || semanticWeight > 1 {
		return nil, fmt.Errorf("%w: semantic weight must be in [0,1]", ErrValidation)
	}

	semantic, err := s.SearchBySimilarity(ctx, userID, query, semanticLimit)
	if err != nil {
		return nil, err
	}

	recent, err := s.RecentContext(ctx, userID, recentWindow, recentLimit)
	if err != nil {
		return nil, err
	}

	combined := make([]models.ScoredEntry, 0, len(semantic)+len(recent))
	seen := make(map[string]bool, len(semantic))
	for _, se := range semantic {
		seen[se.Entry.ID.Hex()] = true
		combined = append(combined, models.ScoredEntry{
			Entry: se.Entry,
			Score: se.Score * semanticWeight,
		})
	}
	for _, re := range recent {
		if seen[re.Entry.ID.Hex()] {
			continue
		}
		combined = append(combined, models.ScoredEntry{
			Entry: re.Entry,
			Score: re.Score * (1 - semanticWeight),
		})
	}

	sortScoredDesc(combined)

	return &models.RelevantContext{
		Semantic: semantic,
		Recent:   recent,
		Combined: combined,
	}, nil
}

// sortScoredDesc orders by score descending, breaking ties newer-first so
// the ordering is deterministic.
func sortScoredDesc(scored []models.ScoredEntry) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entry.CreatedAt.After(scored[j].Entry.CreatedAt)
	})
}

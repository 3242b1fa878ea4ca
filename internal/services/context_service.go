package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"daybrief/internal/database"
	"daybrief/internal/models"
)

// Embedder produces fixed-dimension vectors for text. Satisfied by
// ai.EmbeddingClient in production and by stubs in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ContextService ingests normalized facts into the context store. Every
// write embeds the content first so the entry is immediately retrievable.
type ContextService struct {
	store    database.ContextStore
	embedder Embedder
}

// NewContextService creates the context ingestion service
func NewContextService(store database.ContextStore, embedder Embedder) *ContextService {
	return &ContextService{
		store:    store,
		embedder: embedder,
	}
}

// UpsertContext embeds content and writes the entry keyed by
// (userID, source, sourceID). Re-ingesting the same key replaces the entry
// in place; the embedding is always recomputed so it never drifts from the
// content it indexes.
func (s *ContextService) UpsertContext(ctx context.Context, userID string, source models.ContextSource, sourceID, content string) (*models.ContextEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id is required", ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	switch source {
	case models.ContextSourceCalendar, models.ContextSourceMail, models.ContextSourceProfile:
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrValidation, source)
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to embed context content: %w", err)
	}

	entry, err := s.store.Upsert(ctx, userID, source, sourceID, content, embedding)
	if err != nil {
		return nil, err
	}

	log.Printf("📥 [CONTEXT] Upserted %s/%s for user %s", source, sourceID, userID)
	return entry, nil
}

// UpsertProfile stores the user's single profile entry under the fixed
// profile source id.
func (s *ContextService) UpsertProfile(ctx context.Context, userID, content string) (*models.ContextEntry, error) {
	return s.UpsertContext(ctx, userID, models.ContextSourceProfile, models.ProfileSourceID, content)
}

// ListByUser returns the user's entries newest-first
func (s *ContextService) ListByUser(ctx context.Context, userID string, filter models.ContextFilter) ([]models.ContextEntry, error) {
	return s.store.ListByUser(ctx, userID, filter)
}

// DeleteBySource removes all of the user's entries for one source, used when
// a connector account is unlinked.
func (s *ContextService) DeleteBySource(ctx context.Context, userID string, source models.ContextSource) (int64, error) {
	deleted, err := s.store.DeleteBySource(ctx, userID, source)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("🗑️ [CONTEXT] Deleted %d %s entries for user %s", deleted, source, userID)
	}
	return deleted, nil
}

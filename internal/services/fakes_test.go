package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"daybrief/internal/ai"
	"daybrief/internal/database"
	"daybrief/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeContextStore is an in-memory database.ContextStore
type fakeContextStore struct {
	entries []models.ContextEntry
}

func (f *fakeContextStore) add(userID string, source models.ContextSource, sourceID, content string, embedding []float64, createdAt time.Time) models.ContextEntry {
	entry := models.ContextEntry{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Source:    source,
		SourceID:  sourceID,
		Content:   content,
		Embedding: embedding,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	f.entries = append(f.entries, entry)
	return entry
}

func (f *fakeContextStore) Upsert(ctx context.Context, userID string, source models.ContextSource, sourceID, content string, embedding []float64) (*models.ContextEntry, error) {
	now := time.Now()
	for i := range f.entries {
		e := &f.entries[i]
		if e.UserID == userID && e.Source == source && e.SourceID == sourceID {
			e.Content = content
			e.Embedding = embedding
			e.UpdatedAt = now
			return e, nil
		}
	}
	entry := f.add(userID, source, sourceID, content, embedding, now)
	return &entry, nil
}

func (f *fakeContextStore) ListByUser(ctx context.Context, userID string, filter models.ContextFilter) ([]models.ContextEntry, error) {
	var out []models.ContextEntry
	for _, e := range f.entries {
		if e.UserID != userID {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeContextStore) ListSince(ctx context.Context, userID string, since time.Time, limit int64) ([]models.ContextEntry, error) {
	var out []models.ContextEntry
	for _, e := range f.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContextStore) DeleteBySource(ctx context.Context, userID string, source models.ContextSource) (int64, error) {
	var kept []models.ContextEntry
	var deleted int64
	for _, e := range f.entries {
		if e.UserID == userID && e.Source == source {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

// fakeFeedStore is an in-memory database.FeedStore
type fakeFeedStore struct {
	items []models.FeedItem
}

func (f *fakeFeedStore) Insert(ctx context.Context, item *models.FeedItem) error {
	for _, existing := range f.items {
		if existing.UserID == item.UserID && existing.SourceID == item.SourceID {
			return database.ErrDuplicateFeedItem
		}
	}
	item.ID = primitive.NewObjectID()
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeFeedStore) ExistingSourceIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids := make(map[string]bool)
	for _, item := range f.items {
		if item.UserID == userID {
			ids[item.SourceID] = true
		}
	}
	return ids, nil
}

func (f *fakeFeedStore) UpdateStatus(ctx context.Context, userID string, itemID primitive.ObjectID, status models.FeedStatus, snoozeUntil *time.Time) error {
	for i := range f.items {
		item := &f.items[i]
		if item.ID == itemID && item.UserID == userID {
			if item.Status == models.StatusExpired {
				return database.ErrItemExpired
			}
			item.Status = status
			item.SnoozeUntil = snoozeUntil
			item.UpdatedAt = time.Now()
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeFeedStore) AppendInteraction(ctx context.Context, userID string, itemID primitive.ObjectID, interaction models.Interaction) error {
	for i := range f.items {
		item := &f.items[i]
		if item.ID == itemID && item.UserID == userID {
			item.Interactions = append(item.Interactions, interaction)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeFeedStore) ListActive(ctx context.Context, userID string, opts models.FeedListOptions) ([]models.FeedItem, error) {
	now := time.Now()
	var out []models.FeedItem
	for _, item := range f.items {
		if item.UserID != userID {
			continue
		}
		visible := item.Status == models.StatusNew ||
			(item.Status == models.StatusSnoozed && item.SnoozeUntil != nil && !item.SnoozeUntil.After(now)) ||
			(opts.IncludeExpired && item.Status == models.StatusExpired)
		if visible {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := models.PriorityRank[out[i].Priority], models.PriorityRank[out[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if opts.Offset > 0 && int64(len(out)) > opts.Offset {
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeFeedStore) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for i := range f.items {
		item := &f.items[i]
		if item.Status != models.StatusExpired && item.ExpiresAt.Before(now) {
			item.Status = models.StatusExpired
			count++
		}
	}
	return count, nil
}

// stubEmbedder returns canned vectors by exact text match
type stubEmbedder struct {
	vectors map[string][]float64
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no stub vector for %q", text)
}

// stubCompleter replays scripted responses in order and records every call
type stubCompleter struct {
	responses []*ai.ChatResponse
	calls     []stubCall
}

type stubCall struct {
	messages    []ai.Message
	toolSchemas []map[string]interface{}
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, messages []ai.Message, toolSchemas []map[string]interface{}) (*ai.ChatResponse, error) {
	s.calls = append(s.calls, stubCall{messages: messages, toolSchemas: toolSchemas})
	if len(s.calls) > len(s.responses) {
		return nil, fmt.Errorf("stub completer exhausted after %d calls", len(s.responses))
	}
	return s.responses[len(s.calls)-1], nil
}

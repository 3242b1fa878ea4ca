package services

import (
	"context"
	"errors"
	"testing"

	"daybrief/internal/models"
)

func TestUpsertContextValidation(t *testing.T) {
	svc := NewContextService(&fakeContextStore{}, &stubEmbedder{})

	tests := []struct {
		name     string
		userID   string
		source   models.ContextSource
		sourceID string
		content  string
	}{
		{"missing user", "", models.ContextSourceMail, "m1", "hello"},
		{"missing source id", "u1", models.ContextSourceMail, "", "hello"},
		{"blank content", "u1", models.ContextSourceMail, "m1", "   "},
		{"unknown source", "u1", "slack", "m1", "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertContext(context.Background(), tt.userID, tt.source, tt.sourceID, tt.content)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestUpsertContextIsIdempotent(t *testing.T) {
	store := &fakeContextStore{}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"Meeting at 9": {1, 0},
		"Meeting at 10": {0, 1},
	}}
	svc := NewContextService(store, embedder)

	first, err := svc.UpsertContext(context.Background(), "u1", models.ContextSourceCalendar, "evt-1", "Meeting at 9")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	second, err := svc.UpsertContext(context.Background(), "u1", models.ContextSourceCalendar, "evt-1", "Meeting at 10")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected the same entry to be updated, got ids %s and %s", first.ID.Hex(), second.ID.Hex())
	}
	if len(store.entries) != 1 {
		t.Fatalf("Expected 1 stored entry, got %d", len(store.entries))
	}
	if store.entries[0].Content != "Meeting at 10" {
		t.Errorf("Expected content replaced, got %q", store.entries[0].Content)
	}
	if store.entries[0].Embedding[1] != 1 {
		t.Errorf("Expected embedding recomputed for new content, got %v", store.entries[0].Embedding)
	}
}

func TestDeleteBySource(t *testing.T) {
	store := &fakeContextStore{}
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"a": {1}, "b": {1}, "c": {1},
	}}
	svc := NewContextService(store, embedder)

	ctx := context.Background()
	if _, err := svc.UpsertContext(ctx, "u1", models.ContextSourceMail, "m1", "a"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := svc.UpsertContext(ctx, "u1", models.ContextSourceMail, "m2", "b"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := svc.UpsertContext(ctx, "u1", models.ContextSourceCalendar, "c1", "c"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	deleted, err := svc.DeleteBySource(ctx, "u1", models.ContextSourceMail)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted)
	}

	remaining, err := svc.ListByUser(ctx, "u1", models.ContextFilter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Source != models.ContextSourceCalendar {
		t.Errorf("Expected only the calendar entry to remain, got %+v", remaining)
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"daybrief/internal/database"
	"daybrief/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedFeedItem(store *fakeFeedStore, userID string, priority models.FeedPriority, status models.FeedStatus, timestamp, expiresAt time.Time) models.FeedItem {
	item := models.FeedItem{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      models.FeedTypeNotification,
		Priority:  priority,
		Timestamp: timestamp,
		ExpiresAt: expiresAt,
		Title:     "item",
		SourceID:  primitive.NewObjectID().Hex(),
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	store.items = append(store.items, item)
	return item
}

func TestUpdateStatusTransitions(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()
	item := seedFeedItem(store, "u1", models.PriorityMedium, models.StatusNew, now, now.Add(time.Hour))

	ctx := context.Background()
	future := now.Add(2 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name        string
		status      models.FeedStatus
		snoozeUntil *time.Time
		wantErr     error
	}{
		{"viewed", models.StatusViewed, nil, nil},
		{"snoozed with wake time", models.StatusSnoozed, &future, nil},
		{"snoozed without wake time", models.StatusSnoozed, nil, ErrValidation},
		{"snoozed into the past", models.StatusSnoozed, &past, ErrValidation},
		{"wake time on non-snooze", models.StatusDismissed, &future, ErrValidation},
		{"expired is sweep-only", models.StatusExpired, nil, ErrValidation},
		{"new is not a target", models.StatusNew, nil, ErrValidation},
		{"completed", models.StatusCompleted, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpdateStatus(ctx, "u1", item.ID.Hex(), tt.status, tt.snoozeUntil)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestUpdateStatusScopedToUser(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()
	item := seedFeedItem(store, "u1", models.PriorityMedium, models.StatusNew, now, now.Add(time.Hour))

	err := svc.UpdateStatus(context.Background(), "u2", item.ID.Hex(), models.StatusViewed, nil)
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user's item, got: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), "u1", "not-an-id", models.StatusViewed, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for malformed id, got: %v", err)
	}
}

func TestRecordInteraction(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()
	item := seedFeedItem(store, "u1", models.PriorityMedium, models.StatusNew, now, now.Add(time.Hour))

	// Failed interactions are recorded just like successful ones
	interaction, err := svc.RecordInteraction(context.Background(), "u1", item.ID.Hex(), "action-1", models.ActionNavigate, models.OutcomeFailure, 250, "target unreachable")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if interaction.ID == "" {
		t.Error("Expected interaction to get a generated id")
	}
	if len(store.items[0].Interactions) != 1 {
		t.Fatalf("Expected 1 interaction appended, got %d", len(store.items[0].Interactions))
	}
	if store.items[0].Interactions[0].Error != "target unreachable" {
		t.Errorf("Expected error preserved, got %q", store.items[0].Interactions[0].Error)
	}

	if _, err := svc.RecordInteraction(context.Background(), "u1", item.ID.Hex(), "action-1", models.ActionNavigate, "shrugged", 0, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown outcome, got: %v", err)
	}
}

func TestListActiveOrdering(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()

	seedFeedItem(store, "u1", models.PriorityLow, models.StatusNew, now.Add(1*time.Hour), now.Add(48*time.Hour))
	urgentLater := seedFeedItem(store, "u1", models.PriorityUrgent, models.StatusNew, now.Add(3*time.Hour), now.Add(48*time.Hour))
	urgentSooner := seedFeedItem(store, "u1", models.PriorityUrgent, models.StatusNew, now.Add(2*time.Hour), now.Add(48*time.Hour))
	seedFeedItem(store, "u1", models.PriorityHigh, models.StatusDismissed, now, now.Add(48*time.Hour))

	wake := now.Add(-time.Minute)
	seedFeedItem(store, "u1", models.PriorityHigh, models.StatusSnoozed, now.Add(30*time.Minute), now.Add(48*time.Hour))
	store.items[len(store.items)-1].SnoozeUntil = &wake

	items, err := svc.ListActive(context.Background(), "u1", models.FeedListOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("Expected 4 visible items, got %d", len(items))
	}

	// Urgent items first, ordered by event time; then high, then low
	if items[0].ID != urgentSooner.ID {
		t.Errorf("Expected the sooner urgent item first")
	}
	if items[1].ID != urgentLater.ID {
		t.Errorf("Expected the later urgent item second")
	}
	if items[2].Priority != models.PriorityHigh {
		t.Errorf("Expected the woken snoozed item third, got %s", items[2].Priority)
	}
	if items[3].Priority != models.PriorityLow {
		t.Errorf("Expected the low item last, got %s", items[3].Priority)
	}
}

func TestListActivePaginatesAfterPriorityOrdering(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()

	// The low item has the earlier event time; priority must still win
	// the first page.
	low := seedFeedItem(store, "u1", models.PriorityLow, models.StatusNew, now.Add(1*time.Hour), now.Add(48*time.Hour))
	urgent := seedFeedItem(store, "u1", models.PriorityUrgent, models.StatusNew, now.Add(2*time.Hour), now.Add(48*time.Hour))

	page, err := svc.ListActive(context.Background(), "u1", models.FeedListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(page) != 1 || page[0].ID != urgent.ID {
		t.Fatalf("Expected the urgent item on page 1, got %+v", page)
	}

	page, err = svc.ListActive(context.Background(), "u1", models.FeedListOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(page) != 1 || page[0].ID != low.ID {
		t.Fatalf("Expected the low item on page 2, got %+v", page)
	}
}

func TestExpiredIsTerminal(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()
	item := seedFeedItem(store, "u1", models.PriorityMedium, models.StatusExpired, now.Add(-5*time.Hour), now.Add(-time.Hour))

	if err := svc.UpdateStatus(context.Background(), "u1", item.ID.Hex(), models.StatusViewed, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation reviving an expired item, got: %v", err)
	}

	wake := now.Add(time.Hour)
	if err := svc.UpdateStatus(context.Background(), "u1", item.ID.Hex(), models.StatusSnoozed, &wake); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation snoozing an expired item, got: %v", err)
	}

	if store.items[0].Status != models.StatusExpired {
		t.Errorf("Expected item to stay EXPIRED, got %s", store.items[0].Status)
	}
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	store := &fakeFeedStore{}
	svc := NewFeedService(store, nil)
	now := time.Now()

	seedFeedItem(store, "u1", models.PriorityMedium, models.StatusNew, now.Add(-5*time.Hour), now.Add(-time.Hour))
	seedFeedItem(store, "u1", models.PriorityMedium, models.StatusViewed, now.Add(-5*time.Hour), now.Add(-time.Minute))
	seedFeedItem(store, "u1", models.PriorityMedium, models.StatusNew, now, now.Add(time.Hour))

	expired, err := svc.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if expired != 2 {
		t.Errorf("Expected 2 expired, got %d", expired)
	}

	expired, err = svc.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if expired != 0 {
		t.Errorf("Expected repeat sweep to be a no-op, got %d", expired)
	}

	if store.items[2].Status != models.StatusNew {
		t.Errorf("Expected unexpired item untouched, got %s", store.items[2].Status)
	}
}

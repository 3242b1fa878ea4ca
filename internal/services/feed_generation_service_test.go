package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"daybrief/internal/ai"
	"daybrief/internal/models"
)

func generationFixture(entries []models.ContextEntry, responses []*ai.ChatResponse) (*FeedGenerationService, *fakeContextStore, *fakeFeedStore, *stubCompleter) {
	contextStore := &fakeContextStore{entries: entries}
	feedStore := &fakeFeedStore{}
	completer := &stubCompleter{responses: responses}
	svc := NewFeedGenerationService(contextStore, feedStore, completer, nil)
	return svc, contextStore, feedStore, completer
}

func calendarEntry(userID, sourceID, content string, createdAt time.Time) models.ContextEntry {
	store := &fakeContextStore{}
	return store.add(userID, models.ContextSourceCalendar, sourceID, content, []float64{1}, createdAt)
}

func TestGenerateCreatesItemsFromContext(t *testing.T) {
	entry := calendarEntry("u1", "evt-1", "Event: Standup\nStart: 2025-10-12T09:00", time.Now())

	response := &ai.ChatResponse{Content: "```json\n" + `[
		{
			"context_index": 1,
			"type": "calendar-event",
			"priority": "high",
			"title": "Standup at 9:00",
			"event_time": "2025-10-12T09:00:00Z",
			"actions": [{"label": "Open calendar", "type": "navigate"}]
		}
	]` + "\n```"}
	svc, _, feedStore, _ := generationFixture([]models.ContextEntry{entry}, []*ai.ChatResponse{response})

	result, err := svc.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Generated != 1 || result.Skipped != 0 || result.Errors != 0 {
		t.Fatalf("Expected 1/0/0, got %d/%d/%d", result.Generated, result.Skipped, result.Errors)
	}

	if len(feedStore.items) != 1 {
		t.Fatalf("Expected 1 feed item, got %d", len(feedStore.items))
	}
	item := feedStore.items[0]
	if item.Type != models.FeedTypeCalendarEvent {
		t.Errorf("Expected calendar-event type, got %s", item.Type)
	}
	if item.Priority != models.PriorityHigh {
		t.Errorf("Expected high priority, got %s", item.Priority)
	}
	if item.Status != models.StatusNew {
		t.Errorf("Expected NEW status, got %s", item.Status)
	}
	if item.SourceID != entry.CompositeKey() {
		t.Errorf("Expected source id %q, got %q", entry.CompositeKey(), item.SourceID)
	}

	eventTime := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	if !item.Timestamp.Equal(eventTime) {
		t.Errorf("Expected timestamp %v, got %v", eventTime, item.Timestamp)
	}
	if !item.ExpiresAt.Equal(eventTime.Add(3 * time.Hour)) {
		t.Errorf("Expected expiry 3h after the event, got %v", item.ExpiresAt)
	}

	if len(item.Actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(item.Actions))
	}
	if item.Actions[0].Type != models.ActionNavigate {
		t.Errorf("Expected navigate action, got %s", item.Actions[0].Type)
	}
	if item.Actions[0].ID == "" {
		t.Error("Expected action to get a generated id")
	}
}

func TestGenerateEventExpiryFollowsItemType(t *testing.T) {
	store := &fakeContextStore{}
	entry := store.add("u1", models.ContextSourceMail, "msg-1", "Invite: Product demo at 14:00", []float64{1}, time.Now())

	// A meeting invite arriving by mail still produces a calendar-event
	// item, and its expiry tracks the event time.
	response := &ai.ChatResponse{Content: `[{
		"context_index": 1,
		"type": "calendar-event",
		"priority": "medium",
		"title": "Product demo",
		"event_time": "2025-10-12T14:00:00Z"
	}]`}
	svc, _, feedStore, _ := generationFixture([]models.ContextEntry{entry}, []*ai.ChatResponse{response})

	if _, err := svc.Generate(context.Background(), "u1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(feedStore.items) != 1 {
		t.Fatalf("Expected 1 feed item, got %d", len(feedStore.items))
	}

	item := feedStore.items[0]
	if item.Type != models.FeedTypeCalendarEvent {
		t.Fatalf("Expected calendar-event type, got %s", item.Type)
	}
	eventTime := time.Date(2025, 10, 12, 14, 0, 0, 0, time.UTC)
	if !item.ExpiresAt.Equal(eventTime.Add(3 * time.Hour)) {
		t.Errorf("Expected expiry 3h after the event, got %v", item.ExpiresAt)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	entry := calendarEntry("u1", "evt-1", "Event: Standup", time.Now())

	response := func() *ai.ChatResponse {
		return &ai.ChatResponse{Content: `[{"context_index": 1, "type": "calendar-event", "priority": "medium", "title": "Standup"}]`}
	}
	svc, _, feedStore, completer := generationFixture([]models.ContextEntry{entry}, []*ai.ChatResponse{response(), response()})

	first, err := svc.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first.Generated != 1 {
		t.Fatalf("Expected 1 generated on first run, got %d", first.Generated)
	}

	second, err := svc.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if second.Generated != 0 || second.Skipped != 1 {
		t.Errorf("Expected second run to skip the entry, got %d generated, %d skipped", second.Generated, second.Skipped)
	}
	if len(feedStore.items) != 1 {
		t.Errorf("Expected 1 feed item after both runs, got %d", len(feedStore.items))
	}

	// The second run short-circuits before calling the model
	if len(completer.calls) != 1 {
		t.Errorf("Expected 1 completion call across both runs, got %d", len(completer.calls))
	}
}

func TestGenerateEnumFallbacks(t *testing.T) {
	entry := calendarEntry("u1", "evt-1", "Event: Standup", time.Now())

	response := &ai.ChatResponse{Content: `[{"context_index": 1, "type": "hologram", "priority": "mega", "title": "Standup"}]`}
	svc, _, feedStore, _ := generationFixture([]models.ContextEntry{entry}, []*ai.ChatResponse{response})

	result, err := svc.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Generated != 1 {
		t.Fatalf("Expected the item to be created despite unknown enums, got %d generated", result.Generated)
	}

	item := feedStore.items[0]
	if item.Type != models.FeedTypeCalendarEvent {
		t.Errorf("Expected type inferred from calendar source, got %s", item.Type)
	}
	if item.Priority != models.PriorityMedium {
		t.Errorf("Expected medium priority fallback, got %s", item.Priority)
	}
}

func TestGenerateUnparseableResponse(t *testing.T) {
	entries := []models.ContextEntry{
		calendarEntry("u1", "evt-1", "Event: Standup", time.Now()),
		calendarEntry("u1", "evt-2", "Event: Review", time.Now().Add(-time.Hour)),
	}

	response := &ai.ChatResponse{Content: "Sure! Here are your feed items."}
	svc, _, feedStore, _ := generationFixture(entries, []*ai.ChatResponse{response})

	result, err := svc.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no hard error on parse failure, got: %v", err)
	}
	if result.Generated != 0 || result.Skipped != 2 || result.Errors != 1 {
		t.Errorf("Expected 0/2/1, got %d/%d/%d", result.Generated, result.Skipped, result.Errors)
	}
	if len(feedStore.items) != 0 {
		t.Errorf("Expected no items written, got %d", len(feedStore.items))
	}
}

func TestGenerateInvalidContextIndex(t *testing.T) {
	entry := calendarEntry("u1", "evt-1", "Event: Standup", time.Now())

	response := &ai.ChatResponse{Content: `[
		{"context_index": 7, "type": "calendar-event", "priority": "low", "title": "Ghost"},
		{"context_index": 1, "type": "calendar-event", "priority": "low", "title": "Standup"}
	]`}
	svc, _, feedStore, _ := generationFixture([]models.ContextEntry{entry}, []*ai.ChatResponse{response})

	result, err := svc.Generate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Generated != 1 || result.Errors != 1 {
		t.Errorf("Expected 1 generated and 1 error, got %d/%d", result.Generated, result.Errors)
	}
	if len(feedStore.items) != 1 || feedStore.items[0].Title != "Standup" {
		t.Errorf("Expected only the valid item, got %+v", feedStore.items)
	}
}

func TestGenerateBatchLimit(t *testing.T) {
	var entries []models.ContextEntry
	for i := 0; i < generationBatchSize+5; i++ {
		entries = append(entries, calendarEntry("u1", fmt.Sprintf("evt-%d", i), fmt.Sprintf("Event %d", i), time.Now().Add(-time.Duration(i)*time.Minute)))
	}

	response := &ai.ChatResponse{Content: `[]`}
	svc, _, _, completer := generationFixture(entries, []*ai.ChatResponse{response})

	if _, err := svc.Generate(context.Background(), "u1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	prompt := completer.calls[0].messages[0].Content
	if want := fmt.Sprintf("%d. [calendar]", generationBatchSize); !strings.Contains(prompt, want) {
		t.Errorf("Expected prompt to include entry %d", generationBatchSize)
	}
	if unwanted := fmt.Sprintf("%d. [calendar]", generationBatchSize+1); strings.Contains(prompt, unwanted) {
		t.Errorf("Expected prompt to stop at the batch size")
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"daybrief/internal/ai"
	"daybrief/internal/database"
	"daybrief/internal/models"

	"github.com/google/uuid"
)

const (
	// generationBatchSize is how many of the newest context entries one
	// generation run considers.
	generationBatchSize = 20

	// generationExcerptLimit caps each entry's contribution to the prompt
	generationExcerptLimit = 800

	// calendarExpiryGrace keeps a calendar item visible past its event time
	calendarExpiryGrace = 3 * time.Hour

	// defaultExpiry is the lifetime of items with no event time
	defaultExpiry = 24 * time.Hour
)

// generatedItem is the shape each element of the model's JSON array must
// take. ContextIndex refers to the 1-based numbering used in the prompt.
type generatedItem struct {
	ContextIndex int               `json:"context_index"`
	Type         string            `json:"type"`
	Priority     string            `json:"priority"`
	Title        string            `json:"title"`
	Subtitle     string            `json:"subtitle"`
	Description  string            `json:"description"`
	EventTime    string            `json:"event_time"`
	Tags         []string          `json:"tags"`
	Actions      []generatedAction `json:"actions"`
}

type generatedAction struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

// FeedGenerationService turns fresh context entries into feed items via one
// batched completion per run. Runs are idempotent: every item carries its
// generating entry's composite key as SourceID, and entries that already
// produced an item are skipped before the model is ever called.
type FeedGenerationService struct {
	contextStore database.ContextStore
	feedStore    database.FeedStore
	completer    Completer
	metrics      *Metrics
}

// NewFeedGenerationService creates the feed synthesizer
func NewFeedGenerationService(contextStore database.ContextStore, feedStore database.FeedStore, completer Completer, metrics *Metrics) *FeedGenerationService {
	return &FeedGenerationService{
		contextStore: contextStore,
		feedStore:    feedStore,
		completer:    completer,
		metrics:      metrics,
	}
}

// Generate runs one batch for the user. Partial success is the normal
// outcome: the result counts generated, skipped, and errored candidates, and
// only infrastructure failures (store or completion unreachable) return an
// error.
func (s *FeedGenerationService) Generate(ctx context.Context, userID string) (*models.GenerateResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	entries, err := s.contextStore.ListByUser(ctx, userID, models.ContextFilter{Limit: generationBatchSize})
	if err != nil {
		return nil, fmt.Errorf("failed to load context entries: %w", err)
	}
	if len(entries) == 0 {
		return &models.GenerateResult{}, nil
	}

	existing, err := s.feedStore.ExistingSourceIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing feed keys: %w", err)
	}

	result := &models.GenerateResult{}
	fresh := make([]models.ContextEntry, 0, len(entries))
	for _, entry := range entries {
		if existing[entry.CompositeKey()] {
			result.Skipped++
			continue
		}
		fresh = append(fresh, entry)
	}
	if len(fresh) == 0 {
		log.Printf("📭 [FEED] Nothing new for user %s (%d already generated)", userID, result.Skipped)
		return result, nil
	}

	items, err := s.synthesize(ctx, fresh)
	if err != nil {
		// A response that cannot be parsed costs this batch nothing:
		// the entries stay fresh for the next run.
		log.Printf("⚠️ [FEED] Generation parse failed for user %s: %v", userID, err)
		result.Skipped += len(fresh)
		result.Errors++
		s.record(result)
		return result, nil
	}

	for _, item := range items {
		if item.ContextIndex < 1 || item.ContextIndex > len(fresh) {
			log.Printf("⚠️ [FEED] Generated item references unknown context index %d", item.ContextIndex)
			result.Errors++
			continue
		}
		entry := fresh[item.ContextIndex-1]

		feedItem := s.buildFeedItem(userID, entry, item)
		if err := s.feedStore.Insert(ctx, feedItem); err != nil {
			if err == database.ErrDuplicateFeedItem {
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("failed to insert feed item: %w", err)
		}
		result.Generated++
	}

	log.Printf("📬 [FEED] User %s: %d generated, %d skipped, %d errors", userID, result.Generated, result.Skipped, result.Errors)
	s.record(result)
	return result, nil
}

func (s *FeedGenerationService) record(result *models.GenerateResult) {
	if s.metrics != nil {
		s.metrics.RecordFeedGeneration(result.Generated, result.Skipped, result.Errors)
	}
}

// synthesize sends one completion for the whole batch and parses the JSON
// array out of the response, stripping a markdown code fence if the model
// wrapped its output in one.
func (s *FeedGenerationService) synthesize(ctx context.Context, entries []models.ContextEntry) ([]generatedItem, error) {
	var prompt strings.Builder
	prompt.WriteString("Create feed items for these context entries:\n\n")
	for i, entry := range entries {
		fmt.Fprintf(&prompt, "%d. [%s] %s\n", i+1, entry.Source, truncate(entry.Content, generationExcerptLimit))
	}

	resp, err := s.completer.Complete(ctx, generationSystemPrompt, []ai.Message{
		{Role: "user", Content: prompt.String()},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	raw := ai.ExtractJSON(resp.Content)
	var items []generatedItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}
	return items, nil
}

// buildFeedItem maps one generated item onto the persisted shape. Unknown
// enum values degrade to fallbacks instead of rejecting the item; each
// fallback is counted so drift in model output is visible.
func (s *FeedGenerationService) buildFeedItem(userID string, entry models.ContextEntry, item generatedItem) *models.FeedItem {
	now := time.Now()

	itemType, ok := models.ParseFeedItemType(item.Type)
	if !ok {
		itemType = models.FeedTypeForSource(entry.Source)
		s.recordFallback("type")
	}
	priority, ok := models.ParseFeedPriority(item.Priority)
	if !ok {
		s.recordFallback("priority")
	}

	timestamp := now
	var eventTime *time.Time
	if item.EventTime != "" {
		if parsed, err := time.Parse(time.RFC3339, item.EventTime); err == nil {
			timestamp = parsed
			eventTime = &parsed
		}
	}

	// Calendar-typed items with a known event time outlive the event by a
	// grace period; everything else gets a day. The item's type decides,
	// not the originating source: a meeting invite arriving by mail is
	// still tied to its event time.
	expiresAt := now.Add(defaultExpiry)
	if itemType == models.FeedTypeCalendarEvent && eventTime != nil {
		expiresAt = eventTime.Add(calendarExpiryGrace)
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = truncate(entry.Content, 80)
	}

	actions := make([]models.Action, 0, len(item.Actions))
	for _, a := range item.Actions {
		if strings.TrimSpace(a.Label) == "" {
			continue
		}
		actionType, ok := models.ParseActionType(a.Type)
		if !ok {
			s.recordFallback("action_type")
		}
		actions = append(actions, models.Action{
			ID:      uuid.New().String(),
			Label:   a.Label,
			Type:    actionType,
			Enabled: true,
		})
	}

	return &models.FeedItem{
		UserID:       userID,
		Type:         itemType,
		Priority:     priority,
		PriorityRank: models.PriorityRank[priority],
		Timestamp:    timestamp,
		ExpiresAt:    expiresAt,
		Title:        title,
		Subtitle:     strings.TrimSpace(item.Subtitle),
		Description:  strings.TrimSpace(item.Description),
		Source:       models.FeedSource{Category: entry.Source},
		SourceID:     entry.CompositeKey(),
		Tags:         item.Tags,
		Status:       models.StatusNew,
		Actions:      actions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *FeedGenerationService) recordFallback(kind string) {
	if s.metrics != nil {
		s.metrics.RecordEnumFallback(kind)
	}
}

const generationSystemPrompt = `You turn a user's context entries into concise feed items.

Respond with ONLY a JSON array. Each element must be an object with:
- "context_index": the number of the entry the item is based on
- "type": one of calendar-event, email, task, reminder, notification, article, suggestion, alert, custom
- "priority": one of urgent, high, medium, low
- "title": short headline, at most 80 characters
- "subtitle": optional one-line detail
- "description": optional longer summary
- "event_time": RFC3339 timestamp when the entry refers to a scheduled moment, otherwise omit
- "tags": optional array of short lowercase tags
- "actions": optional array of {"label", "type"} suggested next steps, type one of navigate, api-call, modal, inline, ai-action, dismiss, snooze, complete, custom

Create at most one item per entry. Skip entries with nothing actionable or noteworthy.`

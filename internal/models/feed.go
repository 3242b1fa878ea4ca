package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedItemType categorizes what kind of attention unit a feed item is
type FeedItemType string

const (
	FeedTypeCalendarEvent FeedItemType = "calendar-event"
	FeedTypeEmail         FeedItemType = "email"
	FeedTypeTask          FeedItemType = "task"
	FeedTypeReminder      FeedItemType = "reminder"
	FeedTypeNotification  FeedItemType = "notification"
	FeedTypeArticle       FeedItemType = "article"
	FeedTypeSuggestion    FeedItemType = "suggestion"
	FeedTypeAlert         FeedItemType = "alert"
	FeedTypeCustom        FeedItemType = "custom"
)

// FeedPriority orders feed items for display
type FeedPriority string

const (
	PriorityUrgent FeedPriority = "urgent"
	PriorityHigh   FeedPriority = "high"
	PriorityMedium FeedPriority = "medium"
	PriorityLow    FeedPriority = "low"
)

// PriorityRank maps priorities to sortable ranks (urgent first)
var PriorityRank = map[FeedPriority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// FeedStatus is the lifecycle state of a feed item
type FeedStatus string

const (
	StatusNew       FeedStatus = "NEW"
	StatusViewed    FeedStatus = "VIEWED"
	StatusActed     FeedStatus = "ACTED"
	StatusDismissed FeedStatus = "DISMISSED"
	StatusSnoozed   FeedStatus = "SNOOZED"
	StatusCompleted FeedStatus = "COMPLETED"
	StatusExpired   FeedStatus = "EXPIRED"
)

// ActionType categorizes what happens when a feed action is triggered
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionAPICall  ActionType = "api-call"
	ActionModal    ActionType = "modal"
	ActionInline   ActionType = "inline"
	ActionAI       ActionType = "ai-action"
	ActionDismiss  ActionType = "dismiss"
	ActionSnooze   ActionType = "snooze"
	ActionComplete ActionType = "complete"
	ActionCustom   ActionType = "custom"
)

// InteractionOutcome records how an action attempt ended
type InteractionOutcome string

const (
	OutcomeSuccess   InteractionOutcome = "success"
	OutcomeFailure   InteractionOutcome = "failure"
	OutcomeCancelled InteractionOutcome = "cancelled"
)

// FeedSource describes where a feed item's underlying fact originated
type FeedSource struct {
	Category ContextSource `bson:"category" json:"category"`
	Link     string        `bson:"link,omitempty" json:"link,omitempty"`
	Account  string        `bson:"account,omitempty" json:"account,omitempty"`
}

// Action is a suggested next step attached to a feed item. Actions are
// created at synthesis time and immutable thereafter.
type Action struct {
	ID                  string         `bson:"id" json:"id"`
	Label               string         `bson:"label" json:"label"`
	Type                ActionType     `bson:"type" json:"type"`
	Style               string         `bson:"style,omitempty" json:"style,omitempty"`
	Config              map[string]any `bson:"config,omitempty" json:"config,omitempty"`
	Enabled             bool           `bson:"enabled" json:"enabled"`
	RequireConfirmation bool           `bson:"requireConfirmation" json:"require_confirmation"`
	Async               bool           `bson:"async" json:"async"`
}

// Interaction is an append-only record of a user acting on an action
type Interaction struct {
	ID         string             `bson:"id" json:"id"`
	ActionID   string             `bson:"actionId" json:"action_id"`
	ActionType ActionType         `bson:"actionType" json:"action_type"`
	Outcome    InteractionOutcome `bson:"outcome" json:"outcome"`
	DurationMs int64              `bson:"durationMs" json:"duration_ms"`
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// FeedItem is a synthesized, user-facing unit of attention derived from
// exactly one ContextEntry. SourceID carries the generating entry's
// composite key (source-contextId) and is unique per user, which is what
// makes regeneration idempotent.
type FeedItem struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID string             `bson:"userId" json:"user_id"`

	Type     FeedItemType `bson:"type" json:"type"`
	Priority FeedPriority `bson:"priority" json:"priority"`

	// PriorityRank is Priority denormalized to a sortable integer so the
	// store can order urgent-first inside the listing query, before
	// pagination is applied.
	PriorityRank int `bson:"priorityRank" json:"-"`

	// Timestamp is when the underlying event is relevant, not when the
	// item was created.
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expires_at"`

	Title       string `bson:"title" json:"title"`
	Subtitle    string `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	Source   FeedSource `bson:"source" json:"source"`
	SourceID string     `bson:"sourceId" json:"source_id"`

	Metadata   map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Tags       []string       `bson:"tags,omitempty" json:"tags,omitempty"`
	RelatedIDs []string       `bson:"relatedIds,omitempty" json:"related_ids,omitempty"`

	Status      FeedStatus `bson:"status" json:"status"`
	SnoozeUntil *time.Time `bson:"snoozeUntil,omitempty" json:"snooze_until,omitempty"`

	Actions      []Action      `bson:"actions,omitempty" json:"actions,omitempty"`
	Interactions []Interaction `bson:"interactions,omitempty" json:"interactions,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// ParseFeedItemType maps a model-supplied string onto the closed type
// enumeration. Returns false when the string is unrecognized so callers can
// count fallback occurrences; the fallback itself is chosen by the caller
// from the originating source.
func ParseFeedItemType(s string) (FeedItemType, bool) {
	switch FeedItemType(s) {
	case FeedTypeCalendarEvent, FeedTypeEmail, FeedTypeTask, FeedTypeReminder,
		FeedTypeNotification, FeedTypeArticle, FeedTypeSuggestion,
		FeedTypeAlert, FeedTypeCustom:
		return FeedItemType(s), true
	}
	return "", false
}

// FeedTypeForSource infers a feed item type from the originating context
// source, used as the fallback when the model returns an unknown type.
func FeedTypeForSource(source ContextSource) FeedItemType {
	switch source {
	case ContextSourceCalendar:
		return FeedTypeCalendarEvent
	case ContextSourceMail:
		return FeedTypeEmail
	default:
		return FeedTypeNotification
	}
}

// ParseFeedPriority maps a model-supplied string onto the priority
// enumeration. Returns (PriorityMedium, false) on unrecognized input.
func ParseFeedPriority(s string) (FeedPriority, bool) {
	switch FeedPriority(s) {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return FeedPriority(s), true
	}
	return PriorityMedium, false
}

// ParseActionType maps a model-supplied string onto the action type
// enumeration. Returns (ActionCustom, false) on unrecognized input.
func ParseActionType(s string) (ActionType, bool) {
	switch ActionType(s) {
	case ActionNavigate, ActionAPICall, ActionModal, ActionInline, ActionAI,
		ActionDismiss, ActionSnooze, ActionComplete, ActionCustom:
		return ActionType(s), true
	}
	return ActionCustom, false
}

// ValidStatusUpdate reports whether a caller-requested status is one the
// lifecycle manager accepts as a write target. EXPIRED is only ever set by
// the sweep, never by callers.
func ValidStatusUpdate(s FeedStatus) bool {
	switch s {
	case StatusViewed, StatusActed, StatusDismissed, StatusSnoozed, StatusCompleted:
		return true
	}
	return false
}

// FeedListOptions controls feed listing pagination and visibility
type FeedListOptions struct {
	Limit          int64 `json:"limit"`
	Offset         int64 `json:"offset"`
	IncludeExpired bool  `json:"include_expired"`
}

// GenerateResult reports the per-batch counters of one feed generation run.
// This is the one place where partial success is an expected, reportable
// outcome rather than a failure.
type GenerateResult struct {
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// AnswerResult is the output of the answer synthesizer
type AnswerResult struct {
	Answer    string       `json:"answer"`
	Sources   []SourceRef  `json:"sources"`
	ToolsUsed []ToolResult `json:"tools_used"`
}

// SourceRef is a citation-sized reference to a context entry used in a prompt
type SourceRef struct {
	ID      string        `json:"id"`
	Source  ContextSource `json:"source"`
	Excerpt string        `json:"excerpt"`
}

// ToolResult is the normalized outcome of one tool invocation. Expected
// provider failures land in Error as a structured string so the synthesis
// loop can feed them back to the model as information.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	Result   string `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

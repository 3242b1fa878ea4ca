package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"daybrief/internal/database"
	"daybrief/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedService owns the feed item lifecycle: status transitions, the
// interaction log, and the expiry sweep.
type FeedService struct {
	store   database.FeedStore
	metrics *Metrics
}

// NewFeedService creates the feed lifecycle manager
func NewFeedService(store database.FeedStore, metrics *Metrics) *FeedService {
	return &FeedService{
		store:   store,
		metrics: metrics,
	}
}

// UpdateStatus applies a caller-requested status change. Callers may only
// set VIEWED, ACTED, DISMISSED, SNOOZED, or COMPLETED; EXPIRED belongs to
// the sweep. Snoozing requires a future wake time, and a wake time is only
// meaningful when snoozing.
func (s *FeedService) UpdateStatus(ctx context.Context, userID, itemID string, status models.FeedStatus, snoozeUntil *time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return fmt.Errorf("%w: invalid item id", ErrValidation)
	}
	if !models.ValidStatusUpdate(status) {
		return fmt.Errorf("%w: cannot set status %q", ErrValidation, status)
	}
	if status == models.StatusSnoozed {
		if snoozeUntil == nil {
			return fmt.Errorf("%w: snoozing requires snooze_until", ErrValidation)
		}
		if !snoozeUntil.After(time.Now()) {
			return fmt.Errorf("%w: snooze_until must be in the future", ErrValidation)
		}
	} else if snoozeUntil != nil {
		return fmt.Errorf("%w: snooze_until is only valid with status SNOOZED", ErrValidation)
	}

	if err := s.store.UpdateStatus(ctx, userID, objectID, status, snoozeUntil); err != nil {
		if errors.Is(err, database.ErrItemExpired) {
			return fmt.Errorf("%w: item is expired", ErrValidation)
		}
		return err
	}
	log.Printf("🔄 [FEED] Item %s for user %s is now %s", itemID, userID, status)
	return nil
}

// RecordInteraction appends one interaction to the item's log. Failed and
// cancelled interactions are recorded the same as successful ones; the log
// is an audit trail, not a success ledger.
func (s *FeedService) RecordInteraction(ctx context.Context, userID, itemID string, actionID string, actionType models.ActionType, outcome models.InteractionOutcome, durationMs int64, errMsg string) (*models.Interaction, error) {
	objectID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item id", ErrValidation)
	}
	switch outcome {
	case models.OutcomeSuccess, models.OutcomeFailure, models.OutcomeCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", ErrValidation, outcome)
	}

	interaction := models.Interaction{
		ID:         uuid.New().String(),
		ActionID:   actionID,
		ActionType: actionType,
		Outcome:    outcome,
		DurationMs: durationMs,
		Error:      errMsg,
		Timestamp:  time.Now(),
	}
	if err := s.store.AppendInteraction(ctx, userID, objectID, interaction); err != nil {
		return nil, err
	}
	return &interaction, nil
}

// ListActive returns the user's visible feed ordered by priority rank, then
// event time ascending. The store applies the ordering inside its query so
// limit/offset paginate the already-ranked list.
func (s *FeedService) ListActive(ctx context.Context, userID string, opts models.FeedListOptions) ([]models.FeedItem, error) {
	return s.store.ListActive(ctx, userID, opts)
}

// ExpireSweep transitions every item past its expiry to EXPIRED. Safe to
// run on any schedule; items already expired are not matched again.
func (s *FeedService) ExpireSweep(ctx context.Context) (int64, error) {
	expired, err := s.store.ExpireSweep(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		log.Printf("⏰ [FEED] Expiry sweep marked %d item(s) expired", expired)
	}
	if s.metrics != nil {
		s.metrics.RecordFeedExpired(int(expired))
	}
	return expired, nil
}

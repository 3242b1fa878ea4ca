package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"daybrief/internal/database"
	"daybrief/internal/models"
	"daybrief/internal/services"

	"github.com/gofiber/fiber/v2"
)

// FeedHandler handles feed generation and lifecycle API endpoints
type FeedHandler struct {
	generationService *services.FeedGenerationService
	feedService       *services.FeedService
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(generationService *services.FeedGenerationService, feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{
		generationService: generationService,
		feedService:       feedService,
	}
}

// Generate runs one feed generation batch for the caller
// POST /api/v1/feed/generate
func (h *FeedHandler) Generate(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := h.generationService.Generate(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Feed generation failed",
		})
	}

	return c.JSON(result)
}

// List returns the user's active feed, urgent items first
// GET /api/v1/feed?limit=50&offset=0&includeExpired=false
func (h *FeedHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	items, err := h.feedService.ListActive(ctx, userID, models.FeedListOptions{
		Limit:          int64(limit),
		Offset:         int64(offset),
		IncludeExpired: c.Query("includeExpired", "false") == "true",
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list feed items",
		})
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

type updateStatusRequest struct {
	Status      string     `json:"status"`
	SnoozeUntil *time.Time `json:"snooze_until"`
}

// UpdateStatus applies a status transition to one feed item
// PATCH /api/v1/feed/:id/status
func (h *FeedHandler) UpdateStatus(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := h.feedService.UpdateStatus(ctx, userID, c.Params("id"), models.FeedStatus(req.Status), req.SnoozeUntil)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Feed item not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update feed item",
		})
	}

	return c.JSON(fiber.Map{
		"status": req.Status,
	})
}

type recordInteractionRequest struct {
	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error"`
}

// RecordInteraction appends one interaction to a feed item's log
// POST /api/v1/feed/:id/interactions
func (h *FeedHandler) RecordInteraction(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req recordInteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Unknown action types degrade to custom rather than rejecting the
	// record; the log must capture what the client actually did.
	actionType, _ := models.ParseActionType(req.ActionType)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	interaction, err := h.feedService.RecordInteraction(ctx, userID, c.Params("id"), req.ActionID, actionType, models.InteractionOutcome(req.Outcome), req.DurationMs, req.Error)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Feed item not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record interaction",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(interaction)
}

package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"daybrief/internal/models"
	"daybrief/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ContextHandler handles context ingestion API endpoints
type ContextHandler struct {
	contextService *services.ContextService
}

// NewContextHandler creates a new context handler
func NewContextHandler(contextService *services.ContextService) *ContextHandler {
	return &ContextHandler{contextService: contextService}
}

type upsertContextRequest struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
}

// UpsertContext ingests one normalized fact
// POST /api/v1/context
func (h *ContextHandler) UpsertContext(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req upsertContextRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry, err := h.contextService.UpsertContext(ctx, userID, models.ContextSource(req.Source), req.SourceID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store context entry",
		})
	}

	return c.Status(fiber.StatusOK).JSON(entry)
}

type upsertProfileRequest struct {
	Content string `json:"content"`
}

// UpsertProfile replaces the user's single profile entry
// PUT /api/v1/profile
func (h *ContextHandler) UpsertProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req upsertProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry, err := h.contextService.UpsertProfile(ctx, userID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store profile",
		})
	}

	return c.JSON(entry)
}

// ListContext returns the user's entries, newest first
// GET /api/v1/context?source=calendar&limit=50
func (h *ContextHandler) ListContext(c *fiber.Ctx) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := h.contextService.ListByUser(ctx, userID, models.ContextFilter{
		Source: models.ContextSource(c.Query("source", "")),
		Limit:  int64(limit),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list context entries",
		})
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}

// DeleteBySource removes every entry for one source, used on account unlink
// DELETE /api/v1/context/:source
func (h *ContextHandler) DeleteBySource(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	source := models.ContextSource(c.Params("source"))
	switch source {
	case models.ContextSourceCalendar, models.ContextSourceMail, models.ContextSourceProfile:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown source",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deleted, err := h.contextService.DeleteBySource(ctx, userID, source)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete context entries",
		})
	}

	return c.JSON(fiber.Map{
		"deleted": deleted,
	})
}

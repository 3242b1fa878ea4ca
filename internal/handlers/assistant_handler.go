package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"daybrief/internal/logging"
	"daybrief/internal/services"
	"daybrief/internal/tools"

	"github.com/gofiber/fiber/v2"
)

// AssistantHandler handles question answering and retrieval endpoints
type AssistantHandler struct {
	answerService    *services.AnswerService
	retrievalService *services.RetrievalService
	registry         *tools.Registry
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(answerService *services.AnswerService, retrievalService *services.RetrievalService, registry *tools.Registry) *AssistantHandler {
	return &AssistantHandler{
		answerService:    answerService,
		retrievalService: retrievalService,
		registry:         registry,
	}
}

// ListTools returns the available tool metadata
// GET /api/v1/assistant/tools
func (h *AssistantHandler) ListTools(c *fiber.Ctx) error {
	infos := h.registry.ListDetailed()
	return c.JSON(fiber.Map{
		"tools": infos,
		"count": len(infos),
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask answers a question grounded in the user's context
// POST /api/v1/assistant/ask
func (h *AssistantHandler) Ask(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	logging.WithRequest(c.Get("X-Request-ID"), userID).Info("answer requested",
		"question_length", len(req.Question))

	// Generous timeout: the answer may involve several completions and
	// tool round-trips.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	result, err := h.answerService.Answer(ctx, userID, req.Question)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate answer",
		})
	}

	return c.JSON(result)
}

// Search ranks the user's context entries against a free-text query
// GET /api/v1/assistant/search?q=budget&limit=10
func (h *AssistantHandler) Search(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	query := c.Query("q", "")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query parameter q is required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := h.retrievalService.SearchBySimilarity(ctx, userID, query, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

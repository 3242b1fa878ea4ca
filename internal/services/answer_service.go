package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"daybrief/internal/ai"
	"daybrief/internal/models"
	"daybrief/internal/tools"
)

const (
	// maxToolRounds bounds the tool loop so a model that keeps requesting
	// tools cannot spin forever. After the last round the model is asked
	// to answer without tools.
	maxToolRounds = 3

	answerSemanticLimit = 5
	answerRecentWindow  = 24 * time.Hour
	answerRecentLimit   = 3

	fallbackAnswer = "I was unable to generate an answer to that question. Please try rephrasing it."
)

// Completer produces chat completions. Satisfied by ai.CompletionClient in
// production and by scripted stubs in tests.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, messages []ai.Message, toolSchemas []map[string]interface{}) (*ai.ChatResponse, error)
}

// AnswerService synthesizes grounded answers to user questions from
// retrieved context plus live tool results.
type AnswerService struct {
	retrieval *RetrievalService
	completer Completer
	registry  *tools.Registry
	metrics   *Metrics
}

// NewAnswerService creates the answer synthesizer
func NewAnswerService(retrieval *RetrievalService, completer Completer, registry *tools.Registry, metrics *Metrics) *AnswerService {
	return &AnswerService{
		retrieval: retrieval,
		completer: completer,
		registry:  registry,
		metrics:   metrics,
	}
}

// Answer retrieves the user's relevant context, then runs a bounded
// tool-calling loop until the model produces a text answer. Tool failures
// are fed back to the model as information, never surfaced as request
// errors; every attempted call lands in ToolsUsed.
func (s *AnswerService) Answer(ctx context.Context, userID, question string) (*models.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrValidation)
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordAnswerRequest()
		defer func() {
			s.metrics.RecordAnswerLatency(time.Since(start).Seconds())
		}()
	}

	relevant, err := s.retrieval.RelevantContext(ctx, userID, question, answerSemanticLimit, answerRecentWindow, answerRecentLimit, DefaultSemanticWeight)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAnswerError("retrieval")
		}
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	sources := make([]models.SourceRef, 0, len(relevant.Combined))
	var contextBlock strings.Builder
	for i, se := range relevant.Combined {
		excerpt := truncate(se.Entry.Content, 300)
		sources = append(sources, models.SourceRef{
			ID:      se.Entry.ID.Hex(),
			Source:  se.Entry.Source,
			Excerpt: excerpt,
		})
		fmt.Fprintf(&contextBlock, "[%d] (%s) %s\n", i+1, se.Entry.Source, excerpt)
	}

	systemPrompt := s.buildSystemPrompt(contextBlock.String())
	messages := []ai.Message{{Role: "user", Content: question}}
	toolSchemas := s.registry.List()

	var toolsUsed []models.ToolResult
	var lastContent string

	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.completer.Complete(ctx, systemPrompt, messages, toolSchemas)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordAnswerError("completion")
			}
			return nil, fmt.Errorf("completion failed: %w", err)
		}
		lastContent = resp.Content

		if len(resp.ToolCalls) == 0 {
			return s.finish(resp.Content, sources, toolsUsed), nil
		}

		log.Printf("🛠️ [ANSWER] Round %d requested %d tool call(s)", round+1, len(resp.ToolCalls))
		messages = append(messages, ai.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			result := s.runTool(ctx, call)
			toolsUsed = append(toolsUsed, result)

			feedback := result.Result
			if result.Error != "" {
				feedback = fmt.Sprintf("Error: %s", result.Error)
			}
			messages = append(messages, ai.Message{
				Role:       "tool",
				Content:    feedback,
				ToolCallID: call.ID,
			})
		}
	}

	// Round budget spent with the model still asking for tools. Return
	// whatever text the last response carried; finish substitutes the
	// fallback when that is empty.
	log.Printf("⛔ [ANSWER] Tool round limit reached after %d rounds", maxToolRounds)
	return s.finish(lastContent, sources, toolsUsed), nil
}

func (s *AnswerService) finish(answer string, sources []models.SourceRef, toolsUsed []models.ToolResult) *models.AnswerResult {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		if s.metrics != nil {
			s.metrics.RecordAnswerError("empty_answer")
		}
		answer = fallbackAnswer
	}
	return &models.AnswerResult{
		Answer:    answer,
		Sources:   sources,
		ToolsUsed: toolsUsed,
	}
}

func (s *AnswerService) runTool(ctx context.Context, call ai.ToolCall) models.ToolResult {
	args := make(map[string]interface{})
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			result := models.ToolResult{
				ToolName: call.Name,
				Error:    fmt.Sprintf("invalid tool arguments: %v", err),
			}
			if s.metrics != nil {
				s.metrics.RecordToolRun(call.Name, true)
			}
			return result
		}
	}

	result := s.registry.Run(ctx, call.Name, args)
	if s.metrics != nil {
		s.metrics.RecordToolRun(call.Name, result.Error != "")
	}
	return result
}

func (s *AnswerService) buildSystemPrompt(contextBlock string) string {
	var b strings.Builder
	b.WriteString("You are a personal assistant answering questions about the user's day. ")
	b.WriteString("Use the numbered context entries below when they are relevant and cite them by number. ")
	b.WriteString("Use the available tools for live information like directions, places, weather, and the current time. ")
	b.WriteString("If a tool fails, work with what you have instead of retrying endlessly.\n\n")
	fmt.Fprintf(&b, "Current time: %s\n\n", time.Now().Format(time.RFC1123))
	if contextBlock == "" {
		b.WriteString("No stored context is available for this user.\n")
	} else {
		b.WriteString("User context:\n")
		b.WriteString(contextBlock)
	}
	return b.String()
}

// truncate shortens s to at most max runes. Cutting on rune boundaries keeps
// multi-byte characters intact in excerpts.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Package assistant answers suggestion and chat requests with Gemini, falling
// back to deterministic text when no model is configured or generation fails.
package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
)

var (
	// ErrMessageRequired is returned for a chat request without a message.
	ErrMessageRequired = errors.New("message required")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// chatHistoryTurns is how many history turns are placed in the chat prompt.
const chatHistoryTurns = 8

// placeholderKeys are sample values from .env templates.
var placeholderKeys = map[string]bool{
	"your_gemini_api_key_here":    true,
	"AIzaSyAYourGeminiAPIKeyHere": true,
}

// HasUsableKey reports whether key looks like a real API key.
func HasUsableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !placeholderKeys[key]
}

// Turn is one chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/gemini/chat.
type ChatRequest struct {
	Message string             `json:"message"`
	History []Turn             `json:"history"`
	Context *aggregate.Payload `json:"context"`
}

// ServiceConfig holds configuration for the assistant.
type ServiceConfig struct {
	// Generator produces model text (optional). Without it every answer is
	// the deterministic fallback.
	Generator Generator

	Logger zerolog.Logger
}

// Service answers suggestion and chat requests.
type Service struct {
	generator Generator
	logger    zerolog.Logger
}

// NewService creates an assistant service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{generator: cfg.Generator, logger: cfg.Logger}
}

// Suggest returns suggestion text for a payload. It never fails.
func (s *Service) Suggest(ctx context.Context, p *aggregate.Payload) string {
	if s.generator == nil {
		return HeuristicSuggestion(p)
	}

	text, err := s.generator.Generate(ctx, SuggestionPrompt(p), GenerateOptions{})
	if err != nil {
		s.logger.Warn().Err(err).Msg("suggestion generation failed, using heuristic")
		return HeuristicSuggestion(p)
	}
	return text
}

// Chat answers a chat message. Only a missing message is an error.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrMessageRequired
	}
	if s.generator == nil {
		return FallbackReply(req.Message, req.Context), nil
	}

	history := req.History
	if len(history) > chatHistoryTurns {
		history = history[len(history)-chatHistoryTurns:]
	}

	reply, err := s.generator.Generate(ctx, ChatPrompt(req.Message, history, req.Context), GenerateOptions{
		Temperature:     0.7,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 200,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("chat generation failed, using fallback reply")
		return FallbackReply(req.Message, req.Context), nil
	}
	return strings.TrimSpace(reply), nil
}

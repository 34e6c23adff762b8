package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/api/models"
	"github.com/breatheroute/airwatch/internal/api/response"
	"github.com/breatheroute/airwatch/internal/assistant"
)

// Assistant answers suggestion and chat requests.
type Assistant interface {
	Suggest(ctx context.Context, p *aggregate.Payload) string
	Chat(ctx context.Context, req assistant.ChatRequest) (string, error)
}

// AssistantHandler serves the Gemini-backed endpoints.
type AssistantHandler struct {
	assistant Assistant
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(a Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

// Suggest handles POST /api/gemini/suggest. The body is an aggregate payload;
// an empty body yields the suggestion for no data.
func (h *AssistantHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var payload aggregate.Payload
	if err := response.DecodeJSON(w, r, &payload); err != nil && !errors.Is(err, response.ErrEmptyBody) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	text := h.assistant.Suggest(r.Context(), &payload)
	response.JSON(w, r, http.StatusOK, models.SuggestResponse{Suggestion: text})
}

// Chat handles POST /api/gemini/chat.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req assistant.ChatRequest
	if err := response.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, response.ErrEmptyBody) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	reply, err := h.assistant.Chat(r.Context(), req)
	if errors.Is(err, assistant.ErrMessageRequired) {
		response.BadRequest(w, r, "message required", []models.FieldError{
			{Field: "message", Message: "must not be empty", Code: "required"},
		})
		return
	}
	if err != nil {
		response.InternalError(w, r, "could not generate a reply")
		return
	}
	response.JSON(w, r, http.StatusOK, models.ChatResponse{Reply: reply})
}

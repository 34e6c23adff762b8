// Package chat keeps a conversation with the backend assistant, sending a
// sliding window of recent turns plus the last aggregate payload as context.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/provider/resilience"
)

// Roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultMaxHistory is the number of prior turns sent with a request.
	DefaultMaxHistory = 10

	// EmptyReply replaces a blank reply from the backend.
	EmptyReply = "Sorry, I could not generate a response."
)

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("chat request already in flight")

	// ErrEmptyMessage is returned for a blank message.
	ErrEmptyMessage = errors.New("message required")
)

// Turn is one message in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Entry is a transcript line. Failed entries are error bubbles and are never
// sent back as history.
type Entry struct {
	Turn
	Failed bool
}

// ContextSource provides the last aggregate payload.
type ContextSource interface {
	Last() (aggregate.Snapshot, bool)
}

// SessionConfig holds configuration for a chat session.
type SessionConfig struct {
	BaseURL    string
	HTTPClient *resilience.Client

	// Context supplies the payload sent as conversational context (optional).
	Context ContextSource

	// MaxHistory overrides DefaultMaxHistory.
	MaxHistory int

	Logger zerolog.Logger
}

// Session is a single conversation. Only one request may be in flight.
type Session struct {
	id         string
	baseURL    string
	httpClient *resilience.Client
	context    ContextSource
	maxHistory int
	logger     zerolog.Logger

	mu         sync.Mutex
	inFlight   bool
	history    []Turn
	transcript []Entry
}

// NewSession creates a session with a fresh ID.
func NewSession(cfg SessionConfig) *Session {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig("backend-chat")
		clientCfg.MaxRetries = 0
		httpClient = resilience.NewClient(clientCfg)
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	id := uuid.NewString()
	return &Session{
		id:         id,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		context:    cfg.Context,
		maxHistory: maxHistory,
		logger:     cfg.Logger.With().Str("chat_session", id).Logger(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Send appends message to the conversation and returns the assistant reply.
// While a request is pending, further calls return ErrBusy and change nothing.
// On failure an error bubble is added to the transcript and the session stays
// usable.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.inFlight = true
	prior := s.history
	if len(prior) > s.maxHistory {
		prior = prior[len(prior)-s.maxHistory:]
	}
	prior = append([]Turn(nil), prior...)

	user := Turn{Role: RoleUser, Content: message}
	s.history = append(s.history, user)
	s.transcript = append(s.transcript, Entry{Turn: user})
	s.mu.Unlock()

	reply, err := s.post(ctx, message, prior)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false

	if err != nil {
		s.logger.Warn().Err(err).Msg("chat request failed")
		bubble := "Sorry, chat is temporarily unavailable. Error: " + err.Error()
		s.transcript = append(s.transcript, Entry{Turn: Turn{Role: RoleAssistant, Content: bubble}, Failed: true})
		return bubble, err
	}

	if strings.TrimSpace(reply) == "" {
		reply = EmptyReply
	}
	turn := Turn{Role: RoleAssistant, Content: reply}
	s.history = append(s.history, turn)
	s.transcript = append(s.transcript, Entry{Turn: turn})
	return reply, nil
}

type request struct {
	Message string          `json:"message"`
	History []Turn          `json:"history"`
	Context json.RawMessage `json:"context"`
}

func (s *Session) post(ctx context.Context, message string, history []Turn) (string, error) {
	contextJSON := json.RawMessage(`{}`)
	if s.context != nil {
		if snap, ok := s.context.Last(); ok && snap.Payload != nil {
			b, err := json.Marshal(snap.Payload)
			if err != nil {
				return "", fmt.Errorf("encoding context: %w", err)
			}
			contextJSON = b
		}
	}

	body, err := json.Marshal(request{Message: message, History: history, Context: contextJSON})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/gemini/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Reply, nil
}

// Transcript returns every entry, including error bubbles.
func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.transcript...)
}

// History returns the turns eligible to be sent as context.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// Clear drops the conversation. A pending request still completes and its
// reply lands in the cleared session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.transcript = nil
}

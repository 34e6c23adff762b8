// Package status collects the transient user-facing messages produced by a
// refresh cycle: the status line, a short debug log, and expiring toasts.
package status

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind classifies a toast notification.
type Kind string

// Toast kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

const (
	// MaxDebugLines bounds the debug log.
	MaxDebugLines = 10

	// ToastTTL is how long a toast stays visible.
	ToastTTL = 5 * time.Second
)

// Sink receives status output from the resolver, the dashboard, and the scheduler.
type Sink interface {
	SetStatus(text string)
	Debug(text string)
	Notify(kind Kind, text string)
}

// Toast is a notification that expires ToastTTL after CreatedAt.
type Toast struct {
	Kind      Kind
	Text      string
	CreatedAt time.Time
}

// Event is delivered to subscribers on every Board change.
type Event struct {
	// Type is "status", "debug", or "toast".
	Type string
	Kind Kind
	Text string
	At   time.Time
}

// BoardConfig holds configuration for a Board.
type BoardConfig struct {
	Logger zerolog.Logger

	// Now overrides the wall clock (tests).
	Now func() time.Time
}

// Board is the in-memory Sink used by every binary.
type Board struct {
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	status      string
	debug       []string
	toasts      []Toast
	subscribers []func(Event)
}

// NewBoard creates an empty board.
func NewBoard(cfg BoardConfig) *Board {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Board{logger: cfg.Logger, now: now}
}

// Subscribe registers fn for every subsequent event. fn runs synchronously
// on the caller's goroutine and must not call back into the Board.
func (b *Board) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// SetStatus replaces the status line.
func (b *Board) SetStatus(text string) {
	b.logger.Info().Str("status", text).Msg("status")

	b.mu.Lock()
	b.status = text
	b.mu.Unlock()

	b.publish(Event{Type: "status", Text: text})
}

// Debug appends a time-prefixed line, keeping the last MaxDebugLines.
func (b *Board) Debug(text string) {
	b.logger.Debug().Msg(text)

	now := b.now()
	line := "[" + now.Format("15:04:05") + "] " + text

	b.mu.Lock()
	b.debug = append(b.debug, line)
	if len(b.debug) > MaxDebugLines {
		b.debug = append([]string(nil), b.debug[len(b.debug)-MaxDebugLines:]...)
	}
	b.mu.Unlock()

	b.publish(Event{Type: "debug", Text: line})
}

// Notify adds a toast.
func (b *Board) Notify(kind Kind, text string) {
	evt := b.logger.Info()
	if kind == KindError {
		evt = b.logger.Warn()
	}
	evt.Str("kind", string(kind)).Msg(text)

	now := b.now()
	b.mu.Lock()
	b.toasts = append(b.pruneLocked(now), Toast{Kind: kind, Text: text, CreatedAt: now})
	b.mu.Unlock()

	b.publish(Event{Type: "toast", Kind: kind, Text: text})
}

// Status returns the current status line.
func (b *Board) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// DebugLines returns a copy of the debug log, oldest first.
func (b *Board) DebugLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.debug...)
}

// Toasts returns the toasts that have not yet expired.
func (b *Board) Toasts() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toasts = b.pruneLocked(b.now())
	return append([]Toast(nil), b.toasts...)
}

func (b *Board) pruneLocked(now time.Time) []Toast {
	live := b.toasts[:0]
	for _, t := range b.toasts {
		if now.Sub(t.CreatedAt) < ToastTTL {
			live = append(live, t)
		}
	}
	return live
}

func (b *Board) publish(e Event) {
	e.At = b.now()

	b.mu.Lock()
	subs := make([]func(Event), len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) SetStatus(string)    {}
func (Nop) Debug(string)        {}
func (Nop) Notify(Kind, string) {}

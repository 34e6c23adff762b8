package status_test

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/status"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newBoard(clock *fakeClock) *status.Board {
	return status.NewBoard(status.BoardConfig{
		Logger: zerolog.New(io.Discard),
		Now:    clock.Now,
	})
}

func TestBoard_SetStatus(t *testing.T) {
	board := newBoard(&fakeClock{t: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)})

	board.SetStatus("Loading...")
	board.SetStatus("Loaded successfully at 09:30:00")

	assert.Equal(t, "Loaded successfully at 09:30:00", board.Status())
}

func TestBoard_DebugBounded(t *testing.T) {
	board := newBoard(&fakeClock{t: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)})

	for i := 0; i < 15; i++ {
		board.Debug(fmt.Sprintf("line %d", i))
	}

	lines := board.DebugLines()
	require.Len(t, lines, status.MaxDebugLines)
	assert.Equal(t, "[09:30:00] line 5", lines[0])
	assert.Equal(t, "[09:30:00] line 14", lines[9])
}

func TestBoard_ToastsExpire(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
	board := newBoard(clock)

	board.Notify(status.KindSuccess, "Layout saved")
	clock.Advance(3 * time.Second)
	board.Notify(status.KindError, "Search failed")

	assert.Len(t, board.Toasts(), 2)

	clock.Advance(2 * time.Second)
	toasts := board.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, status.KindError, toasts[0].Kind)

	clock.Advance(3 * time.Second)
	assert.Empty(t, board.Toasts())
}

func TestBoard_Subscribe(t *testing.T) {
	board := newBoard(&fakeClock{t: time.Now()})

	var events []status.Event
	board.Subscribe(func(e status.Event) { events = append(events, e) })

	board.SetStatus("Loading...")
	board.Debug("fetching")
	board.Notify(status.KindInfo, "Auto-update started (every 5 min)")

	require.Len(t, events, 3)
	assert.Equal(t, "status", events[0].Type)
	assert.Equal(t, "debug", events[1].Type)
	assert.Equal(t, "toast", events[2].Type)
	assert.Equal(t, status.KindInfo, events[2].Kind)
}

func TestNop(t *testing.T) {
	var sink status.Sink = status.Nop{}
	assert.NotPanics(t, func() {
		sink.SetStatus("x")
		sink.Debug("x")
		sink.Notify(status.KindInfo, "x")
	})
}

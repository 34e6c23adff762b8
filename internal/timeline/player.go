package timeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the playback state.
type State string

// Playback states.
const (
	Stopped State = "stopped"
	Playing State = "playing"
)

// Speed bounds.
const (
	MinSpeed = 0.5
	MaxSpeed = 4.0
)

// DefaultInterval is the time one frame is shown at 1x.
const DefaultInterval = time.Second

// Player errors.
var (
	ErrNoFrames     = errors.New("no frames to play")
	ErrInvalidSpeed = errors.New("speed must be between 0.5 and 4")
	ErrOutOfRange   = errors.New("frame index out of range")
)

// PlayerConfig holds configuration for a Player.
type PlayerConfig struct {
	Frames []Frame

	// Interval is the per-frame duration at 1x (default: DefaultInterval).
	Interval time.Duration

	// OnFrame is called whenever the current frame changes. It runs on the
	// player's ticker goroutine and must not call back into the Player.
	OnFrame func(index int, f Frame)

	Logger zerolog.Logger
}

// Player advances through frames on a ticker. At most one ticker goroutine
// runs at a time.
type Player struct {
	frames   []Frame
	interval time.Duration
	onFrame  func(int, Frame)
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
	index int
	speed float64
	stop  chan struct{}
	done  chan struct{}
}

// NewPlayer creates a stopped player positioned at the first frame.
func NewPlayer(cfg PlayerConfig) *Player {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	onFrame := cfg.OnFrame
	if onFrame == nil {
		onFrame = func(int, Frame) {}
	}
	return &Player{
		frames:   cfg.Frames,
		interval: interval,
		onFrame:  onFrame,
		logger:   cfg.Logger,
		state:    Stopped,
		speed:    1,
	}
}

// Play starts playback from the current frame. Playing is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.frames) == 0 {
		return ErrNoFrames
	}
	if p.state == Playing {
		return nil
	}
	p.startLocked()
	return nil
}

// Pause stops playback and waits for the ticker goroutine to exit.
func (p *Player) Pause() {
	p.mu.Lock()
	done := p.stopLocked()
	p.mu.Unlock()

	if done != nil {
		<-done
		p.logger.Debug().Int("frame", p.Index()).Msg("timeline paused")
	}
}

// Toggle plays when stopped and pauses when playing.
func (p *Player) Toggle() error {
	if p.State() == Playing {
		p.Pause()
		return nil
	}
	return p.Play()
}

// Reset pauses and rewinds to the first frame.
func (p *Player) Reset() {
	p.Pause()
	_ = p.Jump(0)
}

// SetSpeed changes the playback multiplier, restarting the ticker if playing.
func (p *Player) SetSpeed(speed float64) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}

	p.mu.Lock()
	p.speed = speed
	var done chan struct{}
	if p.state == Playing {
		done = p.stopLocked()
		p.startLocked()
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

// Jump moves to frame i without changing the playback state.
func (p *Player) Jump(i int) error {
	p.mu.Lock()
	if i < 0 || i >= len(p.frames) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	p.index = i
	f := p.frames[i]
	p.mu.Unlock()

	p.onFrame(i, f)
	return nil
}

// Show renders the current frame without changing the playback state.
func (p *Player) Show() error {
	p.mu.Lock()
	if len(p.frames) == 0 {
		p.mu.Unlock()
		return ErrNoFrames
	}
	i, f := p.index, p.frames[p.index]
	p.mu.Unlock()

	p.onFrame(i, f)
	return nil
}

// Step advances one frame. It reports false at the last frame.
func (p *Player) Step() bool {
	p.mu.Lock()
	if p.index+1 >= len(p.frames) {
		p.mu.Unlock()
		return false
	}
	p.index++
	i, f := p.index, p.frames[p.index]
	p.mu.Unlock()

	p.onFrame(i, f)
	return true
}

// State returns the playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Index returns the current frame index.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Speed returns the playback multiplier.
func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Progress renders "current / total intervals".
func (p *Player) Progress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%d / %d intervals", p.index+1, len(p.frames))
}

func (p *Player) startLocked() {
	p.state = Playing
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	interval := time.Duration(float64(p.interval) / p.speed)
	go p.run(interval, p.stop, p.done)

	p.logger.Debug().Float64("speed", p.speed).Msg("timeline playing")
}

// stopLocked signals the ticker goroutine and returns its done channel,
// or nil when nothing is playing.
func (p *Player) stopLocked() chan struct{} {
	if p.state != Playing {
		return nil
	}
	close(p.stop)
	done := p.done
	p.stop, p.done = nil, nil
	p.state = Stopped
	return done
}

func (p *Player) run(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !p.tick(stop) {
				return
			}
		}
	}
}

// tick advances one frame, auto-pausing at the last one.
func (p *Player) tick(stop chan struct{}) bool {
	p.mu.Lock()
	if p.stop != stop {
		p.mu.Unlock()
		return false
	}
	if p.index+1 >= len(p.frames) {
		p.state = Stopped
		p.stop, p.done = nil, nil
		p.mu.Unlock()
		p.logger.Debug().Msg("timeline reached last frame")
		return false
	}
	p.index++
	i, f := p.index, p.frames[p.index]
	p.mu.Unlock()

	p.onFrame(i, f)
	return true
}

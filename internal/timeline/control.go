package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action is a playback command.
type Action string

// Playback actions.
const (
	ActionPlay   Action = "play"
	ActionPause  Action = "pause"
	ActionToggle Action = "toggle"
	ActionReset  Action = "reset"
	ActionStep   Action = "step"
	ActionSpeed  Action = "speed"
	ActionJump   Action = "jump"
)

// ErrUnknownAction is returned by ParseControl for an unrecognized command.
var ErrUnknownAction = errors.New("unknown timeline action")

// Control is a parsed playback command. Speed is set for ActionSpeed and
// Frame, a zero-based index, for ActionJump.
type Control struct {
	Action Action
	Speed  float64
	Frame  int
}

// ParseControl parses "play", "pause", "toggle", "reset", "step",
// "speed <x>", or "jump <n>". Jump takes the one-based frame number that
// the frame printer shows; a trailing "x" on the speed is accepted.
func ParseControl(text string) (Control, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return Control{}, fmt.Errorf("%w: empty", ErrUnknownAction)
	}

	action := Action(fields[0])
	switch action {
	case ActionPlay, ActionPause, ActionToggle, ActionReset, ActionStep:
		if len(fields) != 1 {
			return Control{}, fmt.Errorf("%s takes no arguments", action)
		}
		return Control{Action: action}, nil
	case ActionSpeed:
		if len(fields) != 2 {
			return Control{}, errors.New("usage: speed <0.5-4>")
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "x"), 64)
		if err != nil {
			return Control{}, fmt.Errorf("speed %q is not a number", fields[1])
		}
		return Control{Action: action, Speed: v}, nil
	case ActionJump:
		if len(fields) != 2 {
			return Control{}, errors.New("usage: jump <frame>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Control{}, fmt.Errorf("frame %q is not a number", fields[1])
		}
		return Control{Action: action, Frame: n - 1}, nil
	default:
		return Control{}, fmt.Errorf("%w: %q", ErrUnknownAction, fields[0])
	}
}

// Apply runs c against the player.
func (p *Player) Apply(c Control) error {
	switch c.Action {
	case ActionPlay:
		return p.Play()
	case ActionPause:
		p.Pause()
		return nil
	case ActionToggle:
		return p.Toggle()
	case ActionReset:
		p.Reset()
		return nil
	case ActionStep:
		if !p.Step() {
			return fmt.Errorf("%w: already at the last frame", ErrOutOfRange)
		}
		return nil
	case ActionSpeed:
		return p.SetSpeed(c.Speed)
	case ActionJump:
		return p.Jump(c.Frame)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
}

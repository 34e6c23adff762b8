// Package preferences persists the dashboard layout preference.
package preferences

import "errors"

// LayoutKey is the storage key of the layout preference.
const LayoutKey = "customLayout"

// Width bounds in pixels.
const (
	DefaultLeftWidth  = 550
	DefaultRightWidth = 380
	MinWidth          = 300
	MaxLeftWidth      = 800
	MaxRightWidth     = 600
)

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("preference not found")

// Layout is the width of the left and right dashboard columns.
type Layout struct {
	LeftWidth  int `json:"leftWidth"`
	RightWidth int `json:"rightWidth"`
}

// DefaultLayout is used when nothing has been saved.
var DefaultLayout = Layout{LeftWidth: DefaultLeftWidth, RightWidth: DefaultRightWidth}

// Preset is a named layout.
type Preset struct {
	Name   string
	Layout Layout
}

// Presets are the quick layout choices.
var Presets = []Preset{
	{Name: "Balanced", Layout: Layout{LeftWidth: 400, RightWidth: 400}},
	{Name: "Focus Left", Layout: Layout{LeftWidth: 600, RightWidth: 350}},
	{Name: "Focus Right", Layout: Layout{LeftWidth: 400, RightWidth: 500}},
	{Name: "Default", Layout: DefaultLayout},
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Layout, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p.Layout, true
		}
	}
	return Layout{}, false
}

// Clamp bounds both widths.
func (l Layout) Clamp() Layout {
	return Layout{
		LeftWidth:  clamp(l.LeftWidth, MinWidth, MaxLeftWidth),
		RightWidth: clamp(l.RightWidth, MinWidth, MaxRightWidth),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

package preferences_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/airwatch/internal/preferences"
)

func TestLayout_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   preferences.Layout
		want preferences.Layout
	}{
		{"within bounds", preferences.Layout{LeftWidth: 500, RightWidth: 400}, preferences.Layout{LeftWidth: 500, RightWidth: 400}},
		{"too narrow", preferences.Layout{LeftWidth: 100, RightWidth: 0}, preferences.Layout{LeftWidth: 300, RightWidth: 300}},
		{"too wide", preferences.Layout{LeftWidth: 2000, RightWidth: 900}, preferences.Layout{LeftWidth: 800, RightWidth: 600}},
		{"edges", preferences.Layout{LeftWidth: 800, RightWidth: 600}, preferences.Layout{LeftWidth: 800, RightWidth: 600}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamp())
		})
	}
}

func TestLookupPreset(t *testing.T) {
	l, ok := preferences.LookupPreset("Focus Right")
	assert.True(t, ok)
	assert.Equal(t, preferences.Layout{LeftWidth: 400, RightWidth: 500}, l)

	l, ok = preferences.LookupPreset("Default")
	assert.True(t, ok)
	assert.Equal(t, preferences.DefaultLayout, l)

	_, ok = preferences.LookupPreset("Wide")
	assert.False(t, ok)
}

func TestPresets_WithinBounds(t *testing.T) {
	for _, p := range preferences.Presets {
		assert.Equal(t, p.Layout, p.Layout.Clamp(), p.Name)
	}
}

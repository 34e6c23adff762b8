package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/breatheroute/airwatch/internal/status"
)

// ServiceConfig holds configuration for the preference service.
type ServiceConfig struct {
	Repository Repository

	// Status receives toast notifications (optional).
	Status status.Sink

	Logger zerolog.Logger
}

// Service loads and saves the layout preference.
type Service struct {
	repo   Repository
	status status.Sink
	logger zerolog.Logger
}

// NewService creates a preference service.
func NewService(cfg ServiceConfig) *Service {
	sink := cfg.Status
	if sink == nil {
		sink = status.Nop{}
	}
	return &Service{repo: cfg.Repository, status: sink, logger: cfg.Logger}
}

// Layout returns the saved layout clamped to bounds, or DefaultLayout when
// nothing usable is stored.
func (s *Service) Layout(ctx context.Context) (Layout, error) {
	raw, err := s.repo.Get(ctx, LayoutKey)
	if errors.Is(err, ErrNotFound) {
		return DefaultLayout, nil
	}
	if err != nil {
		return Layout{}, fmt.Errorf("loading layout: %w", err)
	}

	var l Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable layout preference")
		return DefaultLayout, nil
	}
	return l.Clamp(), nil
}

// SaveLayout clamps and stores l, returning what was stored.
func (s *Service) SaveLayout(ctx context.Context, l Layout) (Layout, error) {
	l = l.Clamp()
	raw, err := json.Marshal(l)
	if err != nil {
		return Layout{}, fmt.Errorf("encoding layout: %w", err)
	}
	if err := s.repo.Set(ctx, LayoutKey, raw); err != nil {
		return Layout{}, fmt.Errorf("saving layout: %w", err)
	}

	s.logger.Debug().Int("left", l.LeftWidth).Int("right", l.RightWidth).Msg("layout saved")
	s.status.Notify(status.KindSuccess, "✅ Layout Applied Successfully!")
	return l, nil
}

// ResetLayout stores DefaultLayout.
func (s *Service) ResetLayout(ctx context.Context) (Layout, error) {
	l, err := s.SaveLayout(ctx, DefaultLayout)
	if err != nil {
		return Layout{}, err
	}
	s.status.Notify(status.KindInfo, "🔄 Layout Reset to Default")
	return l, nil
}

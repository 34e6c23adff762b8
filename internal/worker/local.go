package worker

import (
	"context"

	"github.com/breatheroute/airwatch/internal/aggregate"
	"github.com/breatheroute/airwatch/internal/geo"
)

// Aggregator assembles a payload in-process. *aggregate.Service satisfies it.
type Aggregator interface {
	Aggregate(ctx context.Context, coord geo.Coordinate) *aggregate.Payload
}

// Suggester produces suggestion text in-process. *assistant.Service
// satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, p *aggregate.Payload) string
}

// LocalFetcher adapts an Aggregator to dashboard.Fetcher so the worker can
// drive a dashboard without a round trip through the HTTP backend.
type LocalFetcher struct {
	Aggregator Aggregator
}

// Fetch builds the payload for coord. It fails only on an invalid coordinate.
func (f LocalFetcher) Fetch(ctx context.Context, coord geo.Coordinate) (*aggregate.Payload, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	return f.Aggregator.Aggregate(ctx, coord), nil
}

// LocalSuggester adapts a Suggester to dashboard.Suggester. The assistant
// already falls back to its heuristic, so fallback is never reported.
type LocalSuggester struct {
	Suggester Suggester
}

// SuggestOrFallback returns the suggestion text.
func (s LocalSuggester) SuggestOrFallback(ctx context.Context, p *aggregate.Payload) (string, bool) {
	return s.Suggester.Suggest(ctx, p), false
}

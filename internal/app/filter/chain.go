package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodybox/internal/domain/track"
)

// Rejection records a track turned away by a filter.
type Rejection struct {
	Track  track.Track
	Filter string
	Code   string
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track, naming that filter.
// Filters are only applied if they declare they apply to the given origin.
func (c *Chain) Execute(ctx context.Context, t track.Track, queue []track.Track, origin Origin) (Result, string) {
	for _, f := range c.filters {
		if !f.AppliesTo(origin) {
			continue
		}

		result := f.Check(ctx, t, queue)
		if !result.Accepted {
			return result, f.Name()
		}
	}
	return Accept(), ""
}

// Admit runs the chain over a batch. Each track is checked against the
// queue extended by the tracks admitted before it, so limits hold for the
// batch as a whole. Order is preserved.
func (c *Chain) Admit(ctx context.Context, incoming, queue []track.Track, origin Origin) ([]track.Track, []Rejection) {
	if c == nil || len(c.filters) == 0 {
		return incoming, nil
	}

	view := make([]track.Track, len(queue), len(queue)+len(incoming))
	copy(view, queue)

	accepted := make([]track.Track, 0, len(incoming))
	var rejected []Rejection
	for _, t := range incoming {
		result, name := c.Execute(ctx, t, view, origin)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: rejected track id=%d title=%q filter=%s code=%s", t.ID, t.Title, name, result.Code)
			rejected = append(rejected, Rejection{Track: t, Filter: name, Code: result.Code})
			continue
		}
		accepted = append(accepted, t)
		view = append(view, t)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

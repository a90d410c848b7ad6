// Package filter provides the admission filter chain for tracks entering the queue.
package filter

import (
	"context"

	"github.com/osa030/melodybox/internal/domain/track"
)

// Origin identifies the store operation through which tracks arrive.
type Origin int

const (
	OriginPlay    Origin = iota // PlayTrack with a new list
	OriginReplace               // UpdateQueue / UpdatePlaylist
	OriginAppend                // AddToQueue
)

// String returns the string representation of the origin.
func (o Origin) String() string {
	switch o {
	case OriginPlay:
		return "play"
	case OriginReplace:
		return "replace"
	case OriginAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "missing_source", "queue_full", "duplicate_track"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for admission filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter settings.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should run for the given origin.
	AppliesTo(origin Origin) bool
	// Check inspects one incoming track against the queue it would join.
	// queue already includes tracks admitted earlier in the same batch.
	Check(ctx context.Context, t track.Track, queue []track.Track) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

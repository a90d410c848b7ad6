// Package playlist provides the Playlist domain entity and queue merging.
package playlist

import (
	"time"

	"github.com/samber/lo"

	"github.com/osa030/melodybox/internal/domain/track"
)

// Playlist is the last full ordered list of tracks handed to the player.
type Playlist struct {
	ID     int64         // Backend playlist ID (0 for ad-hoc lists and single media)
	Name   string        // Playlist name
	Tracks []track.Track // Tracks in order
}

// TotalDuration returns the sum of the tracks' display durations.
func (p *Playlist) TotalDuration() time.Duration {
	return lo.SumBy(p.Tracks, func(t track.Track) time.Duration {
		return t.DisplayDuration()
	})
}

// Merge appends the incoming tracks whose ID is not already present in
// existing, preserving the order of both sequences. Duplicates inside
// incoming are collapsed to their first occurrence.
func Merge(existing, incoming []track.Track) []track.Track {
	return MergeBy(existing, incoming, func(t track.Track) track.ID { return t.ID })
}

// MergeBy is Merge with an arbitrary identity key.
// Neither input is modified.
func MergeBy[T any, K comparable](existing, incoming []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(existing)+len(incoming))
	merged := make([]T, 0, len(existing)+len(incoming))
	for _, item := range existing {
		seen[key(item)] = struct{}{}
		merged = append(merged, item)
	}

	fresh := lo.Filter(incoming, func(item T, _ int) bool {
		k := key(item)
		if _, ok := seen[k]; ok {
			return false
		}
		seen[k] = struct{}{}
		return true
	})
	return append(merged, fresh...)
}

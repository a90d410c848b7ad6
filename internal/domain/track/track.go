// Package track provides the Track domain entity.
package track

import (
	"strconv"
	"strings"
	"time"
)

// ID identifies a track. It is unique within a queue.
type ID int64

// Track represents a playable unit handed to the player.
// Tracks are immutable once constructed; playback-derived fields
// (position, loaded duration) belong to the player store.
type Track struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AudioSource string `json:"audioSource"`        // URI played by the audio output
	Cover       string `json:"cover,omitempty"`    // Artwork URI
	Duration    string `json:"duration,omitempty"` // Display only, e.g. "3:45"
}

// Playable reports whether the track carries an audio source.
func (t *Track) Playable() bool {
	return strings.TrimSpace(t.AudioSource) != ""
}

// DisplayDuration parses the display duration string.
// Accepts "m:ss", "h:mm:ss" and plain seconds. Returns 0 when unparseable.
func (t *Track) DisplayDuration() time.Duration {
	return ParseDisplayDuration(t.Duration)
}

// ParseDisplayDuration parses a display duration like "3:45" or "1:02:03".
func ParseDisplayDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}

	var total float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second))
}

// IDs returns the identifiers of the given tracks in order.
func IDs(tracks []Track) []ID {
	ids := make([]ID, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// Clone returns a copy of the slice so callers cannot alias store-owned data.
func Clone(tracks []Track) []Track {
	if tracks == nil {
		return nil
	}
	out := make([]Track, len(tracks))
	copy(out, tracks)
	return out
}

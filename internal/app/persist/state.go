// Package persist saves and restores player state over a key-value store.
package persist

import (
	"math"

	"github.com/osa030/melodybox/internal/domain/track"
)

// SchemaVersion is the layout version written under KeySchemaVersion.
const SchemaVersion = 1

// Keys of the persisted layout. Each field lives under its own key.
const (
	KeySchemaVersion      = "schemaVersion"
	KeyPlaylist           = "playlist"
	KeyQueue              = "queue"
	KeyCurrentTrackIndex  = "currentTrackIndex"
	KeyIsPlaying          = "isPlaying"
	KeyCurrentTime        = "currentTime"
	KeyDuration           = "duration"
	KeyVolume             = "volume"
	KeyIsRepeat           = "isRepeat"
	KeyIsRandom           = "isRandom"
	KeyIsQueueInitialized = "isQueueInitialized"
)

// fieldKeys lists every data key, excluding the version tag.
var fieldKeys = []string{
	KeyPlaylist,
	KeyQueue,
	KeyCurrentTrackIndex,
	KeyIsPlaying,
	KeyCurrentTime,
	KeyDuration,
	KeyVolume,
	KeyIsRepeat,
	KeyIsRandom,
	KeyIsQueueInitialized,
}

// State is the persisted snapshot of the player store.
type State struct {
	Playlist           []track.Track
	Queue              []track.Track
	CurrentTrackIndex  int
	IsPlaying          bool
	CurrentTime        float64 // seconds
	Duration           float64 // seconds
	Volume             float64 // 0.0 - 1.0
	IsRepeat           bool
	IsRandom           bool
	IsQueueInitialized bool
}

// DefaultState returns the state of a player that has never run.
func DefaultState() State {
	return State{
		Playlist: []track.Track{},
		Queue:    []track.Track{},
		Volume:   1,
	}
}

// normalize clamps fields a corrupted or hand-edited store could leave out of range.
func (s *State) normalize() {
	if s.Queue == nil {
		s.Queue = []track.Track{}
	}
	if s.Playlist == nil {
		s.Playlist = []track.Track{}
	}
	switch {
	case len(s.Queue) == 0:
		s.CurrentTrackIndex = 0
	case s.CurrentTrackIndex < 0:
		s.CurrentTrackIndex = 0
	case s.CurrentTrackIndex >= len(s.Queue):
		s.CurrentTrackIndex = len(s.Queue) - 1
	}
	if s.Volume < 0 || math.IsNaN(s.Volume) {
		s.Volume = 0
	}
	if s.Volume > 1 {
		s.Volume = 1
	}
	if s.CurrentTime < 0 || math.IsNaN(s.CurrentTime) {
		s.CurrentTime = 0
	}
	if s.Duration < 0 || math.IsNaN(s.Duration) {
		s.Duration = 0
	}
}

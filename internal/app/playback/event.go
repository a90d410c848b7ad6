package playback

import "github.com/osa030/melodybox/internal/domain/track"

// EventType represents a store event type.
type EventType int

const (
	EventTrackChanged    EventType = iota // Current track changed
	EventStateChanged                     // Play/pause or audibility changed
	EventQueueChanged                     // Queue or playlist replaced or extended
	EventPositionChanged                  // Position or duration mirrored from the output
	EventModeChanged                      // Repeat or shuffle toggled
	EventVolumeChanged                    // Volume changed
	EventError                            // Playback failed or was blocked
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventPositionChanged:
		return "position_changed"
	case EventModeChanged:
		return "mode_changed"
	case EventVolumeChanged:
		return "volume_changed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event represents a store event.
type Event struct {
	Type     EventType
	Track    *track.Track // Current track (nil when the queue is empty)
	Index    int
	State    State
	Audible  bool
	Position float64
	Duration float64
	Volume   float64
	IsRepeat bool
	IsRandom bool
	QueueLen int
	Err      error // For EventError
}

// Package playback provides the player state store: queue, transport and
// its synchronization with the audio output.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No queue
	StateLoaded               // Queue present, not playing
	StatePlaying              // Playback intended
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Direction selects the neighbour track for ChangeTrack.
type Direction int

const (
	DirectionNext Direction = iota
	DirectionPrev
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionNext:
		return "next"
	case DirectionPrev:
		return "prev"
	default:
		return "unknown"
	}
}

// ParseDirection parses "next" or "prev".
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "next":
		return DirectionNext, true
	case "prev":
		return DirectionPrev, true
	default:
		return 0, false
	}
}

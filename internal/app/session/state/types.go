// Package state provides session state management.
package state

import "time"

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseStarting Phase = iota // Restoring persisted state
	PhaseRunning               // Accepting commands
	PhaseStopped               // Shut down
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// LoadKind identifies what a catalog load fetches.
type LoadKind int

const (
	LoadPlaylist LoadKind = iota // A playlist replacing the queue
	LoadMedia                    // The full media list replacing the queue
	LoadEnqueue                  // A playlist appended to the queue
	LoadTrack                    // A single media record replacing the queue
)

// String returns the string representation of the load kind.
func (k LoadKind) String() string {
	switch k {
	case LoadPlaylist:
		return "playlist"
	case LoadMedia:
		return "media"
	case LoadEnqueue:
		return "enqueue"
	case LoadTrack:
		return "track"
	default:
		return "unknown"
	}
}

// Load describes an in-flight catalog load.
type Load struct {
	Generation uint64
	Kind       LoadKind
	ID         int64 // Playlist or media ID, zero for the full media list
	StartedAt  time.Time
}

// Source describes where the current queue came from.
type Source struct {
	Kind       LoadKind
	PlaylistID int64 // Zero unless Kind is LoadPlaylist
	MediaID    int64 // Zero unless Kind is LoadTrack
	Name       string
}

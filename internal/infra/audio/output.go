// Package audio provides the audio output primitive driven by the player store.
//
// An Output has two one-way channels: commands issued by the store
// (Load, Play, Pause, Seek, SetVolume) and events reported back through
// Events. Every event carries the source it refers to, so the receiver can
// discard events about a track it has already moved past.
package audio

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNotLoaded       = errors.New("audio: no source loaded")
	ErrAutoplayBlocked = errors.New("audio: playback requires a user gesture")
	ErrClosed          = errors.New("audio: output closed")
	ErrNoListener      = errors.New("audio: no remote output attached")
)

// Output is the command side plus the event stream of an audio element.
type Output interface {
	// Load replaces the current source. Position resets to 0 and playback stops.
	Load(src string) error
	// Play starts or resumes the loaded source.
	Play(ctx context.Context) error
	Pause() error
	Seek(seconds float64) error
	SetVolume(level float64) error
	// Events returns the event stream. The channel is not closed by Close.
	Events() <-chan Event
	Close() error
}

// EventType represents an output event type.
type EventType int

const (
	EventTimeUpdate EventType = iota // Position or duration changed
	EventEnded                       // Source played to the end
	EventError                       // Source failed to load or play
	EventPlaying                     // Playback confirmed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTimeUpdate:
		return "time_update"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// ParseEventType is the inverse of EventType.String.
func ParseEventType(s string) (EventType, bool) {
	switch s {
	case "time_update":
		return EventTimeUpdate, true
	case "ended":
		return EventEnded, true
	case "error":
		return EventError, true
	case "playing":
		return EventPlaying, true
	default:
		return 0, false
	}
}

// Event is reported by an output.
type Event struct {
	Type     EventType
	Source   string  // Source the event refers to
	Position float64 // Seconds, for EventTimeUpdate
	Duration float64 // Seconds, 0 while unknown
	Err      error   // For EventError
}

type gestureKey struct{}

// WithUserGesture marks ctx as originating from a user action.
// Outputs that enforce an autoplay policy only start playback for such
// contexts until one gesture-initiated play has succeeded.
func WithUserGesture(ctx context.Context) context.Context {
	return context.WithValue(ctx, gestureKey{}, true)
}

// IsUserGesture reports whether ctx was marked by WithUserGesture.
func IsUserGesture(ctx context.Context) bool {
	v, _ := ctx.Value(gestureKey{}).(bool)
	return v
}

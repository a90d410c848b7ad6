package playback

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrInvalidIndex    = errors.New("track index out of range")
	ErrEmptyQueue      = errors.New("queue is empty")
	ErrPlayback        = errors.New("playback failed")
	ErrAutoplayBlocked = errors.New("autoplay blocked until a user gesture")
)

// PlaybackError reports a source the output could not load or play.
// It matches ErrPlayback, so both errors.Is(err, ErrPlayback) and
// errors.As(err, **PlaybackError) hold.
type PlaybackError struct {
	Source string
	Cause  error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed for %s: %v", e.Source, e.Cause)
}

func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

func (e *PlaybackError) Is(target error) bool {
	return target == ErrPlayback
}

func newPlaybackError(source string, cause error) error {
	return errors.WithStack(&PlaybackError{Source: source, Cause: cause})
}

package playback

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodybox/internal/app/persist"
	"github.com/osa030/melodybox/internal/domain/track"
	"github.com/osa030/melodybox/internal/infra/audio"
)

// Run consumes output events until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	events := s.output.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleOutputEvent(ctx, e)
		}
	}
}

// HandleOutputEvent applies one output event. Events about a source other
// than the current track's are stale and ignored. Position updates only
// mirror into the store and never cause a command. A playing event never
// overrides a pause the store already commanded.
func (s *Store) HandleOutputEvent(ctx context.Context, e audio.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || e.Source != s.queue[s.index].AudioSource {
		zlog.Debug().Msgf("playback: ignoring stale %s event source=%s", e.Type, e.Source)
		return
	}

	switch e.Type {
	case audio.EventTimeUpdate:
		s.onTimeUpdateLocked(e)

	case audio.EventPlaying:
		// A confirmation that raced a pause must not restart playback.
		if !s.isPlaying {
			zlog.Debug().Msgf("playback: late playing event after pause source=%s", e.Source)
			if err := s.output.Pause(); err != nil {
				zlog.Warn().Msgf("playback: output pause failed: %v", err)
			}
			return
		}
		s.isPlaying = true
		s.audible = true
		s.awaitingGesture = false
		s.advancing = false
		s.skipFailures = 0
		s.lastError = nil
		s.emitLocked(EventStateChanged, nil)
		s.saveLocked()

	case audio.EventEnded:
		s.onEndedLocked(ctx)
		s.saveLocked()

	case audio.EventError:
		s.onErrorLocked(ctx, e)
		s.saveLocked()
	}
}

func (s *Store) onTimeUpdateLocked(e audio.Event) {
	changed := false
	if e.Duration > 0 && !math.IsInf(e.Duration, 0) && e.Duration != s.duration {
		s.duration = e.Duration
		changed = true
	}
	// Before playback is confirmed the output reports its own reset
	// position, which must not clobber a restored resume point.
	if s.audible && e.Position != s.currentTime {
		s.currentTime = e.Position
		changed = true
	}
	if !changed {
		return
	}
	s.emitLocked(EventPositionChanged, nil)

	if s.audible && s.persister != nil {
		currentTime, duration := s.currentTime, s.duration
		s.positionSave.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			if err := s.persister.SavePosition(ctx, currentTime, duration); err != nil {
				s.saveFailures++
				zlog.Warn().Msgf("playback: failed to save position: %v", err)
			}
		})
	}
}

func (s *Store) onEndedLocked(ctx context.Context) {
	if !s.isPlaying {
		return
	}
	s.audible = false

	if s.isRepeat {
		s.currentTime = 0
		s.emitLocked(EventPositionChanged, nil)
		if err := s.output.Seek(0); err != nil {
			_ = s.failLocked(newPlaybackError(s.loadedSource, err))
			return
		}
		if err := s.playLocked(ctx); err != nil {
			_ = s.failLocked(err)
		}
		return
	}

	s.skipFailures = 0
	s.advanceLocked(ctx)
}

func (s *Store) onErrorLocked(ctx context.Context, e audio.Event) {
	cause := e.Err
	if cause == nil {
		cause = errors.New("output reported an error")
	}

	if errors.Is(cause, audio.ErrAutoplayBlocked) {
		_ = s.failLocked(errors.Wrapf(ErrAutoplayBlocked, "source %s", e.Source))
		return
	}

	err := newPlaybackError(e.Source, cause)
	if !s.advancing {
		_ = s.failLocked(err)
		return
	}

	s.skipFailures++
	zlog.Warn().Msgf("playback: skipping unplayable track index=%d failures=%d: %v", s.index, s.skipFailures, err)
	if s.skipFailures >= s.skipLimitLocked() {
		s.advancing = false
		_ = s.failLocked(err)
		return
	}
	s.advanceLocked(ctx)
}

// advanceLocked moves to the next track after the current one finished,
// skipping unplayable tracks up to the retry limit.
func (s *Store) advanceLocked(ctx context.Context) {
	for {
		s.index = s.pickLocked(DirectionNext)
		s.isPlaying = true
		s.advancing = true
		s.emitLocked(EventTrackChanged, nil)

		err := s.loadLocked()
		if err == nil {
			err = s.playLocked(ctx)
		}
		if err == nil {
			return
		}
		if errors.Is(err, ErrAutoplayBlocked) {
			_ = s.failLocked(err)
			return
		}

		s.skipFailures++
		zlog.Warn().Msgf("playback: skipping unplayable track index=%d failures=%d: %v", s.index, s.skipFailures, err)
		if s.skipFailures >= s.skipLimitLocked() {
			s.advancing = false
			_ = s.failLocked(err)
			return
		}
	}
}

func (s *Store) skipLimitLocked() int {
	return max(1, min(s.config.MaxSkipRetries, len(s.queue)))
}

// startLocked plays the current track on behalf of a user command.
// With reload, or when the output holds another source, the source is
// loaded first.
func (s *Store) startLocked(ctx context.Context, reload bool) error {
	s.isPlaying = true
	s.advancing = false
	s.skipFailures = 0

	if reload || s.loadedSource != s.queue[s.index].AudioSource {
		if err := s.loadLocked(); err != nil {
			return s.failLocked(err)
		}
	}
	if err := s.playLocked(ctx); err != nil {
		return s.failLocked(err)
	}
	s.awaitingGesture = false
	return nil
}

func (s *Store) loadLocked() error {
	src := s.queue[s.index].AudioSource
	s.currentTime, s.duration = 0, 0
	s.audible = false

	if src == "" {
		s.loadedSource = ""
		return newPlaybackError(src, errors.Newf("track %d has no audio source", s.queue[s.index].ID))
	}
	if err := s.output.Load(src); err != nil {
		s.loadedSource = ""
		return newPlaybackError(src, err)
	}
	s.loadedSource = src
	return nil
}

func (s *Store) playLocked(ctx context.Context) error {
	if err := s.output.Play(ctx); err != nil {
		if errors.Is(err, audio.ErrAutoplayBlocked) {
			return errors.Wrapf(ErrAutoplayBlocked, "source %s", s.loadedSource)
		}
		return newPlaybackError(s.loadedSource, err)
	}
	return nil
}

// failLocked records a playback failure and returns err.
// A blocked autoplay keeps the intent to play so the next gesture resumes;
// any other failure stops playback.
func (s *Store) failLocked(err error) error {
	s.audible = false
	s.lastError = err

	if errors.Is(err, ErrAutoplayBlocked) {
		s.awaitingGesture = true
		zlog.Warn().Msgf("playback: %v", err)
		s.emitLocked(EventError, err)
		return err
	}

	s.isPlaying = false
	s.awaitingGesture = false
	zlog.Error().Msgf("playback: %v", err)
	s.emitLocked(EventError, err)
	return err
}

// replaceLocked installs a new queue, following the current track by id
// when it survives and clamping the index otherwise.
func (s *Store) replaceLocked(ctx context.Context, tracks []track.Track, withPlaylist bool) error {
	prev := s.currentLocked()

	s.queue = tracks
	if withPlaylist {
		s.playlist = track.Clone(tracks)
	}
	s.initialized = true

	switch {
	case len(s.queue) == 0:
		s.index = 0
	case prev != nil && s.indexOfLocked(prev.ID) >= 0:
		s.index = s.indexOfLocked(prev.ID)
	case s.index >= len(s.queue):
		s.index = len(s.queue) - 1
	case s.index < 0:
		s.index = 0
	}

	s.emitLocked(EventQueueChanged, nil)
	return s.syncSourceLocked(ctx, prev)
}

// syncSourceLocked reassigns the output source when the current track's
// identity changed, restarting playback if it is intended.
func (s *Store) syncSourceLocked(ctx context.Context, prev *track.Track) error {
	if len(s.queue) == 0 {
		if s.loadedSource != "" {
			if err := s.output.Pause(); err != nil {
				zlog.Warn().Msgf("playback: output pause failed: %v", err)
			}
			s.loadedSource = ""
		}
		s.currentTime, s.duration = 0, 0
		s.audible = false
		s.awaitingGesture = false
		if s.isPlaying {
			s.isPlaying = false
			s.emitLocked(EventStateChanged, nil)
		}
		if prev != nil {
			s.emitLocked(EventTrackChanged, nil)
		}
		return nil
	}

	cur := s.queue[s.index]
	if prev != nil && prev.ID == cur.ID && s.loadedSource == cur.AudioSource {
		return nil
	}

	s.emitLocked(EventTrackChanged, nil)
	if s.isPlaying && !s.awaitingGesture {
		err := s.startLocked(ctx, true)
		s.emitLocked(EventStateChanged, nil)
		return err
	}
	if err := s.loadLocked(); err != nil {
		s.lastError = err
		s.emitLocked(EventError, err)
		return err
	}
	return nil
}

func (s *Store) pickLocked(dir Direction) int {
	n := len(s.queue)
	if s.isRandom {
		if n > 1 && s.config.ShuffleAvoidCurrent {
			i := s.config.Intn(n - 1)
			if i >= s.index {
				i++
			}
			return i
		}
		return s.config.Intn(n)
	}
	if dir == DirectionPrev {
		return (s.index - 1 + n) % n
	}
	return (s.index + 1) % n
}

func (s *Store) indexOfLocked(id track.ID) int {
	for i, t := range s.queue {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) currentLocked() *track.Track {
	if len(s.queue) == 0 {
		return nil
	}
	t := s.queue[s.index]
	return &t
}

func (s *Store) stateLocked() State {
	switch {
	case len(s.queue) == 0:
		return StateIdle
	case s.isPlaying:
		return StatePlaying
	default:
		return StateLoaded
	}
}

func (s *Store) persistStateLocked() persist.State {
	return persist.State{
		Playlist:           track.Clone(s.playlist),
		Queue:              track.Clone(s.queue),
		CurrentTrackIndex:  s.index,
		IsPlaying:          s.isPlaying,
		CurrentTime:        s.currentTime,
		Duration:           s.duration,
		Volume:             s.volume,
		IsRepeat:           s.isRepeat,
		IsRandom:           s.isRandom,
		IsQueueInitialized: s.initialized,
	}
}

// saveLocked writes a checkpoint. Failures are logged and counted, never
// returned to the caller of the mutator.
func (s *Store) saveLocked() {
	if s.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.persister.Save(ctx, s.persistStateLocked()); err != nil {
		s.saveFailures++
		zlog.Error().Msgf("playback: failed to save player state: %v", err)
	}
}

// emitLocked sends an event without blocking.
// Must be called with lock held.
func (s *Store) emitLocked(t EventType, err error) {
	if s.closed {
		return
	}
	e := Event{
		Type:     t,
		Track:    s.currentLocked(),
		Index:    s.index,
		State:    s.stateLocked(),
		Audible:  s.audible,
		Position: s.currentTime,
		Duration: s.duration,
		Volume:   s.volume,
		IsRepeat: s.isRepeat,
		IsRandom: s.isRandom,
		QueueLen: len(s.queue),
		Err:      err,
	}
	select {
	case s.eventCh <- e:
	default:
		// Channel full, drop event
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

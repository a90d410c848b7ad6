package playback

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/osa030/melodybox/internal/app/filter"
	"github.com/osa030/melodybox/internal/app/persist"
	"github.com/osa030/melodybox/internal/domain/playlist"
	"github.com/osa030/melodybox/internal/domain/track"
	"github.com/osa030/melodybox/internal/infra/audio"
)

const saveTimeout = 5 * time.Second

// Config holds store configuration.
type Config struct {
	MaxSkipRetries       int             // Consecutive unplayable tracks skipped before stopping
	ShuffleAvoidCurrent  bool            // Shuffle never reselects the current track when len > 1
	PositionSaveInterval time.Duration   // Minimum spacing of position-only saves
	EventBuffer          int             // Capacity of the event channel
	Intn                 func(n int) int // Random source for shuffle; defaults to math/rand/v2
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxSkipRetries:       3,
		ShuffleAvoidCurrent:  true,
		PositionSaveInterval: 5 * time.Second,
		EventBuffer:          100,
	}
}

// Persister saves and restores the persisted part of the store.
type Persister interface {
	Load(ctx context.Context) (persist.State, error)
	Save(ctx context.Context, s persist.State) error
	SavePosition(ctx context.Context, currentTime, duration float64) error
}

// Snapshot is a consistent read of the store.
type Snapshot struct {
	Playlist           []track.Track
	Queue              []track.Track
	CurrentTrackIndex  int
	CurrentTrack       *track.Track // nil when the queue is empty
	State              State
	IsPlaying          bool // Intent; see Audible
	Audible            bool // The output confirmed playback of the current source
	CurrentTime        float64
	Duration           float64
	Volume             float64
	IsRepeat           bool
	IsRandom           bool
	IsQueueInitialized bool
	LastError          error
}

// Store is the single source of truth for what is playing, from which
// queue, and in what transport state. Every mutation goes through its
// methods; the audio output only ever reports back through events.
type Store struct {
	mu sync.RWMutex

	// Persisted state
	playlist    []track.Track
	queue       []track.Track
	index       int
	isPlaying   bool
	currentTime float64
	duration    float64
	volume      float64
	isRepeat    bool
	isRandom    bool
	initialized bool

	// Output synchronization
	output          audio.Output
	loadedSource    string // Source last loaded into the output
	audible         bool
	awaitingGesture bool // Playing is intended but the output refused to start on its own
	advancing       bool // The current track was reached by auto-advance
	skipFailures    int
	lastError       error

	persister    Persister
	positionSave rate.Sometimes
	saveFailures int

	filters *filter.Chain
	config  Config

	// Events
	eventCh chan Event
	closed  bool
}

// NewStore creates a store with an empty queue. Call Restore to resume
// persisted state.
func NewStore(output audio.Output, persister Persister, filters *filter.Chain, config Config) *Store {
	if config.MaxSkipRetries <= 0 {
		config.MaxSkipRetries = 3
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 100
	}
	if config.Intn == nil {
		config.Intn = rand.IntN
	}
	s := &Store{
		playlist:  []track.Track{},
		queue:     []track.Track{},
		volume:    1,
		output:    output,
		persister: persister,
		filters:   filters,
		config:    config,
		eventCh:   make(chan Event, config.EventBuffer),
	}
	// A zero Sometimes fires only once
	if config.PositionSaveInterval > 0 {
		s.positionSave.Interval = config.PositionSaveInterval
	} else {
		s.positionSave.Every = 1
	}
	return s
}

// Events returns the event channel.
func (s *Store) Events() <-chan Event {
	return s.eventCh
}

// Restore loads persisted state and seeds the output with the current
// source, position and volume. Playback is not started: a persisted
// IsPlaying only records intent, and Resume acts on it.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	st, err := s.persister.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to restore player state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.playlist = st.Playlist
	s.queue = st.Queue
	s.index = st.CurrentTrackIndex
	s.isPlaying = st.IsPlaying && len(st.Queue) > 0
	s.volume = st.Volume
	s.isRepeat = st.IsRepeat
	s.isRandom = st.IsRandom
	s.initialized = st.IsQueueInitialized
	s.audible = false
	s.awaitingGesture = s.isPlaying

	if err := s.output.SetVolume(s.volume); err != nil {
		zlog.Warn().Msgf("playback: failed to apply restored volume: %v", err)
	}

	if len(s.queue) > 0 {
		resumeAt, duration := st.CurrentTime, st.Duration
		if err := s.loadLocked(); err != nil {
			s.lastError = err
			zlog.Warn().Msgf("playback: failed to load restored track: %v", err)
		} else {
			s.currentTime, s.duration = resumeAt, duration
			if resumeAt > 0 {
				if err := s.output.Seek(resumeAt); err != nil {
					zlog.Warn().Msgf("playback: failed to seek restored track: %v", err)
				}
			}
		}
	}

	zlog.Info().Msgf("playback: restored state tracks=%d index=%d playing=%t", len(s.queue), s.index, s.isPlaying)
	s.emitLocked(EventQueueChanged, nil)
	s.emitLocked(EventTrackChanged, nil)
	s.emitLocked(EventStateChanged, nil)
	return nil
}

// PlayTrack starts the track at index. With tracks, the queue and
// playlist are replaced first and index refers to the new list.
func (s *Store) PlayTrack(ctx context.Context, index int, tracks ...track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tracks) > 0 {
		if index < 0 || index >= len(tracks) {
			return errors.Wrapf(ErrInvalidIndex, "index %d for %d tracks", index, len(tracks))
		}
		s.playlist = track.Clone(tracks)
		s.queue = track.Clone(tracks)
		s.initialized = true
		s.emitLocked(EventQueueChanged, nil)
	} else {
		if len(s.queue) == 0 {
			return ErrEmptyQueue
		}
		if index < 0 || index >= len(s.queue) {
			return errors.Wrapf(ErrInvalidIndex, "index %d for %d tracks", index, len(s.queue))
		}
	}
	defer s.saveLocked()

	s.index = index
	s.emitLocked(EventTrackChanged, nil)
	err := s.startLocked(ctx, true)
	s.emitLocked(EventStateChanged, nil)
	return err
}

// TogglePlay pauses when playing and plays when paused. While the output
// is waiting for a user gesture it resumes instead of pausing.
func (s *Store) TogglePlay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return ErrEmptyQueue
	}
	defer s.saveLocked()

	if s.isPlaying && !s.awaitingGesture {
		if err := s.output.Pause(); err != nil {
			zlog.Warn().Msgf("playback: output pause failed: %v", err)
		}
		s.isPlaying = false
		s.audible = false
		s.emitLocked(EventStateChanged, nil)
		return nil
	}

	err := s.startLocked(ctx, false)
	s.emitLocked(EventStateChanged, nil)
	return err
}

// Resume starts the current track when playback is intended but not
// audible, typically after a restart. It is a no-op when already audible.
func (s *Store) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return ErrEmptyQueue
	}
	if s.isPlaying && s.audible {
		return nil
	}
	defer s.saveLocked()

	err := s.startLocked(ctx, false)
	s.emitLocked(EventStateChanged, nil)
	return err
}

// SeekTime moves the position, clamped to [0, duration].
func (s *Store) SeekTime(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return ErrEmptyQueue
	}

	seconds = clamp(seconds, 0, s.duration)
	if err := s.output.Seek(seconds); err != nil {
		return newPlaybackError(s.loadedSource, err)
	}
	s.currentTime = seconds
	s.emitLocked(EventPositionChanged, nil)
	s.saveLocked()
	return nil
}

// HandleVolumeChange sets the volume, clamped to [0, 1]. The store only
// records the level once the output has accepted it.
func (s *Store) HandleVolumeChange(level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	level = clamp(level, 0, 1)
	if err := s.output.SetVolume(level); err != nil {
		return errors.Wrap(err, "failed to set output volume")
	}
	s.volume = level
	s.emitLocked(EventVolumeChanged, nil)
	s.saveLocked()
	return nil
}

// ChangeTrack moves to the next or previous track, or to a random one in
// shuffle mode, and plays it.
func (s *Store) ChangeTrack(ctx context.Context, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return ErrEmptyQueue
	}
	defer s.saveLocked()

	s.index = s.pickLocked(dir)
	s.emitLocked(EventTrackChanged, nil)
	err := s.startLocked(ctx, true)
	s.emitLocked(EventStateChanged, nil)
	return err
}

// JumpTo plays the track at index of the current queue.
func (s *Store) JumpTo(ctx context.Context, index int) error {
	return s.PlayTrack(ctx, index)
}

// ToggleRepeat flips repeat-one and returns the new value.
func (s *Store) ToggleRepeat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRepeat = !s.isRepeat
	s.emitLocked(EventModeChanged, nil)
	s.saveLocked()
	return s.isRepeat
}

// ToggleRandom flips shuffle and returns the new value.
func (s *Store) ToggleRandom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isRandom = !s.isRandom
	s.emitLocked(EventModeChanged, nil)
	s.saveLocked()
	return s.isRandom
}

// UpdateQueue replaces the queue. The playlist is kept.
// Tracks rejected by the filter chain are left out and returned, and
// repeated ids collapse to their first occurrence. It returns the length
// of the new queue.
func (s *Store) UpdateQueue(ctx context.Context, tracks []track.Track) (int, []filter.Rejection, error) {
	return s.replace(ctx, tracks, false)
}

// UpdatePlaylist replaces both the playlist and the queue.
func (s *Store) UpdatePlaylist(ctx context.Context, tracks []track.Track) (int, []filter.Rejection, error) {
	return s.replace(ctx, tracks, true)
}

func (s *Store) replace(ctx context.Context, tracks []track.Track, withPlaylist bool) (int, []filter.Rejection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.saveLocked()

	accepted, rejected := s.filters.Admit(ctx, tracks, nil, filter.OriginReplace)
	queue := playlist.Merge(nil, accepted)
	err := s.replaceLocked(ctx, queue, withPlaylist)
	return len(queue), rejected, err
}

// AddToQueue reconciles incoming tracks with the queue. A queue that was
// never initialized adopts them. Otherwise only unseen ids are appended,
// keeping the existing order and the current position. It returns the
// number of tracks added and the ones the filter chain rejected.
func (s *Store) AddToQueue(ctx context.Context, tracks []track.Track) (int, []filter.Rejection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.saveLocked()

	if !s.initialized {
		accepted, rejected := s.filters.Admit(ctx, tracks, nil, filter.OriginAppend)
		adopted := playlist.Merge(nil, accepted)
		err := s.replaceLocked(ctx, adopted, false)
		return len(adopted), rejected, err
	}

	accepted, rejected := s.filters.Admit(ctx, tracks, s.queue, filter.OriginAppend)
	wasEmpty := len(s.queue) == 0
	merged := playlist.Merge(s.queue, accepted)
	added := len(merged) - len(s.queue)
	if added == 0 {
		return 0, rejected, nil
	}

	s.queue = merged
	s.emitLocked(EventQueueChanged, nil)
	zlog.Debug().Msgf("playback: appended %d tracks, queue now %d", added, len(s.queue))

	if wasEmpty {
		return added, rejected, s.syncSourceLocked(ctx, nil)
	}
	return added, rejected, nil
}

// Clear empties the queue and playlist and stops the output.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.saveLocked()

	s.playlist = []track.Track{}
	err := s.replaceLocked(ctx, []track.Track{}, false)
	s.initialized = false
	s.lastError = nil
	return err
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Playlist:           track.Clone(s.playlist),
		Queue:              track.Clone(s.queue),
		CurrentTrackIndex:  s.index,
		CurrentTrack:       s.currentLocked(),
		State:              s.stateLocked(),
		IsPlaying:          s.isPlaying,
		Audible:            s.audible,
		CurrentTime:        s.currentTime,
		Duration:           s.duration,
		Volume:             s.volume,
		IsRepeat:           s.isRepeat,
		IsRandom:           s.isRandom,
		IsQueueInitialized: s.initialized,
		LastError:          s.lastError,
	}
}

// SaveFailures returns the number of failed state saves.
func (s *Store) SaveFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveFailures
}

// Close stops event delivery. The output is owned by the caller.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.eventCh)
}

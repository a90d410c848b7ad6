package persist

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodybox/internal/domain/track"
	"github.com/osa030/melodybox/internal/infra/kv"
)

// Persister writes State field by field under a key namespace.
type Persister struct {
	store     kv.Store
	namespace string
}

// New creates a persister. An empty namespace stores bare field keys.
func New(store kv.Store, namespace string) *Persister {
	return &Persister{store: store, namespace: namespace}
}

func (p *Persister) key(field string) string {
	if p.namespace == "" {
		return field
	}
	return p.namespace + ":" + field
}

// Save writes every field and the schema version. All fields are attempted
// even when some fail; the failures are combined into the returned error.
func (p *Persister) Save(ctx context.Context, s State) error {
	values := map[string]any{
		KeyPlaylist:           nonNil(s.Playlist),
		KeyQueue:              nonNil(s.Queue),
		KeyCurrentTrackIndex:  s.CurrentTrackIndex,
		KeyIsPlaying:          s.IsPlaying,
		KeyCurrentTime:        s.CurrentTime,
		KeyDuration:           s.Duration,
		KeyVolume:             s.Volume,
		KeyIsRepeat:           s.IsRepeat,
		KeyIsRandom:           s.IsRandom,
		KeyIsQueueInitialized: s.IsQueueInitialized,
	}

	var result error
	for _, field := range fieldKeys {
		if err := p.put(ctx, field, values[field]); err != nil {
			result = errors.CombineErrors(result, err)
		}
	}
	if err := p.put(ctx, KeySchemaVersion, SchemaVersion); err != nil {
		result = errors.CombineErrors(result, err)
	}
	return result
}

// SavePosition writes only the playback position hint.
func (p *Persister) SavePosition(ctx context.Context, currentTime, duration float64) error {
	return errors.CombineErrors(
		p.put(ctx, KeyCurrentTime, currentTime),
		p.put(ctx, KeyDuration, duration),
	)
}

func (p *Persister) put(ctx context.Context, field string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", field)
	}
	if err := p.store.Set(ctx, p.key(field), data); err != nil {
		return errors.Wrapf(err, "failed to persist %s", field)
	}
	return nil
}

// Load restores State.
//
// A store with no version tag but existing fields is treated as the
// unversioned layout and migrated in place. A store tagged with an unknown
// version is reset to defaults. Fields that fail to decode fall back to
// their defaults.
func (p *Persister) Load(ctx context.Context) (State, error) {
	version, found, err := p.readVersion(ctx)
	if err != nil {
		return DefaultState(), err
	}

	switch {
	case found && version == SchemaVersion:
		return p.decode(ctx, false)

	case found:
		zlog.Warn().Msgf("persist: unknown schema version %d, resetting player state", version)
		if err := p.Reset(ctx); err != nil {
			return DefaultState(), err
		}
		return DefaultState(), nil
	}

	present, err := p.anyFieldPresent(ctx)
	if err != nil {
		return DefaultState(), err
	}
	if !present {
		return DefaultState(), nil
	}

	zlog.Info().Msg("persist: migrating unversioned player state")
	s, err := p.decode(ctx, true)
	if err != nil {
		return s, err
	}
	if err := p.Save(ctx, s); err != nil {
		return s, errors.Wrap(err, "failed to rewrite migrated state")
	}
	return s, nil
}

// Reset deletes every persisted key.
func (p *Persister) Reset(ctx context.Context) error {
	var result error
	for _, field := range append([]string{KeySchemaVersion}, fieldKeys...) {
		if err := p.store.Delete(ctx, p.key(field)); err != nil {
			result = errors.CombineErrors(result, errors.Wrapf(err, "failed to delete %s", field))
		}
	}
	return result
}

func (p *Persister) readVersion(ctx context.Context) (int, bool, error) {
	data, err := p.store.Get(ctx, p.key(KeySchemaVersion))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to read schema version")
	}
	v, err := strconv.Atoi(string(data))
	if err != nil {
		// an unreadable tag is as good as an unknown one
		return -1, true, nil
	}
	return v, true, nil
}

func (p *Persister) anyFieldPresent(ctx context.Context) (bool, error) {
	for _, field := range fieldKeys {
		_, err := p.store.Get(ctx, p.key(field))
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return false, errors.Wrapf(err, "failed to read %s", field)
		}
	}
	return false, nil
}

func (p *Persister) decode(ctx context.Context, legacy bool) (State, error) {
	s := DefaultState()

	decodeTracks := func(data []byte) ([]track.Track, error) {
		if legacy {
			return decodeLegacyTracks(data)
		}
		var ts []track.Track
		err := json.Unmarshal(data, &ts)
		return ts, err
	}

	targets := map[string]func([]byte) error{
		KeyPlaylist: func(b []byte) error {
			ts, err := decodeTracks(b)
			if err == nil {
				s.Playlist = ts
			}
			return err
		},
		KeyQueue: func(b []byte) error {
			ts, err := decodeTracks(b)
			if err == nil {
				s.Queue = ts
			}
			return err
		},
		KeyCurrentTrackIndex:  func(b []byte) error { return json.Unmarshal(b, &s.CurrentTrackIndex) },
		KeyIsPlaying:          func(b []byte) error { return json.Unmarshal(b, &s.IsPlaying) },
		KeyCurrentTime:        func(b []byte) error { return json.Unmarshal(b, &s.CurrentTime) },
		KeyDuration:           func(b []byte) error { return json.Unmarshal(b, &s.Duration) },
		KeyVolume:             func(b []byte) error { return json.Unmarshal(b, &s.Volume) },
		KeyIsRepeat:           func(b []byte) error { return json.Unmarshal(b, &s.IsRepeat) },
		KeyIsRandom:           func(b []byte) error { return json.Unmarshal(b, &s.IsRandom) },
		KeyIsQueueInitialized: func(b []byte) error { return json.Unmarshal(b, &s.IsQueueInitialized) },
	}

	defaults := DefaultState()
	for _, field := range fieldKeys {
		data, err := p.store.Get(ctx, p.key(field))
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return DefaultState(), errors.Wrapf(err, "failed to read %s", field)
		}
		if err := targets[field](data); err != nil {
			zlog.Warn().Msgf("persist: discarding undecodable %s: %v", field, err)
			restoreDefault(&s, &defaults, field)
		}
	}

	s.normalize()
	return s, nil
}

// restoreDefault resets one field after a partial decode may have touched it.
func restoreDefault(s, d *State, field string) {
	switch field {
	case KeyPlaylist:
		s.Playlist = d.Playlist
	case KeyQueue:
		s.Queue = d.Queue
	case KeyCurrentTrackIndex:
		s.CurrentTrackIndex = d.CurrentTrackIndex
	case KeyIsPlaying:
		s.IsPlaying = d.IsPlaying
	case KeyCurrentTime:
		s.CurrentTime = d.CurrentTime
	case KeyDuration:
		s.Duration = d.Duration
	case KeyVolume:
		s.Volume = d.Volume
	case KeyIsRepeat:
		s.IsRepeat = d.IsRepeat
	case KeyIsRandom:
		s.IsRandom = d.IsRandom
	case KeyIsQueueInitialized:
		s.IsQueueInitialized = d.IsQueueInitialized
	}
}

func nonNil(ts []track.Track) []track.Track {
	if ts == nil {
		return []track.Track{}
	}
	return ts
}

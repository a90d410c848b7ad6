// Package session wires the player store to its output, the media catalog
// and the notification stream.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/melodybox/internal/api/playerapi"
	"github.com/osa030/melodybox/internal/app/filter"
	"github.com/osa030/melodybox/internal/app/notification"
	"github.com/osa030/melodybox/internal/app/playback"
	"github.com/osa030/melodybox/internal/app/session/state"
	"github.com/osa030/melodybox/internal/domain/playlist"
	"github.com/osa030/melodybox/internal/domain/track"
	"github.com/osa030/melodybox/internal/infra/audio"
	"github.com/osa030/melodybox/internal/infra/catalog"
	"github.com/osa030/melodybox/internal/infra/config"
)

var (
	ErrSessionNotRunning = errors.New("session is not running")
	ErrSuperseded        = errors.New("load superseded by a newer request")
	ErrNoCatalog         = errors.New("catalog is not configured")
	ErrNotRemote         = errors.New("output is not remote")
)

// Catalog is the media backend as seen by the session.
type Catalog interface {
	ListMedia(ctx context.Context) ([]catalog.Media, error)
	GetPlaylist(ctx context.Context, id int64) (*catalog.PlaylistDetail, error)
	GetMedia(ctx context.Context, id int64) (*catalog.Media, error)
	ToTracks(medias []catalog.Media) []track.Track
}

// Manager manages the player session.
type Manager struct {
	// Configuration
	config *config.Config

	// Components
	stateMgr     *state.Manager
	store        *playback.Store
	output       audio.Output
	remote       *audio.Remote // Set when the output is remote
	catalog      Catalog       // Optional
	notification *notification.Manager

	// Serializes queue replacements with the currency check of catalog loads
	applyMu sync.Mutex

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
	once   sync.Once
}

// NewManager creates a new session manager. cat may be nil when no
// catalog is configured.
func NewManager(
	cfg *config.Config,
	output audio.Output,
	persister playback.Persister,
	cat Catalog,
) (*Manager, error) {
	chain, err := BuildFilterChain(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build filter chain")
	}

	store := playback.NewStore(output, persister, chain, playback.Config{
		MaxSkipRetries:       cfg.Player.MaxSkipRetries,
		ShuffleAvoidCurrent:  cfg.ShuffleAvoidsCurrent(),
		PositionSaveInterval: cfg.PositionSaveInterval(),
		EventBuffer:          cfg.Player.EventBuffer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:       cfg,
		stateMgr:     state.New(),
		store:        store,
		output:       output,
		catalog:      cat,
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	if r, ok := output.(*audio.Remote); ok {
		m.remote = r
	}
	return m, nil
}

// BuildFilterChain creates the admission chain from the registered filters.
// The missing source filter always runs first; others run in name order
// when enabled.
func BuildFilterChain(cfg *config.Config) (*filter.Chain, error) {
	chain := filter.NewChain()
	chain.Add(&filter.MissingSourceFilter{})

	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == "missing_source_filter" || !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registered[name]()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("session: filter enabled name=%s", name)
	}

	for name := range cfg.Filters {
		if _, ok := registered[name]; !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
	}
	return chain, nil
}

// Start restores persisted state and starts the event loops.
func (m *Manager) Start(ctx context.Context) error {
	if m.stateMgr.GetPhase() != state.PhaseStarting {
		return errors.New("session already started")
	}

	if m.config.RestoresOnStart() {
		if err := m.store.Restore(ctx); err != nil {
			return err
		}
	}

	group, gctx := errgroup.WithContext(m.ctx)
	group.Go(func() error {
		return m.store.Run(gctx)
	})
	group.Go(func() error {
		m.forwardEvents(gctx)
		return nil
	})
	m.group = group

	m.stateMgr.SetPhase(state.PhaseRunning)
	snap := m.store.Snapshot()
	zlog.Info().Msgf("session: started tracks=%d index=%d playing=%t", len(snap.Queue), snap.CurrentTrackIndex, snap.IsPlaying)
	return nil
}

// Done returns a channel that is closed when the session is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Store returns the player store.
func (m *Manager) Store() *playback.Store {
	return m.store
}

// Remote returns the remote output, or nil when the output is local.
func (m *Manager) Remote() *audio.Remote {
	return m.remote
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Source returns where the current queue came from, or nil when the
// caller built it.
func (m *Manager) Source() *state.Source {
	return m.stateMgr.GetSource()
}

// Playlist returns the current playlist with its catalog identity. The ID
// is zero for lists the caller built.
func (m *Manager) Playlist() playlist.Playlist {
	p := playlist.Playlist{Tracks: m.store.Snapshot().Playlist}
	if src := m.stateMgr.GetSource(); src != nil {
		p.ID = src.PlaylistID
		p.Name = src.Name
	}
	return p
}

// State returns the API view of the store together with the queue's source.
func (m *Manager) State() playerapi.PlayerState {
	st := StateToAPI(m.store.Snapshot())
	st.Source = SourceToAPI(m.stateMgr.GetSource(), m.Playlist())
	return st
}

// PlayTracks replaces the queue and playlist with tracks and plays the one
// at index. Without tracks it fails with ErrEmptyQueue.
func (m *Manager) PlayTracks(ctx context.Context, index int, tracks []track.Track) error {
	if len(tracks) == 0 {
		return playback.ErrEmptyQueue
	}
	return m.replaceDirect(func() error {
		return m.store.PlayTrack(ctx, index, tracks...)
	})
}

// UpdatePlaylist replaces the playlist and queue with tracks.
func (m *Manager) UpdatePlaylist(ctx context.Context, tracks []track.Track) (int, []filter.Rejection, error) {
	var (
		n        int
		rejected []filter.Rejection
	)
	err := m.replaceDirect(func() error {
		var err error
		n, rejected, err = m.store.UpdatePlaylist(ctx, tracks)
		return err
	})
	return n, rejected, err
}

// Clear empties the store.
func (m *Manager) Clear(ctx context.Context) error {
	return m.replaceDirect(func() error {
		return m.store.Clear(ctx)
	})
}

// replaceDirect runs a replacement of the playlist built by the caller.
// It supersedes any in-flight catalog load and forgets the catalog source.
func (m *Manager) replaceDirect(replace func() error) error {
	m.stateMgr.Supersede()

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	err := replace()
	if replaced(err) {
		m.stateMgr.ClearSource()
	}
	return err
}

// replaced reports whether a playlist replacement reached the store.
// These errors are returned before anything changes.
func replaced(err error) bool {
	return !errors.Is(err, playback.ErrInvalidIndex) && !errors.Is(err, playback.ErrEmptyQueue)
}

// LoadPlaylist fetches a playlist and plays the track at index.
// A newer load cancels this one, which then returns ErrSuperseded.
func (m *Manager) LoadPlaylist(ctx context.Context, playlistID int64, index int) error {
	var name string
	return m.load(ctx, state.LoadPlaylist, playlistID,
		func(ctx context.Context) ([]track.Track, error) {
			detail, err := m.catalog.GetPlaylist(ctx, playlistID)
			if err != nil {
				return nil, err
			}
			name = detail.Playlist.Name
			return m.catalog.ToTracks(detail.Medias), nil
		},
		func(ctx context.Context, tracks []track.Track) error {
			if len(tracks) == 0 {
				return errors.Wrapf(playback.ErrEmptyQueue, "playlist %d has no playable tracks", playlistID)
			}
			err := m.store.PlayTrack(ctx, index, tracks...)
			if replaced(err) {
				m.stateMgr.SetSource(state.Source{Kind: state.LoadPlaylist, PlaylistID: playlistID, Name: name})
			}
			return err
		})
}

// LoadMedia fetches the full media list and plays the track at index.
func (m *Manager) LoadMedia(ctx context.Context, index int) error {
	return m.load(ctx, state.LoadMedia, 0,
		func(ctx context.Context) ([]track.Track, error) {
			medias, err := m.catalog.ListMedia(ctx)
			if err != nil {
				return nil, err
			}
			return m.catalog.ToTracks(medias), nil
		},
		func(ctx context.Context, tracks []track.Track) error {
			if len(tracks) == 0 {
				return errors.Wrap(playback.ErrEmptyQueue, "catalog has no playable media")
			}
			err := m.store.PlayTrack(ctx, index, tracks...)
			if replaced(err) {
				m.stateMgr.SetSource(state.Source{Kind: state.LoadMedia})
			}
			return err
		})
}

// LoadTrack fetches one media record and plays it as a queue of its own.
func (m *Manager) LoadTrack(ctx context.Context, mediaID int64) error {
	var name string
	return m.load(ctx, state.LoadTrack, mediaID,
		func(ctx context.Context) ([]track.Track, error) {
			media, err := m.catalog.GetMedia(ctx, mediaID)
			if err != nil {
				return nil, err
			}
			name = media.Name
			return m.catalog.ToTracks([]catalog.Media{*media}), nil
		},
		func(ctx context.Context, tracks []track.Track) error {
			if len(tracks) == 0 {
				return errors.Wrapf(playback.ErrEmptyQueue, "media %d has no audio source", mediaID)
			}
			err := m.store.PlayTrack(ctx, 0, tracks...)
			if replaced(err) {
				m.stateMgr.SetSource(state.Source{Kind: state.LoadTrack, MediaID: mediaID, Name: name})
			}
			return err
		})
}

// EnqueuePlaylist fetches a playlist and appends its unseen tracks.
func (m *Manager) EnqueuePlaylist(ctx context.Context, playlistID int64) (int, []filter.Rejection, error) {
	var (
		added    int
		rejected []filter.Rejection
	)
	err := m.load(ctx, state.LoadEnqueue, playlistID,
		func(ctx context.Context) ([]track.Track, error) {
			detail, err := m.catalog.GetPlaylist(ctx, playlistID)
			if err != nil {
				return nil, err
			}
			return m.catalog.ToTracks(detail.Medias), nil
		},
		func(ctx context.Context, tracks []track.Track) error {
			var err error
			added, rejected, err = m.store.AddToQueue(ctx, tracks)
			return err
		})
	return added, rejected, err
}

// load runs fetch under a fresh load generation and applies the result
// only if no newer load began meanwhile.
func (m *Manager) load(
	ctx context.Context,
	kind state.LoadKind,
	id int64,
	fetch func(context.Context) ([]track.Track, error),
	apply func(context.Context, []track.Track) error,
) error {
	if m.stateMgr.GetPhase() != state.PhaseRunning {
		return ErrSessionNotRunning
	}
	if m.catalog == nil {
		return ErrNoCatalog
	}

	loadCtx, gen := m.stateMgr.BeginLoad(ctx, kind, id)
	defer m.stateMgr.EndLoad(gen)
	zlog.Debug().Msgf("session: load started kind=%s id=%d gen=%d", kind, id, gen)

	tracks, err := fetch(loadCtx)

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	if !m.stateMgr.IsCurrent(gen) {
		zlog.Info().Msgf("session: discarding superseded load kind=%s id=%d gen=%d", kind, id, gen)
		return ErrSuperseded
	}
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", kind)
	}

	zlog.Info().Msgf("session: load finished kind=%s id=%d tracks=%d", kind, id, len(tracks))
	return apply(ctx, tracks)
}

// ReportOutputEvent passes an event from a remote UI to the output.
func (m *Manager) ReportOutputEvent(ctx context.Context, e audio.Event) error {
	if m.remote == nil {
		return ErrNotRemote
	}
	return m.remote.Report(ctx, e)
}

// forwardEvents broadcasts store events to subscribers until ctx is done
// or the store closes its event channel.
func (m *Manager) forwardEvents(ctx context.Context) {
	events := m.store.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type == playback.EventError {
				zlog.Debug().Msgf("session: broadcasting error event: %v", e.Err)
			}
			m.notification.Broadcast(&playerapi.Notification{
				Type:  playerapi.NotificationEvent,
				Event: EventToAPI(e),
			})
		}
	}
}

// Close stops the event loops, the store and the output.
func (m *Manager) Close() {
	m.once.Do(func() {
		m.stateMgr.SetPhase(state.PhaseStopped)
		m.stateMgr.CancelLoad()
		m.cancel()
		if m.group != nil {
			if err := m.group.Wait(); err != nil {
				zlog.Warn().Msgf("session: event loop ended with error: %v", err)
			}
		}
		m.store.Close()
		if err := m.output.Close(); err != nil {
			zlog.Warn().Msgf("session: failed to close output: %v", err)
		}
		m.notification.Close()
		close(m.done)
	})
}

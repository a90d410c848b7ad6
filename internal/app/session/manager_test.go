package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/melodybox/internal/api/playerapi"
	"github.com/osa030/melodybox/internal/app/persist"
	"github.com/osa030/melodybox/internal/app/playback"
	"github.com/osa030/melodybox/internal/app/session/state"
	"github.com/osa030/melodybox/internal/domain/track"
	"github.com/osa030/melodybox/internal/infra/audio"
	"github.com/osa030/melodybox/internal/infra/catalog"
	"github.com/osa030/melodybox/internal/infra/config"
	"github.com/osa030/melodybox/internal/infra/kv"
)

type fakeCatalog struct {
	medias    []catalog.Media
	playlists map[int64][]catalog.Media
	block     map[int64]chan struct{} // closed when a blocked fetch has started
	err       error
}

func (f *fakeCatalog) ListMedia(ctx context.Context) ([]catalog.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.medias, nil
}

func (f *fakeCatalog) GetPlaylist(ctx context.Context, id int64) (*catalog.PlaylistDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if started, ok := f.block[id]; ok {
		close(started)
		<-ctx.Done()
	}
	medias, ok := f.playlists[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &catalog.PlaylistDetail{
		Playlist: catalog.Playlist{ID: id, Name: fmt.Sprintf("list %d", id)},
		Medias:   medias,
	}, nil
}

func (f *fakeCatalog) GetMedia(ctx context.Context, id int64) (*catalog.Media, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.medias {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) ToTracks(medias []catalog.Media) []track.Track {
	return catalog.ToTracks(medias, "http://media.local")
}

func media(ids ...int64) []catalog.Media {
	out := make([]catalog.Media, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Media{
			ID:       id,
			Name:     fmt.Sprintf("song %d", id),
			AudioURL: fmt.Sprintf("/audio/%d.mp3", id),
		})
	}
	return out
}

type recordingStream struct {
	mu   sync.Mutex
	sent []*playerapi.Notification
}

func (s *recordingStream) Send(n *playerapi.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingStream) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestManager(t *testing.T, yaml string, cat Catalog) *Manager {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	out := audio.NewVirtual(audio.VirtualConfig{})
	m, err := NewManager(cfg, out, persist.New(kv.NewMemory(), "test"), cat)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func startedManager(t *testing.T, cat Catalog) *Manager {
	t.Helper()
	m := newTestManager(t, "", cat)
	require.NoError(t, m.Start(context.Background()))
	return m
}

func TestBuildFilterChain(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    []string
		wantErr bool
	}{
		{
			name: "missing source only by default",
			want: []string{"missing_source_filter"},
		},
		{
			name: "enabled filters in name order",
			yaml: `
filters:
  queue_limit_filter:
    enabled: true
    settings:
      max_tracks: 10
  duration_limit_filter:
    enabled: true
`,
			want: []string{"missing_source_filter", "duration_limit_filter", "queue_limit_filter"},
		},
		{
			name: "disabled filter skipped",
			yaml: `
filters:
  queue_limit_filter:
    enabled: false
`,
			want: []string{"missing_source_filter"},
		},
		{
			name: "invalid settings",
			yaml: `
filters:
  queue_limit_filter:
    enabled: true
    settings:
      max_tracks: 0
`,
			wantErr: true,
		},
		{
			name: "unknown filter",
			yaml: `
filters:
  no_such_filter:
    enabled: true
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.yaml))
			require.NoError(t, err)

			chain, err := BuildFilterChain(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var names []string
			for _, f := range chain.Filters() {
				names = append(names, f.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestManager_StartTwice(t *testing.T) {
	m := startedManager(t, nil)
	assert.Error(t, m.Start(context.Background()))
}

func TestManager_LoadBeforeStart(t *testing.T) {
	m := newTestManager(t, "", &fakeCatalog{})
	assert.ErrorIs(t, m.LoadMedia(context.Background(), 0), ErrSessionNotRunning)
}

func TestManager_LoadWithoutCatalog(t *testing.T) {
	m := startedManager(t, nil)
	assert.ErrorIs(t, m.LoadPlaylist(context.Background(), 1, 0), ErrNoCatalog)
}

func TestManager_LoadPlaylist(t *testing.T) {
	cat := &fakeCatalog{playlists: map[int64][]catalog.Media{7: media(1, 2, 3)}}
	m := startedManager(t, cat)

	require.NoError(t, m.LoadPlaylist(context.Background(), 7, 1))

	snap := m.Store().Snapshot()
	require.Len(t, snap.Queue, 3)
	assert.Len(t, snap.Playlist, 3)
	assert.Equal(t, 1, snap.CurrentTrackIndex)
	assert.Equal(t, "http://media.local/audio/2.mp3", snap.CurrentTrack.AudioSource)
	assert.True(t, snap.IsPlaying)

	src := m.Source()
	require.NotNil(t, src)
	assert.Equal(t, int64(7), src.PlaylistID)
	assert.Equal(t, "list 7", src.Name)
}

func TestManager_LoadPlaylistErrors(t *testing.T) {
	cat := &fakeCatalog{playlists: map[int64][]catalog.Media{
		2: {{ID: 9, Name: "silent"}},
		3: media(1),
	}}
	m := startedManager(t, cat)
	ctx := context.Background()

	assert.ErrorIs(t, m.LoadPlaylist(ctx, 1, 0), catalog.ErrNotFound)
	assert.ErrorIs(t, m.LoadPlaylist(ctx, 2, 0), playback.ErrEmptyQueue)
	assert.ErrorIs(t, m.LoadPlaylist(ctx, 3, 5), playback.ErrInvalidIndex)
	assert.Empty(t, m.Store().Snapshot().Queue)
}

func TestManager_LoadMedia(t *testing.T) {
	cat := &fakeCatalog{medias: media(4, 5)}
	m := startedManager(t, cat)

	require.NoError(t, m.LoadMedia(context.Background(), 0))

	snap := m.Store().Snapshot()
	assert.Len(t, snap.Queue, 2)
	assert.Equal(t, track.ID(4), snap.CurrentTrack.ID)
}

func TestManager_LoadTrack(t *testing.T) {
	cat := &fakeCatalog{medias: append(media(4, 5), catalog.Media{ID: 6, Name: "no audio"})}
	m := startedManager(t, cat)
	ctx := context.Background()

	require.NoError(t, m.LoadTrack(ctx, 5))

	snap := m.Store().Snapshot()
	assert.Equal(t, []track.ID{5}, track.IDs(snap.Queue))
	assert.Equal(t, []track.ID{5}, track.IDs(snap.Playlist))
	assert.True(t, snap.IsPlaying)

	src := m.Source()
	require.NotNil(t, src)
	assert.Equal(t, state.LoadTrack, src.Kind)
	assert.Equal(t, int64(5), src.MediaID)
	assert.Equal(t, "song 5", src.Name)

	api := m.State().Source
	require.NotNil(t, api)
	assert.Equal(t, "track", api.Kind)
	assert.Equal(t, 1, api.Tracks)

	assert.ErrorIs(t, m.LoadTrack(ctx, 99), catalog.ErrNotFound)
	assert.ErrorIs(t, m.LoadTrack(ctx, 6), playback.ErrEmptyQueue)
	assert.Equal(t, []track.ID{5}, track.IDs(m.Store().Snapshot().Queue))
}

func TestManager_DirectReplacementClearsSource(t *testing.T) {
	cat := &fakeCatalog{playlists: map[int64][]catalog.Media{7: media(1, 2, 3)}}
	m := startedManager(t, cat)
	ctx := context.Background()
	direct := catalog.ToTracks(media(8, 9), "http://media.local")

	tests := []struct {
		name    string
		replace func() error
	}{
		{name: "play tracks", replace: func() error { return m.PlayTracks(ctx, 1, direct) }},
		{name: "update playlist", replace: func() error {
			_, _, err := m.UpdatePlaylist(ctx, direct)
			return err
		}},
		{name: "clear", replace: func() error { return m.Clear(ctx) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, m.LoadPlaylist(ctx, 7, 0))
			require.NotNil(t, m.Source())

			require.NoError(t, tt.replace())
			assert.Nil(t, m.Source())
			assert.Equal(t, int64(0), m.Playlist().ID)
		})
	}

	require.NoError(t, m.PlayTracks(ctx, 0, direct))
	src := m.State().Source
	require.NotNil(t, src)
	assert.Equal(t, "direct", src.Kind)
	assert.Equal(t, 2, src.Tracks)

	// a rejected index leaves both the queue and the source alone
	require.NoError(t, m.LoadPlaylist(ctx, 7, 0))
	assert.ErrorIs(t, m.PlayTracks(ctx, 5, direct), playback.ErrInvalidIndex)
	require.NotNil(t, m.Source())
	assert.Equal(t, int64(7), m.Playlist().ID)
	assert.Equal(t, "list 7", m.Playlist().Name)

	require.NoError(t, m.Clear(ctx))
	assert.Nil(t, m.State().Source)
}

func TestManager_DirectReplacementSupersedesLoad(t *testing.T) {
	started := make(chan struct{})
	cat := &fakeCatalog{
		playlists: map[int64][]catalog.Media{1: media(1)},
		block:     map[int64]chan struct{}{1: started},
	}
	m := startedManager(t, cat)
	ctx := context.Background()

	pending := make(chan error, 1)
	go func() { pending <- m.LoadPlaylist(ctx, 1, 0) }()
	<-started

	require.NoError(t, m.PlayTracks(ctx, 0, catalog.ToTracks(media(4), "http://media.local")))

	select {
	case err := <-pending:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("pending load did not return")
	}
	assert.Equal(t, []track.ID{4}, track.IDs(m.Store().Snapshot().Queue))
	assert.Nil(t, m.Source())
}

func TestManager_LoadMediaUnavailable(t *testing.T) {
	m := startedManager(t, &fakeCatalog{err: catalog.ErrUnavailable})
	assert.ErrorIs(t, m.LoadMedia(context.Background(), 0), catalog.ErrUnavailable)
}

func TestManager_EnqueuePlaylist(t *testing.T) {
	cat := &fakeCatalog{playlists: map[int64][]catalog.Media{
		1: media(1, 2),
		2: append(media(2, 3), catalog.Media{ID: 8, Name: "no audio"}),
	}}
	m := startedManager(t, cat)
	ctx := context.Background()

	require.NoError(t, m.LoadPlaylist(ctx, 1, 0))

	added, rejected, err := m.EnqueuePlaylist(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Empty(t, rejected)

	snap := m.Store().Snapshot()
	assert.Equal(t, []track.ID{1, 2, 3}, track.IDs(snap.Queue))
	assert.Equal(t, track.ID(1), snap.CurrentTrack.ID)
}

func TestManager_SupersededLoad(t *testing.T) {
	started := make(chan struct{})
	cat := &fakeCatalog{
		playlists: map[int64][]catalog.Media{1: media(1), 2: media(2)},
		block:     map[int64]chan struct{}{1: started},
	}
	m := startedManager(t, cat)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() { first <- m.LoadPlaylist(ctx, 1, 0) }()
	<-started

	require.NoError(t, m.LoadPlaylist(ctx, 2, 0))

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("superseded load did not return")
	}

	snap := m.Store().Snapshot()
	assert.Equal(t, []track.ID{2}, track.IDs(snap.Queue))
	assert.Equal(t, int64(2), m.Source().PlaylistID)
}

func TestManager_ForwardsStoreEvents(t *testing.T) {
	m := startedManager(t, &fakeCatalog{medias: media(1, 2)})
	stream := &recordingStream{}
	m.GetNotificationManager().Subscribe(stream, nil)

	require.NoError(t, m.LoadMedia(context.Background(), 0))

	require.Eventually(t, func() bool { return stream.count() >= 3 }, time.Second, 5*time.Millisecond)
	stream.mu.Lock()
	defer stream.mu.Unlock()
	for _, n := range stream.sent {
		assert.Equal(t, playerapi.NotificationEvent, n.Type)
		assert.NotNil(t, n.Event)
	}
}

func TestManager_RestoreOnStart(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)

	p := persist.New(kv.NewMemory(), "test")
	st := persist.DefaultState()
	st.Queue = catalog.ToTracks(media(1, 2), "http://media.local")
	st.Playlist = st.Queue
	st.CurrentTrackIndex = 1
	st.IsQueueInitialized = true
	require.NoError(t, p.Save(context.Background(), st))

	m, err := NewManager(cfg, audio.NewVirtual(audio.VirtualConfig{}), p, nil)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Start(context.Background()))

	snap := m.Store().Snapshot()
	assert.Len(t, snap.Queue, 2)
	assert.Equal(t, 1, snap.CurrentTrackIndex)
}

func TestManager_ReportOutputEvent(t *testing.T) {
	m := startedManager(t, nil)
	err := m.ReportOutputEvent(context.Background(), audio.Event{Type: audio.EventEnded})
	assert.ErrorIs(t, err, ErrNotRemote)

	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	remote := audio.NewRemote(8)
	rm, err := NewManager(cfg, remote, nil, nil)
	require.NoError(t, err)
	defer rm.Close()
	require.NoError(t, rm.Start(context.Background()))

	assert.Same(t, remote, rm.Remote())
	assert.NoError(t, rm.ReportOutputEvent(context.Background(), audio.Event{Type: audio.EventTimeUpdate, Source: "x"}))
}

func TestManager_Close(t *testing.T) {
	m := startedManager(t, nil)
	m.Close()
	m.Close()

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

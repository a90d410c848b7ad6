package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for output event")
		return Event{}
	}
}

func TestVirtual_LoadPlayAdvanceEnded(t *testing.T) {
	v := NewVirtual(VirtualConfig{DefaultDuration: 10 * time.Second})
	defer v.Close()

	require.NoError(t, v.Load("a.mp3"))
	e := nextEvent(t, v.Events())
	assert.Equal(t, EventTimeUpdate, e.Type)
	assert.Equal(t, "a.mp3", e.Source)
	assert.Equal(t, 10.0, e.Duration)

	require.NoError(t, v.Play(context.Background()))
	assert.Equal(t, EventPlaying, nextEvent(t, v.Events()).Type)

	v.Advance(4 * time.Second)
	e = nextEvent(t, v.Events())
	assert.Equal(t, EventTimeUpdate, e.Type)
	assert.InDelta(t, 4.0, e.Position, 1e-9)

	v.Advance(7 * time.Second)
	e = nextEvent(t, v.Events())
	assert.Equal(t, EventTimeUpdate, e.Type)
	assert.Equal(t, 10.0, e.Position)
	e = nextEvent(t, v.Events())
	assert.Equal(t, EventEnded, e.Type)
	assert.Equal(t, "a.mp3", e.Source)

	assert.False(t, v.Status().Playing)
}

func TestVirtual_AdvanceWhilePausedDoesNothing(t *testing.T) {
	v := NewVirtual(VirtualConfig{DefaultDuration: 10 * time.Second})
	defer v.Close()

	require.NoError(t, v.Load("a.mp3"))
	nextEvent(t, v.Events())

	v.Advance(3 * time.Second)
	assert.Equal(t, 0.0, v.Status().Position)
	assert.Empty(t, v.Events())
}

func TestVirtual_RegisteredDuration(t *testing.T) {
	v := NewVirtual(VirtualConfig{DefaultDuration: 10 * time.Second})
	defer v.Close()

	v.SetDuration("b.mp3", 42)
	require.NoError(t, v.Load("b.mp3"))
	assert.Equal(t, 42.0, nextEvent(t, v.Events()).Duration)
}

func TestVirtual_SeekClamps(t *testing.T) {
	v := NewVirtual(VirtualConfig{DefaultDuration: 10 * time.Second})
	defer v.Close()

	assert.ErrorIs(t, v.Seek(3), ErrNotLoaded)

	require.NoError(t, v.Load("a.mp3"))
	nextEvent(t, v.Events())

	require.NoError(t, v.Seek(25))
	assert.Equal(t, 10.0, nextEvent(t, v.Events()).Position)

	require.NoError(t, v.Seek(-5))
	assert.Equal(t, 0.0, nextEvent(t, v.Events()).Position)
}

func TestVirtual_PlayWithoutSource(t *testing.T) {
	v := NewVirtual(VirtualConfig{})
	defer v.Close()

	assert.ErrorIs(t, v.Play(context.Background()), ErrNotLoaded)
}

func TestVirtual_AutoplayPolicy(t *testing.T) {
	v := NewVirtual(VirtualConfig{DefaultDuration: 10 * time.Second, RequireGesture: true})
	defer v.Close()

	require.NoError(t, v.Load("a.mp3"))
	nextEvent(t, v.Events())

	assert.ErrorIs(t, v.Play(context.Background()), ErrAutoplayBlocked)
	assert.False(t, v.Status().Playing)

	require.NoError(t, v.Play(WithUserGesture(context.Background())))
	nextEvent(t, v.Events())
	require.NoError(t, v.Pause())

	// activation is sticky
	require.NoError(t, v.Play(context.Background()))
}

func TestVirtual_InjectedFailure(t *testing.T) {
	v := NewVirtual(VirtualConfig{})
	defer v.Close()

	boom := errors.New("decode error")
	v.SetFailure("bad.mp3", boom)
	assert.ErrorIs(t, v.Load("bad.mp3"), boom)

	v.SetFailure("bad.mp3", nil)
	assert.NoError(t, v.Load("bad.mp3"))
}

func TestVirtual_VolumeClamps(t *testing.T) {
	v := NewVirtual(VirtualConfig{})
	defer v.Close()

	require.NoError(t, v.SetVolume(1.7))
	assert.Equal(t, 1.0, v.Status().Volume)
	require.NoError(t, v.SetVolume(-1))
	assert.Equal(t, 0.0, v.Status().Volume)
}

func TestVirtual_ClosedRejectsCommands(t *testing.T) {
	v := NewVirtual(VirtualConfig{})
	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	assert.ErrorIs(t, v.Load("a.mp3"), ErrClosed)
	assert.ErrorIs(t, v.Play(context.Background()), ErrClosed)
}

func TestVirtual_RunningClock(t *testing.T) {
	v := NewVirtual(VirtualConfig{TickInterval: 5 * time.Millisecond})
	defer v.Close()

	v.SetDuration("short.mp3", 0.05)
	require.NoError(t, v.Load("short.mp3"))
	require.NoError(t, v.Play(context.Background()))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-v.Events():
			if e.Type == EventEnded {
				assert.Equal(t, "short.mp3", e.Source)
				return
			}
		case <-deadline:
			t.Fatal("source never ended")
		}
	}
}

func TestVirtual_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/missing.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := NewVirtual(VirtualConfig{Probe: NewHTTPProbe(0, time.Second)})
	defer v.Close()

	assert.NoError(t, v.Load(srv.URL+"/ok.mp3"))
	assert.Error(t, v.Load(srv.URL+"/missing.mp3"))
	assert.NoError(t, v.Load("file:///local.mp3"))
}

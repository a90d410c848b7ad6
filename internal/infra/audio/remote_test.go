package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Command) []Command {
	var out []Command
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, c)
		default:
			return out
		}
	}
}

func TestRemote_PlayRequiresListener(t *testing.T) {
	r := NewRemote(8)
	defer r.Close()

	require.NoError(t, r.Load("a.mp3"))
	assert.ErrorIs(t, r.Play(context.Background()), ErrNoListener)

	_, ch := r.Attach()
	drain(ch)
	require.NoError(t, r.Play(context.Background()))

	cmds := drain(ch)
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandPlay, cmds[0].Type)
	assert.Equal(t, "a.mp3", cmds[0].Source)
}

func TestRemote_LateListenerReceivesCurrentState(t *testing.T) {
	r := NewRemote(8)
	defer r.Close()

	_, first := r.Attach()
	require.NoError(t, r.Load("a.mp3"))
	require.NoError(t, r.SetVolume(0.3))
	require.NoError(t, r.Seek(12))
	require.NoError(t, r.Play(context.Background()))
	drain(first)

	_, late := r.Attach()
	cmds := drain(late)

	types := make([]CommandType, len(cmds))
	for i, c := range cmds {
		types[i] = c.Type
	}
	assert.Equal(t, []CommandType{CommandLoad, CommandSeek, CommandSetVolume, CommandPlay}, types)
	assert.Equal(t, 12.0, cmds[1].Position)
	assert.Equal(t, 0.3, cmds[2].Volume)
}

func TestRemote_ReportForwardsEvents(t *testing.T) {
	r := NewRemote(8)
	defer r.Close()
	require.NoError(t, r.Load("a.mp3"))

	require.NoError(t, r.Report(context.Background(), Event{Type: EventTimeUpdate, Source: "a.mp3", Position: 5}))

	select {
	case e := <-r.Events():
		assert.Equal(t, EventTimeUpdate, e.Type)
		assert.Equal(t, 5.0, e.Position)
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
}

func TestRemote_DetachClosesStream(t *testing.T) {
	r := NewRemote(8)
	defer r.Close()

	id, ch := r.Attach()
	assert.Equal(t, 1, r.ListenerCount())
	r.Detach(id)
	assert.Equal(t, 0, r.ListenerCount())

	drain(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestRemote_Closed(t *testing.T) {
	r := NewRemote(8)
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.Load("a.mp3"), ErrClosed)
	assert.ErrorIs(t, r.Report(context.Background(), Event{}), ErrClosed)
}

func TestEventType_RoundTrip(t *testing.T) {
	for _, et := range []EventType{EventTimeUpdate, EventEnded, EventError, EventPlaying} {
		parsed, ok := ParseEventType(et.String())
		require.True(t, ok)
		assert.Equal(t, et, parsed)
	}
	_, ok := ParseEventType("bogus")
	assert.False(t, ok)
}

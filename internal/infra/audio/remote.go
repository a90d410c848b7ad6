package audio

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// CommandType represents a command relayed to a remote output.
type CommandType int

const (
	CommandLoad CommandType = iota
	CommandPlay
	CommandPause
	CommandSeek
	CommandSetVolume
)

// String returns the string representation of the command type.
func (c CommandType) String() string {
	switch c {
	case CommandLoad:
		return "load"
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandSeek:
		return "seek"
	case CommandSetVolume:
		return "set_volume"
	default:
		return "unknown"
	}
}

// Command is an instruction for a remote audio element.
type Command struct {
	Type     CommandType
	Source   string
	Position float64 // Seconds, for CommandSeek
	Volume   float64 // 0.0 - 1.0, for CommandSetVolume
}

// Remote is an Output whose audio element lives in an attached UI. Commands
// are relayed to every attached listener and the UI reports events back
// through Report. A listener that attaches late receives the current
// source, volume, position and transport state first.
type Remote struct {
	mu        sync.RWMutex
	listeners map[string]chan Command

	src      string
	playing  bool
	position float64
	volume   float64

	buffer int
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewRemote creates a Remote output.
func NewRemote(buffer int) *Remote {
	if buffer <= 0 {
		buffer = 64
	}
	return &Remote{
		listeners: make(map[string]chan Command),
		volume:    1,
		buffer:    buffer,
		events:    make(chan Event, buffer),
		done:      make(chan struct{}),
	}
}

// Attach registers a listener and returns its id and command stream.
func (r *Remote) Attach() (string, <-chan Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Command, max(r.buffer, 8))
	r.listeners[id] = ch

	if r.src != "" {
		ch <- Command{Type: CommandLoad, Source: r.src}
		if r.position > 0 {
			ch <- Command{Type: CommandSeek, Source: r.src, Position: r.position}
		}
	}
	ch <- Command{Type: CommandSetVolume, Source: r.src, Volume: r.volume}
	if r.playing {
		ch <- Command{Type: CommandPlay, Source: r.src}
	}

	zlog.Info().Msgf("audio: remote listener attached id=%s", id)
	return id, ch
}

// Detach removes a listener and closes its stream.
func (r *Remote) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.listeners[id]; ok {
		close(ch)
		delete(r.listeners, id)
		zlog.Info().Msgf("audio: remote listener detached id=%s", id)
	}
}

// ListenerCount returns the number of attached listeners.
func (r *Remote) ListenerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Report delivers an event observed by the remote audio element.
func (r *Remote) Report(ctx context.Context, e Event) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	if e.Type == EventTimeUpdate {
		r.mu.Lock()
		if e.Source == r.src {
			r.position = e.Position
		}
		r.mu.Unlock()
	}

	select {
	case r.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

func (r *Remote) Events() <-chan Event {
	return r.events
}

func (r *Remote) Load(src string) error {
	return r.relay(func() (Command, error) {
		r.src = src
		r.playing = false
		r.position = 0
		return Command{Type: CommandLoad, Source: src}, nil
	})
}

func (r *Remote) Play(_ context.Context) error {
	return r.relay(func() (Command, error) {
		if r.src == "" {
			return Command{}, ErrNotLoaded
		}
		if len(r.listeners) == 0 {
			return Command{}, ErrNoListener
		}
		r.playing = true
		return Command{Type: CommandPlay, Source: r.src}, nil
	})
}

func (r *Remote) Pause() error {
	return r.relay(func() (Command, error) {
		r.playing = false
		return Command{Type: CommandPause, Source: r.src}, nil
	})
}

func (r *Remote) Seek(seconds float64) error {
	return r.relay(func() (Command, error) {
		if r.src == "" {
			return Command{}, ErrNotLoaded
		}
		r.position = math.Max(seconds, 0)
		return Command{Type: CommandSeek, Source: r.src, Position: r.position}, nil
	})
}

func (r *Remote) SetVolume(level float64) error {
	return r.relay(func() (Command, error) {
		r.volume = math.Max(0, math.Min(1, level))
		return Command{Type: CommandSetVolume, Source: r.src, Volume: r.volume}, nil
	})
}

// Close detaches every listener. Further commands return ErrClosed.
func (r *Remote) Close() error {
	r.once.Do(func() {
		close(r.done)

		r.mu.Lock()
		defer r.mu.Unlock()
		for id, ch := range r.listeners {
			close(ch)
			delete(r.listeners, id)
		}
	})
	return nil
}

// relay applies a state change and fans the resulting command out.
// A listener whose buffer is full misses the command.
func (r *Remote) relay(apply func() (Command, error)) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cmd, err := apply()
	if err != nil {
		return err
	}
	for id, ch := range r.listeners {
		select {
		case ch <- cmd:
		default:
			zlog.Warn().Msgf("audio: remote listener %s is lagging, dropped %s", id, cmd.Type)
		}
	}
	return nil
}

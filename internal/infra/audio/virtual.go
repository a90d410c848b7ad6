package audio

import (
	"context"
	"math"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// VirtualConfig holds Virtual output configuration.
type VirtualConfig struct {
	TickInterval    time.Duration // Clock resolution. Zero disables the clock; callers drive it with Advance
	DefaultDuration time.Duration // Duration assumed for sources without a registered duration
	RequireGesture  bool          // Enforce an autoplay policy
	Probe           Prober        // Optional reachability check run by Load
	EventBuffer     int
}

// VirtualStatus is a point-in-time view of a Virtual output.
type VirtualStatus struct {
	Source   string
	Playing  bool
	Position float64
	Duration float64
	Volume   float64
}

// Virtual is a clocked simulation of an audio element. It behaves like a
// browser media element: position advances while playing, Ended fires at
// the end of the source, and an autoplay policy can block playback that
// was not started by a user gesture.
type Virtual struct {
	mu sync.Mutex

	src       string
	loaded    bool
	playing   bool
	position  float64
	duration  float64
	volume    float64
	activated bool // a gesture-initiated play has succeeded
	lastTick  time.Time

	durations map[string]float64
	failures  map[string]error

	config VirtualConfig

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewVirtual creates a Virtual output and starts its clock when configured.
func NewVirtual(config VirtualConfig) *Virtual {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	v := &Virtual{
		volume:    1,
		durations: make(map[string]float64),
		failures:  make(map[string]error),
		config:    config,
		events:    make(chan Event, config.EventBuffer),
		done:      make(chan struct{}),
	}
	if config.TickInterval > 0 {
		v.wg.Add(1)
		go v.runClock()
	}
	return v
}

// Events returns the event channel.
func (v *Virtual) Events() <-chan Event {
	return v.events
}

// SetDuration registers the duration of a source in seconds.
func (v *Virtual) SetDuration(src string, seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.durations[src] = seconds
}

// SetFailure makes Load and Play of src fail with err. A nil err clears it.
func (v *Virtual) SetFailure(src string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err == nil {
		delete(v.failures, src)
		return
	}
	v.failures[src] = err
}

// Status returns the current output status.
func (v *Virtual) Status() VirtualStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return VirtualStatus{
		Source:   v.src,
		Playing:  v.playing,
		Position: v.position,
		Duration: v.duration,
		Volume:   v.volume,
	}
}

func (v *Virtual) Load(src string) error {
	if v.isClosed() {
		return ErrClosed
	}

	if v.config.Probe != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := v.config.Probe.Probe(ctx, src)
		cancel()
		if err != nil {
			return err
		}
	}

	v.mu.Lock()
	if err, ok := v.failures[src]; ok {
		v.mu.Unlock()
		return err
	}

	v.src = src
	v.loaded = true
	v.playing = false
	v.position = 0
	v.duration = v.config.DefaultDuration.Seconds()
	if d, ok := v.durations[src]; ok {
		v.duration = d
	}
	e := Event{Type: EventTimeUpdate, Source: src, Duration: v.duration}
	v.mu.Unlock()

	zlog.Debug().Msgf("audio: loaded source=%s duration=%.1f", src, e.Duration)
	v.emit(e)
	return nil
}

func (v *Virtual) Play(ctx context.Context) error {
	if v.isClosed() {
		return ErrClosed
	}

	v.mu.Lock()
	if !v.loaded {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	if err, ok := v.failures[v.src]; ok {
		v.mu.Unlock()
		return err
	}

	gesture := IsUserGesture(ctx)
	if v.config.RequireGesture && !v.activated && !gesture {
		v.mu.Unlock()
		return ErrAutoplayBlocked
	}
	if gesture {
		v.activated = true
	}

	if v.duration > 0 && v.position >= v.duration {
		v.position = 0
	}
	v.playing = true
	v.lastTick = toWallTime(time.Now())
	e := Event{Type: EventPlaying, Source: v.src, Position: v.position, Duration: v.duration}
	v.mu.Unlock()

	v.emit(e)
	return nil
}

func (v *Virtual) Pause() error {
	if v.isClosed() {
		return ErrClosed
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.playing {
		v.position += v.elapsedLocked()
		if v.duration > 0 {
			v.position = math.Min(v.position, v.duration)
		}
	}
	v.playing = false
	return nil
}

func (v *Virtual) Seek(seconds float64) error {
	if v.isClosed() {
		return ErrClosed
	}

	v.mu.Lock()
	if !v.loaded {
		v.mu.Unlock()
		return ErrNotLoaded
	}
	v.position = math.Max(seconds, 0)
	if v.duration > 0 {
		v.position = math.Min(v.position, v.duration)
	}
	v.lastTick = toWallTime(time.Now())
	e := Event{Type: EventTimeUpdate, Source: v.src, Position: v.position, Duration: v.duration}
	v.mu.Unlock()

	v.emit(e)
	return nil
}

func (v *Virtual) SetVolume(level float64) error {
	if v.isClosed() {
		return ErrClosed
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = math.Max(0, math.Min(1, level))
	return nil
}

// Advance moves the clock forward by d while playing.
// It is the only way time passes when the clock is disabled.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	events := v.advanceLocked(d.Seconds())
	v.mu.Unlock()

	for _, e := range events {
		v.emit(e)
	}
}

// Close stops the clock. Further commands return ErrClosed.
func (v *Virtual) Close() error {
	v.once.Do(func() {
		close(v.done)
	})
	v.wg.Wait()
	return nil
}

func (v *Virtual) runClock() {
	defer v.wg.Done()

	ticker := time.NewTicker(v.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.done:
			return
		case <-ticker.C:
			v.mu.Lock()
			var events []Event
			if v.playing {
				delta := v.elapsedLocked()
				v.lastTick = toWallTime(time.Now())
				events = v.advanceLocked(delta)
			}
			v.mu.Unlock()

			for _, e := range events {
				v.emit(e)
			}
		}
	}
}

// advanceLocked must be called with lock held.
func (v *Virtual) advanceLocked(delta float64) []Event {
	if !v.playing || delta <= 0 {
		return nil
	}

	v.position += delta
	if v.duration > 0 && v.position >= v.duration {
		v.position = v.duration
		v.playing = false
		return []Event{
			{Type: EventTimeUpdate, Source: v.src, Position: v.position, Duration: v.duration},
			{Type: EventEnded, Source: v.src, Position: v.position, Duration: v.duration},
		}
	}
	return []Event{{Type: EventTimeUpdate, Source: v.src, Position: v.position, Duration: v.duration}}
}

// elapsedLocked returns wall-clock seconds since the last tick. Only the
// running clock accounts real time; a manual clock moves through Advance.
func (v *Virtual) elapsedLocked() float64 {
	if v.config.TickInterval <= 0 || v.lastTick.IsZero() {
		return 0
	}
	return toWallTime(time.Now()).Sub(v.lastTick).Seconds()
}

// emit blocks until the event is consumed or the output is closed.
// Position updates are dropped instead when the buffer is full.
// It must not be called with the lock held.
func (v *Virtual) emit(e Event) {
	if e.Type == EventTimeUpdate {
		select {
		case v.events <- e:
		default:
		}
		return
	}
	select {
	case v.events <- e:
	case <-v.done:
	}
}

func (v *Virtual) isClosed() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}

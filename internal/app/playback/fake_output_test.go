package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/osa030/melodybox/internal/infra/audio"
)

// fakeOutput records commands and fails on demand. Events are fed to the
// store by the tests through HandleOutputEvent.
type fakeOutput struct {
	mu       sync.Mutex
	commands []string
	source   string
	volume   float64
	loadErr  map[string]error
	playErr  error
	events   chan audio.Event
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{
		volume:  1,
		loadErr: make(map[string]error),
		events:  make(chan audio.Event, 16),
	}
}

func (f *fakeOutput) record(cmd string) {
	f.commands = append(f.commands, cmd)
}

func (f *fakeOutput) Load(src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.loadErr[src]; ok {
		return err
	}
	f.source = src
	f.record("load:" + src)
	return nil
}

func (f *fakeOutput) Play(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.record("play")
	return nil
}

func (f *fakeOutput) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pause")
	return nil
}

func (f *fakeOutput) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("seek:%g", seconds))
	return nil
}

func (f *fakeOutput) SetVolume(level float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = level
	f.record(fmt.Sprintf("volume:%g", level))
	return nil
}

func (f *fakeOutput) Events() <-chan audio.Event { return f.events }

func (f *fakeOutput) Close() error { return nil }

func (f *fakeOutput) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}

func (f *fakeOutput) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

func (f *fakeOutput) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeOutput) FailLoad(src string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr[src] = err
}

func (f *fakeOutput) FailPlay(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

package kv

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// FileConfig configures the file backend.
type FileConfig struct {
	Dir string `mapstructure:"dir" default:"./data/player" validate:"required"`
}

// File stores each key as its own file under a directory.
// Writes go to a temporary file which is then renamed over the target.
type File struct {
	mu  sync.Mutex
	fs  afero.Afero
	dir string
}

// NewFile creates a file-backed store on the given filesystem.
func NewFile(fs afero.Fs, dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("kv: file backend requires a directory")
	}
	a := afero.Afero{Fs: fs}
	if err := a.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create kv directory %s", dir)
	}
	return &File{fs: a, dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.QueryEscape(key)+".json")
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.fs.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to read key %s", key)
	}
	return data, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	tmp := target + ".tmp"
	if err := f.fs.WriteFile(tmp, value, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write key %s", key)
	}
	if err := f.fs.Rename(tmp, target); err != nil {
		_ = f.fs.Remove(tmp)
		return errors.Wrapf(err, "failed to commit key %s", key)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fs.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete key %s", key)
	}
	return nil
}

func (f *File) Close() error { return nil }

// Package store keeps the last committed fragment shader between runs.
package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

// Key names the stored shader text.
const Key = "previous-frag-shader"

// Store is a directory holding one file per key.
type Store struct {
	dir string
}

// New returns a store in dir, or in goshaderboy's user config directory when
// dir is empty.
func New(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, errors.Wrap(err, "no user config directory")
		}
		dir = filepath.Join(base, "goshaderboy")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, Key)
}

// Load returns the stored text and whether there was any.
func (s *Store) Load() (string, bool, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to load stored shader")
	}
	return string(data), true, nil
}

// Save replaces the stored text.
func (s *Store) Save(text string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return errors.Wrap(err, "failed to write stored shader")
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return errors.Wrap(err, "failed to replace stored shader")
	}
	graphics.Logger().Debug("saved shader", "path", s.path(), "bytes", len(text))
	return nil
}

// Remove deletes the stored text. Removing a missing key is not an error.
func (s *Store) Remove() error {
	err := os.Remove(s.path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "failed to remove stored shader")
	}
	return nil
}

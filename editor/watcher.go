// Package editor connects a shader file on disk to the render loop: it
// commits the file when it changes and reports compile diagnostics against
// the source lines.
package editor

import (
	"context"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

// PollInterval is how often the watched file is checked.
const PollInterval = 250 * time.Millisecond

// Watcher polls a shader file and commits its text whenever the contents
// differ from the last text it committed.
type Watcher struct {
	path     string
	interval time.Duration
	commit   func(text string)

	mu  sync.Mutex
	sum uint64
}

// NewWatcher returns a Watcher for path. A zero interval means PollInterval.
func NewWatcher(path string, interval time.Duration, commit func(text string)) *Watcher {
	if interval <= 0 {
		interval = PollInterval
	}
	return &Watcher{path: path, interval: interval, commit: commit}
}

// Read returns the current file text.
func (w *Watcher) Read() (string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read shader")
	}
	return string(data), nil
}

// Commit re-reads the file and commits it regardless of whether it changed.
func (w *Watcher) Commit() error {
	text, err := w.Read()
	if err != nil {
		return err
	}
	w.setSum(checksum(text))
	w.commit(text)
	return nil
}

// Run polls until ctx is done. The contents of the file when Run starts are
// taken as already committed.
func (w *Watcher) Run(ctx context.Context) error {
	if text, err := w.Read(); err == nil {
		w.setSum(checksum(text))
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			text, ok := w.changed()
			if !ok {
				continue
			}
			w.commit(text)
		}
	}
}

// changed reads the file and reports whether it differs from the last
// committed text. An empty file is an editor mid-save and is skipped.
func (w *Watcher) changed() (string, bool) {
	text, err := w.Read()
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			graphics.Logger().Warn("shader file not read", "path", w.path, "error", err)
		}
		return "", false
	}
	if text == "" {
		return "", false
	}
	sum := checksum(text)
	w.mu.Lock()
	defer w.mu.Unlock()
	if sum == w.sum {
		return "", false
	}
	w.sum = sum
	return text, true
}

func (w *Watcher) setSum(sum uint64) {
	w.mu.Lock()
	w.sum = sum
	w.mu.Unlock()
}

func checksum(text string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	return h.Sum64()
}

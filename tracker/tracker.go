// Package tracker defines the landmark tracker the render loop polls each
// frame, with a tracker that never finds a face and one that replays a
// recorded landmark track.
package tracker

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/feed"
	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/inputs"
)

// Options configures a tracking run.
type Options struct {
	// StopOnConvergence ends tracking once a fit is found; set for still
	// images, which never move.
	StopOnConvergence bool
}

// Tracker produces facial landmark positions in source pixel coordinates.
type Tracker interface {
	Start(src inputs.Source, opts Options) error
	Stop()
	// CurrentPosition returns the latest landmarks, or nil when no face is
	// currently tracked.
	CurrentPosition() []feed.Point
}

// None never reports a face.
type None struct{}

func (None) Start(inputs.Source, Options) error { return nil }
func (None) Stop()                              {}
func (None) CurrentPosition() []feed.Point      { return nil }

// Replay plays back a landmark track, one entry per frame. A track file is a
// JSON array of frames; each frame is an array of [x, y] pairs or null when
// no face was found.
type Replay struct {
	frames  [][]feed.Point
	next    int
	running bool
	opts    Options
}

// NewReplay returns a Replay over frames.
func NewReplay(frames [][]feed.Point) *Replay {
	return &Replay{frames: frames}
}

// LoadReplay reads a track file.
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read landmark track")
	}
	var raw [][][2]float32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse landmark track %s", path)
	}
	frames := make([][]feed.Point, len(raw))
	for i, frame := range raw {
		if frame == nil {
			continue
		}
		points := make([]feed.Point, len(frame))
		for j, p := range frame {
			points[j] = feed.Point{X: p[0], Y: p[1]}
		}
		frames[i] = points
	}
	graphics.Logger().Info("loaded landmark track", "path", path, "frames", len(frames))
	return NewReplay(frames), nil
}

// Start rewinds the track.
func (r *Replay) Start(src inputs.Source, opts Options) error {
	r.next = 0
	r.running = true
	r.opts = opts
	return nil
}

func (r *Replay) Stop() {
	r.running = false
}

// CurrentPosition advances one frame per call. At the end the track loops,
// or holds its last frame when StopOnConvergence is set.
func (r *Replay) CurrentPosition() []feed.Point {
	if !r.running || len(r.frames) == 0 {
		return nil
	}
	if r.next >= len(r.frames) {
		if r.opts.StopOnConvergence {
			return r.frames[len(r.frames)-1]
		}
		r.next = 0
	}
	frame := r.frames[r.next]
	r.next++
	return frame
}

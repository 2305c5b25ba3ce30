// Package loop drives the render program at a fixed frame rate and applies
// edit requests between frames.
package loop

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/feed"
	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/inputs"
	"github.com/richinsley/goshaderboy/renderer"
	"github.com/richinsley/goshaderboy/shader"
	"github.com/richinsley/goshaderboy/tracker"
)

// FrameInterval is the delay between the end of one frame and the start of
// the next.
const FrameInterval = time.Second / 30

// Presenter shows finished frames. graphics.Context satisfies it.
type Presenter interface {
	ShouldClose() bool
	EndFrame()
}

// Listener is told the outcome of every edit request.
type Listener interface {
	// Committed reports that text is now the active fragment shader.
	Committed(text string)
	// Rejected reports that text failed with a *shader.CompileError or a
	// *shader.LinkError. The previous shader is still active.
	Rejected(text string, err error)
	// Reset reports that the default shader was restored.
	Reset()
	// SourceChanged reports a new image source.
	SourceChanged(src inputs.Source)
}

// FrameSink receives every rendered frame, top row first.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
}

type eventKind int

const (
	eventCommit eventKind = iota
	eventReset
	eventToggleMirror
	eventSwapSource
	eventResize
)

type event struct {
	kind eventKind
	text string
}

// Option configures a Driver.
type Option func(*Driver)

// WithTracker polls t for landmarks every frame. The default tracker never
// finds a face.
func WithTracker(t tracker.Tracker) Option {
	return func(d *Driver) { d.tracker = t }
}

// WithListener reports the outcome of every edit request to l.
func WithListener(l Listener) Option {
	return func(d *Driver) { d.listener = l }
}

// WithSink hands every frame to s after it is drawn.
func WithSink(s FrameSink) Option {
	return func(d *Driver) { d.sinks = append(d.sinks, s) }
}

// WithLevels supplies the audio levels written before each draw.
func WithLevels(levels func() [4]float32) Option {
	return func(d *Driver) { d.levels = levels }
}

// WithToggle sets the function that swaps the image source.
func WithToggle(toggle func(inputs.Source) (inputs.Source, error)) Option {
	return func(d *Driver) { d.toggle = toggle }
}

// WithResize is called with the new source size before the program re-reads
// the canvas size.
func WithResize(resize func(width, height int)) Option {
	return func(d *Driver) { d.resize = resize }
}

// WithMaxFrames stops the driver after n frames.
func WithMaxFrames(n int) Option {
	return func(d *Driver) { d.maxFrames = n }
}

// WithInterval replaces FrameInterval.
func WithInterval(interval time.Duration) Option {
	return func(d *Driver) { d.interval = interval }
}

// Driver owns the frame loop. Run must be called on the thread the GL
// context is current on; the request methods may be called from anywhere,
// including window callbacks running inside Run.
type Driver struct {
	program   *renderer.Program
	presenter Presenter
	source    inputs.Source

	tracker  tracker.Tracker
	listener Listener
	sinks    []FrameSink
	levels   func() [4]float32
	toggle   func(inputs.Source) (inputs.Source, error)
	resize   func(width, height int)

	interval  time.Duration
	maxFrames int
	frames    int

	mu      sync.Mutex
	pending []event
	notify  chan struct{}
}

// New returns a Driver that draws source through program and presents each
// frame on presenter.
func New(program *renderer.Program, presenter Presenter, source inputs.Source, opts ...Option) *Driver {
	d := &Driver{
		program:   program,
		presenter: presenter,
		source:    source,
		tracker:   tracker.None{},
		listener:  nopListener{},
		interval:  FrameInterval,
		notify:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Commit asks for text to become the active fragment shader.
func (d *Driver) Commit(text string) { d.enqueue(event{kind: eventCommit, text: text}) }

// Reset asks for the default fragment shader to be restored.
func (d *Driver) Reset() { d.enqueue(event{kind: eventReset}) }

// ToggleMirror asks for the mirror setting to be flipped.
func (d *Driver) ToggleMirror() { d.enqueue(event{kind: eventToggleMirror}) }

// SwapSource asks for the camera and still image to be swapped.
func (d *Driver) SwapSource() { d.enqueue(event{kind: eventSwapSource}) }

// Resized asks for the canvas size to be re-read. Windows report their new
// framebuffer size some time after a resize request.
func (d *Driver) Resized() { d.enqueue(event{kind: eventResize}) }

// enqueue never blocks.
func (d *Driver) enqueue(ev event) {
	d.mu.Lock()
	d.pending = append(d.pending, ev)
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Source returns the current image source.
func (d *Driver) Source() inputs.Source { return d.source }

// Frames returns the number of frames drawn so far.
func (d *Driver) Frames() int { return d.frames }

// Run draws frames until ctx is done, the presenter asks to close or the
// frame limit is reached. Each frame is scheduled once the previous one has
// finished; late frames are not caught up.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.tracker.Start(d.source, trackOptions(d.source)); err != nil {
		graphics.Logger().Warn("tracker failed to start", "error", err)
	}
	defer d.tracker.Stop()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.notify:
			d.drain()
		case <-timer.C:
			d.drain()
			if d.presenter.ShouldClose() {
				return nil
			}
			if err := d.tick(); err != nil {
				return err
			}
			if d.maxFrames > 0 && d.frames >= d.maxFrames {
				return nil
			}
			timer.Reset(d.interval)
		}
	}
}

func (d *Driver) tick() error {
	var face *feed.FaceData
	if points := d.tracker.CurrentPosition(); points != nil {
		// landmarks are in source pixels, the uniforms in framebuffer pixels
		w, h := d.program.Resolution()
		sw, sh := d.source.Size()
		points = feed.Scale(points, float32(sw), float32(sh), float32(w), float32(h))
		face, _ = feed.FromLandmarks(points, float32(w), float32(h), d.program.Mirrored())
	}
	if d.levels != nil {
		d.program.SetAudioLevels(d.levels())
	}
	d.program.Draw(d.source, face)

	if len(d.sinks) > 0 {
		img := d.program.ReadPixels()
		for _, s := range d.sinks {
			if err := s.WriteFrame(img); err != nil {
				return errors.Wrapf(err, "frame %d", d.frames)
			}
		}
	}
	d.presenter.EndFrame()
	d.frames++
	return nil
}

// drain applies every queued request in order.
func (d *Driver) drain() {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, ev := range pending {
		d.apply(ev)
	}
}

func (d *Driver) apply(ev event) {
	switch ev.kind {
	case eventCommit:
		if err := d.program.Recompile(ev.text); err != nil {
			d.listener.Rejected(ev.text, err)
			return
		}
		d.listener.Committed(ev.text)
	case eventReset:
		if err := d.program.Recompile(shader.DefaultFragment); err != nil {
			d.listener.Rejected(shader.DefaultFragment, err)
			return
		}
		d.listener.Reset()
	case eventToggleMirror:
		d.program.Mirror(!d.program.Mirrored())
	case eventSwapSource:
		d.swapSource()
	case eventResize:
		d.program.SetResolution()
	}
}

func (d *Driver) swapSource() {
	if d.toggle == nil {
		return
	}
	next, err := d.toggle(d.source)
	if err != nil {
		graphics.Logger().Warn("source not switched", "error", err)
		return
	}
	if next == d.source {
		return
	}
	d.tracker.Stop()
	d.source = next
	if d.resize != nil {
		w, h := next.Size()
		d.resize(w, h)
	}
	d.program.SetResolution()
	if err := d.tracker.Start(next, trackOptions(next)); err != nil {
		graphics.Logger().Warn("tracker failed to restart", "error", err)
	}
	d.listener.SourceChanged(next)
}

// trackOptions stops tracking a still image once it has converged.
func trackOptions(src inputs.Source) tracker.Options {
	return tracker.Options{StopOnConvergence: src.Kind() == inputs.KindImage}
}

type nopListener struct{}

func (nopListener) Committed(string)            {}
func (nopListener) Rejected(string, error)      {}
func (nopListener) Reset()                      {}
func (nopListener) SourceChanged(inputs.Source) {}

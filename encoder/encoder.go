// Package encoder writes rendered frames to a video file through an ffmpeg
// process, or to a PNG snapshot.
package encoder

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshaderboy/graphics"
)

// RecorderOptions describes the output video.
type RecorderOptions struct {
	Path       string
	Width      int
	Height     int
	FPS        int
	FFmpegPath string
}

// Recorder pipes raw RGBA frames into ffmpeg. Frames are queued to a writer
// goroutine so a slow encoder only stalls the loop once the queue is full.
type Recorder struct {
	width, height int
	frames        chan []byte
	done          chan error
	err           error
	closed        bool

	// failed is closed with failure set once ffmpeg exits or stops reading
	failed   chan struct{}
	failure  error
	failOnce sync.Once
}

func encoderArgs(opts RecorderOptions) (ffmpeg.KwArgs, ffmpeg.KwArgs) {
	inputArgs := ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": opts.FPS,
	}
	outputArgs := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"pix_fmt": "yuv420p",
		"preset":  "veryfast",
	}
	return inputArgs, outputArgs
}

// NewRecorder starts ffmpeg writing opts.Path.
func NewRecorder(opts RecorderOptions) (*Recorder, error) {
	if opts.FPS == 0 {
		opts.FPS = 30
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("invalid recording size %dx%d", opts.Width, opts.Height)
	}
	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := encoderArgs(opts)

	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(opts.Path, outputArgs).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if opts.FFmpegPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(opts.FFmpegPath)
	}

	run := func() error {
		err := ffmpegCmd.Run()
		pipeReader.CloseWithError(io.ErrClosedPipe)
		return err
	}
	graphics.Logger().Info("recording", "path", opts.Path, "width", opts.Width, "height", opts.Height, "fps", opts.FPS)
	return start(pipeWriter, run, opts.Width, opts.Height), nil
}

// start runs the encoder and feeds w from the frame queue.
func start(w io.WriteCloser, run func() error, width, height int) *Recorder {
	r := &Recorder{
		width:  width,
		height: height,
		frames: make(chan []byte, 5),
		done:   make(chan error, 1),
		failed: make(chan struct{}),
	}
	errc := make(chan error, 1)
	go func() {
		err := run()
		if err != nil {
			r.fail(errors.Wrap(err, "ffmpeg failed"))
		}
		errc <- err
	}()
	go func() {
		var werr error
		for pix := range r.frames {
			if werr != nil {
				continue
			}
			if _, err := w.Write(pix); err != nil {
				werr = errors.Wrap(err, "failed to write frame to ffmpeg")
				r.fail(werr)
			}
		}
		w.Close()
		if err := <-errc; err != nil {
			r.done <- errors.Wrap(err, "ffmpeg failed")
			return
		}
		r.done <- werr
	}()
	return r
}

func (r *Recorder) fail(err error) {
	r.failOnce.Do(func() {
		r.failure = err
		close(r.failed)
	})
}

// WriteFrame queues img. Its size must match the recording size. Once ffmpeg
// has failed every call returns that failure.
func (r *Recorder) WriteFrame(img *image.RGBA) error {
	if r.closed {
		return errors.New("recorder is closed")
	}
	select {
	case <-r.failed:
		return r.failure
	default:
	}
	if img.Rect.Dx() != r.width || img.Rect.Dy() != r.height {
		return errors.Errorf("frame is %dx%d, recording %dx%d", img.Rect.Dx(), img.Rect.Dy(), r.width, r.height)
	}
	pix := img.Pix
	if img.Stride != 4*r.width {
		pix = make([]byte, 0, 4*r.width*r.height)
		for y := 0; y < r.height; y++ {
			pix = append(pix, img.Pix[y*img.Stride:y*img.Stride+4*r.width]...)
		}
	}
	select {
	case r.frames <- pix:
		return nil
	case <-r.failed:
		return r.failure
	}
}

// Close flushes the queue and waits for ffmpeg to finish the file.
func (r *Recorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	close(r.frames)
	r.err = <-r.done
	return r.err
}

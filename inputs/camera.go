package inputs

import (
	"fmt"
	"image"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/richinsley/goshaderboy/graphics"
)

// CameraOptions selects the capture device and frame format.
type CameraOptions struct {
	// Device is the ffmpeg input name; empty picks the platform default.
	Device     string
	Width      int
	Height     int
	FPS        int
	FFmpegPath string
	// Timeout bounds the wait for the first frame.
	Timeout time.Duration
}

// Camera streams raw RGBA frames out of an ffmpeg capture process. A reader
// goroutine keeps only the latest frame.
type Camera struct {
	width  int
	height int
	cmd    *exec.Cmd
	pipe   *io.PipeReader

	mu     sync.Mutex
	latest *image.RGBA

	done chan struct{}
	err  error
}

// captureInput returns the ffmpeg input name and arguments for goos.
func captureInput(goos string, opts CameraOptions) (string, ffmpeg.KwArgs) {
	args := ffmpeg.KwArgs{
		"framerate":  opts.FPS,
		"video_size": fmt.Sprintf("%dx%d", opts.Width, opts.Height),
	}
	device := opts.Device
	switch goos {
	case "darwin":
		args["f"] = "avfoundation"
		if device == "" {
			device = "0"
		}
	case "windows":
		args["f"] = "dshow"
		if device == "" {
			device = "video=Integrated Camera"
		}
	default:
		args["f"] = "v4l2"
		if device == "" {
			device = "/dev/video0"
		}
	}
	return device, args
}

// OpenCamera starts the capture and waits for the first frame.
func OpenCamera(opts CameraOptions) (*Camera, error) {
	if opts.FPS == 0 {
		opts.FPS = 30
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	device, inputArgs := captureInput(runtime.GOOS, opts)

	pr, pw := io.Pipe()
	stream := ffmpeg.Input(device, inputArgs).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", opts.Width, opts.Height)}).
		Output("pipe:", ffmpeg.KwArgs{
			"f":       "rawvideo",
			"pix_fmt": "rgba",
		}).
		WithOutput(pw)
	if opts.FFmpegPath != "" {
		stream = stream.SetFfmpegPath(opts.FFmpegPath)
	}

	c := &Camera{
		width:  opts.Width,
		height: opts.Height,
		cmd:    stream.Compile(),
		pipe:   pr,
		done:   make(chan struct{}),
	}
	if err := c.cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start ffmpeg capture")
	}
	go func() {
		pw.CloseWithError(errors.Wrap(c.cmd.Wait(), "ffmpeg capture exited"))
	}()

	first := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(c.done)
		c.err = readFrames(pr, c.width, c.height, func(img *image.RGBA) {
			c.mu.Lock()
			c.latest = img
			c.mu.Unlock()
			once.Do(func() { close(first) })
		})
	}()

	select {
	case <-first:
		graphics.Logger().Info("camera opened", "device", device, "width", c.width, "height", c.height)
		return c, nil
	case <-c.done:
		c.Close()
		return nil, errors.Wrapf(c.err, "camera %s produced no frames", device)
	case <-time.After(opts.Timeout):
		c.Close()
		return nil, errors.Errorf("camera %s: no frame within %v", device, opts.Timeout)
	}
}

// readFrames splits r into width*height RGBA frames until r fails.
func readFrames(r io.Reader, width, height int, publish func(*image.RGBA)) error {
	size := width * height * 4
	for {
		// a fresh buffer per frame; the previous one may still be uploading
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		if _, err := io.ReadFull(r, img.Pix[:size]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		publish(img)
	}
}

func (c *Camera) Frame() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return nil
	}
	return c.latest
}

func (c *Camera) Size() (int, int) { return c.width, c.height }

func (c *Camera) Kind() Kind { return KindCamera }

// Close stops ffmpeg and waits for the reader to exit.
func (c *Camera) Close() error {
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.pipe.Close()
	<-c.done
	return nil
}

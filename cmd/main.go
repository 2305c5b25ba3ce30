package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/sync/errgroup"

	"github.com/richinsley/goshaderboy/audio"
	"github.com/richinsley/goshaderboy/editor"
	"github.com/richinsley/goshaderboy/encoder"
	"github.com/richinsley/goshaderboy/gldevice"
	"github.com/richinsley/goshaderboy/glfwcontext"
	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/headless"
	"github.com/richinsley/goshaderboy/inputs"
	"github.com/richinsley/goshaderboy/loop"
	"github.com/richinsley/goshaderboy/options"
	"github.com/richinsley/goshaderboy/renderer"
	"github.com/richinsley/goshaderboy/shader"
	"github.com/richinsley/goshaderboy/store"
	"github.com/richinsley/goshaderboy/tracker"
	"github.com/richinsley/goshaderboy/translator"
)

func init() {
	runtime.LockOSThread()
}

// surface is the context the program renders into.
type surface interface {
	graphics.Context
	IsGLES() bool
}

func main() {
	opts := options.New(flag.CommandLine)
	var help = flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *help {
		fmt.Println("goshaderboy: live fragment shader editor")
		flag.PrintDefaults()
		return
	}

	level := slog.LevelInfo
	if *opts.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	graphics.SetLogger(logger)

	st, err := store.New(opts.ResolveStateDir())
	if err != nil {
		log.Fatalf("Failed to open state directory: %v", err)
	}
	text, err := initialText(opts, st)
	if err != nil {
		log.Fatalf("Failed to read shader: %v", err)
	}

	acquire := inputs.AcquireOptions{
		Camera: inputs.CameraOptions{
			Device:     *opts.CameraDevice,
			Width:      *opts.Width,
			Height:     *opts.Height,
			FPS:        30,
			FFmpegPath: *opts.FFmpegPath,
		},
		NoCamera:  *opts.NoCamera,
		ImagePath: *opts.ImageFile,
	}
	src, err := inputs.Acquire(acquire)
	if err != nil {
		log.Fatalf("Failed to open an image source: %v", err)
	}
	// toggles during the run replace src
	defer func() { src.Close() }()
	width, height := src.Size()

	var win *glfwcontext.Context
	var ctx surface
	if *opts.Headless {
		h, err := headless.New(width, height)
		if err != nil {
			log.Fatalf("Failed to create headless context: %v", err)
		}
		ctx = h
	} else {
		if err := glfwcontext.Init(); err != nil {
			log.Fatalf("%v", err)
		}
		defer glfwcontext.Terminate()
		*opts.Width, *opts.Height = width, height
		win, err = glfwcontext.New(opts, true)
		if err != nil {
			log.Fatalf("%v", err)
		}
		ctx = win
	}
	defer ctx.Shutdown()

	dev, err := gldevice.New(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("OpenGL %s", dev.Version())

	var programOpts []renderer.Option
	if !*opts.NoTranslate {
		tr, err := translator.New(context.Background(), ctx.IsGLES())
		if err != nil {
			log.Fatalf("%v", err)
		}
		programOpts = append(programOpts, renderer.WithTranslator(tr))
	}
	program, err := renderer.New(dev, ctx, programOpts...)
	if err != nil {
		log.Fatalf("Failed to create render program: %v", err)
	}
	defer program.Destroy()
	program.Mirror(*opts.Mirror)

	sess := &session{store: st, out: os.Stderr, logger: logger}
	if text != shader.DefaultFragment {
		if err := program.Recompile(text); err != nil {
			sess.Rejected(text, err)
		}
	}

	driverOpts := []loop.Option{loop.WithListener(sess)}
	if *opts.Frames > 0 {
		driverOpts = append(driverOpts, loop.WithMaxFrames(*opts.Frames))
	}
	if *opts.Landmarks != "" {
		replay, err := tracker.LoadReplay(*opts.Landmarks)
		if err != nil {
			log.Fatalf("%v", err)
		}
		driverOpts = append(driverOpts, loop.WithTracker(replay))
	}
	if *opts.Audio {
		meter, err := audio.NewMeter(audio.Open(44100))
		if err != nil {
			log.Printf("Warning: audio disabled: %v", err)
		} else {
			defer meter.Close()
			driverOpts = append(driverOpts, loop.WithLevels(meter.Levels))
		}
	}
	if *opts.RecordFile != "" {
		w, h := program.Resolution()
		rec, err := encoder.NewRecorder(encoder.RecorderOptions{
			Path:       *opts.RecordFile,
			Width:      w,
			Height:     h,
			FPS:        30,
			FFmpegPath: *opts.FFmpegPath,
		})
		if err != nil {
			log.Fatalf("Failed to start recording: %v", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("Recording failed: %v", err)
			} else {
				log.Printf("Successfully recorded to %s", *opts.RecordFile)
			}
		}()
		driverOpts = append(driverOpts, loop.WithSink(rec))
	} else if win != nil {
		// the canvas follows the source; a recording keeps its frame size
		driverOpts = append(driverOpts,
			loop.WithToggle(func(cur inputs.Source) (inputs.Source, error) { return inputs.Toggle(cur, acquire) }),
			loop.WithResize(win.SetSize))
	}
	if *opts.SnapshotFile != "" {
		snap := &encoder.Snapshot{Path: *opts.SnapshotFile}
		defer func() {
			if err := snap.Close(); err != nil {
				log.Printf("Snapshot failed: %v", err)
			} else {
				log.Printf("Wrote snapshot %s", snap.Path)
			}
		}()
		driverOpts = append(driverOpts, loop.WithSink(snap))
	}
	driver := loop.New(program, ctx, src, driverOpts...)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	var watcher *editor.Watcher
	if *opts.ShaderFile != "" {
		watcher = editor.NewWatcher(*opts.ShaderFile, editor.PollInterval, driver.Commit)
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if win != nil {
		bindKeys(win, driver, watcher)
		win.OnFramebufferResize(func(int, int) { driver.Resized() })
	}

	log.Println("Starting render loop...")
	if err := driver.Run(gctx); err != nil {
		log.Printf("Render loop stopped: %v", err)
	}
	stop()
	if err := g.Wait(); err != nil {
		log.Printf("%v", err)
	}
	src = driver.Source()
}

// initialText picks the shader file, then the stored text, then the default.
func initialText(opts *options.ShaderOptions, st *store.Store) (string, error) {
	if *opts.ShaderFile != "" {
		data, err := os.ReadFile(*opts.ShaderFile)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		// start a new file from the default shader
		if err := os.WriteFile(*opts.ShaderFile, []byte(shader.DefaultFragment), 0o644); err != nil {
			return "", err
		}
		return shader.DefaultFragment, nil
	}
	text, ok, err := st.Load()
	if err != nil || !ok {
		return shader.DefaultFragment, err
	}
	return text, nil
}

func bindKeys(win *glfwcontext.Context, driver *loop.Driver, watcher *editor.Watcher) {
	commit := func() {
		if watcher == nil {
			log.Printf("No shader file to commit (use -shader)")
			return
		}
		if err := watcher.Commit(); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	win.RegisterKeyCallback(glfw.KeyS, glfw.ModControl, commit)
	win.RegisterKeyCallback(glfw.KeyS, glfw.ModSuper, commit)
	win.RegisterKeyCallback(glfw.KeyF5, 0, commit)
	win.RegisterKeyCallback(glfw.KeyM, 0, driver.ToggleMirror)
	win.RegisterKeyCallback(glfw.KeyR, 0, driver.Reset)
	win.RegisterKeyCallback(glfw.KeyT, 0, driver.SwapSource)
}

// Package options holds the command line configuration of goshaderboy.
package options

import (
	"flag"
	"os"
)

// StateDirEnv overrides the directory the last committed shader is kept in.
const StateDirEnv = "SHADERBOY_STATE_DIR"

type ShaderOptions struct {
	ShaderFile   *string // fragment shader file watched and committed on change
	ImageFile    *string // still image used when no camera is available
	CameraDevice *string // ffmpeg capture device; empty picks the platform default
	NoCamera     *bool
	Width        *int
	Height       *int
	Mirror       *bool
	Landmarks    *string // JSON landmark track replayed as the tracker
	Audio        *bool   // feed microphone levels into u_audio
	RecordFile   *string
	SnapshotFile *string
	Frames       *int // stop after this many frames; 0 runs until closed
	FFmpegPath   *string
	Headless     *bool
	NoTranslate  *bool
	StateDir     *string
	Debug        *bool
}

// New registers every option on fs.
func New(fs *flag.FlagSet) *ShaderOptions {
	return &ShaderOptions{
		ShaderFile:   fs.String("shader", "", "Fragment shader file to watch (GLSL ES 3.00)"),
		ImageFile:    fs.String("image", "", "Still image shown when the camera is unavailable"),
		CameraDevice: fs.String("camera", "", "Camera device passed to ffmpeg (default: platform default)"),
		NoCamera:     fs.Bool("no-camera", false, "Never open the camera"),
		Width:        fs.Int("width", 640, "Canvas width"),
		Height:       fs.Int("height", 480, "Canvas height"),
		Mirror:       fs.Bool("mirror", false, "Mirror the output horizontally"),
		Landmarks:    fs.String("landmarks", "", "JSON landmark track to replay"),
		Audio:        fs.Bool("audio", false, "Feed microphone levels into u_audio"),
		RecordFile:   fs.String("record", "", "Record the canvas to this video file"),
		SnapshotFile: fs.String("snapshot", "", "Write the last rendered frame to this PNG file"),
		Frames:       fs.Int("frames", 0, "Stop after this many frames"),
		FFmpegPath:   fs.String("ffmpeg", "", "Path to ffmpeg executable"),
		Headless:     fs.Bool("headless", false, "Render into an offscreen EGL surface"),
		NoTranslate:  fs.Bool("no-translate", false, "Hand shaders to the driver without ANGLE translation"),
		StateDir:     fs.String("state-dir", "", "Directory the last committed shader is stored in (env "+StateDirEnv+")"),
		Debug:        fs.Bool("debug", false, "Enable debug logging"),
	}
}

// ResolveStateDir returns the state directory from the flag, then the
// environment; empty means the user config directory.
func (o *ShaderOptions) ResolveStateDir() string {
	if o.StateDir != nil && *o.StateDir != "" {
		return *o.StateDir
	}
	return os.Getenv(StateDirEnv)
}

package options

import (
	"flag"
	"testing"
)

func parse(t *testing.T, args ...string) *ShaderOptions {
	t.Helper()
	fs := flag.NewFlagSet("goshaderboy", flag.ContinueOnError)
	opts := New(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return opts
}

func TestDefaults(t *testing.T) {
	opts := parse(t)
	if *opts.Width != 640 || *opts.Height != 480 {
		t.Errorf("size = %dx%d", *opts.Width, *opts.Height)
	}
	if *opts.Mirror || *opts.Headless || *opts.Frames != 0 {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestFlags(t *testing.T) {
	opts := parse(t, "-shader", "a.frag", "-mirror", "-frames", "3", "-width", "320")
	if *opts.ShaderFile != "a.frag" || !*opts.Mirror || *opts.Frames != 3 || *opts.Width != 320 {
		t.Errorf("parsed %q %v %d %d", *opts.ShaderFile, *opts.Mirror, *opts.Frames, *opts.Width)
	}
}

func TestResolveStateDir(t *testing.T) {
	t.Setenv(StateDirEnv, "/from/env")
	if got := parse(t).ResolveStateDir(); got != "/from/env" {
		t.Errorf("env: got %q", got)
	}
	if got := parse(t, "-state-dir", "/from/flag").ResolveStateDir(); got != "/from/flag" {
		t.Errorf("flag: got %q", got)
	}
}

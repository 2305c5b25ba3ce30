package renderer

import (
	"image"
	"image/color"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/feed"
	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/graphics/graphicstest"
	"github.com/richinsley/goshaderboy/shader"
)

const plainFragment = `#version 300 es
precision mediump float;
in vec2 v_texcoord;
out vec4 fragColor;
uniform sampler2D u_texture;
uniform vec2 u_resolution;
void main() {
    fragColor = texture(u_texture, v_texcoord);
}
`

const brokenFragment = `#version 300 es
precision mediump float;
out vec4 fragColor;
void main() {
#error nope
    fragColor = vec4(1.0);
}
`

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type stillSource struct{ img image.Image }

func (s stillSource) Frame() image.Image { return s.img }

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTestProgram(t *testing.T) (*Program, *graphicstest.Device, *graphicstest.Surface, *fakeClock) {
	t.Helper()
	dev := graphicstest.New()
	surface := &graphicstest.Surface{Width: 640, Height: 480}
	clock := &fakeClock{now: time.Unix(1000, 0)}
	p, err := New(dev, surface, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, dev, surface, clock
}

func uniform(t *testing.T, dev *graphicstest.Device, p *Program, name string) []float32 {
	t.Helper()
	v, ok := dev.Uniform(p.Handle(), name)
	if !ok {
		t.Fatalf("uniform %s not set on program %d", name, p.Handle())
	}
	return v
}

func checkNoErrors(t *testing.T, dev *graphicstest.Device) {
	t.Helper()
	if errs := dev.Errors(); len(errs) > 0 {
		t.Fatalf("device usage errors: %v", errs)
	}
}

func TestNew(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)

	if dev.Current() != p.Handle() {
		t.Fatalf("current program = %d, want %d", dev.Current(), p.Handle())
	}
	if got := uniform(t, dev, p, "u_resolution"); !reflect.DeepEqual(got, []float32{640, 480}) {
		t.Errorf("u_resolution = %v", got)
	}
	if got := uniform(t, dev, p, "u_mirror"); !reflect.DeepEqual(got, []float32{1}) {
		t.Errorf("u_mirror = %v", got)
	}
	if got := uniform(t, dev, p, "u_texture"); !reflect.DeepEqual(got, []float32{0}) {
		t.Errorf("u_texture = %v", got)
	}
	if vp := dev.LastViewport(); vp != [4]int{0, 0, 640, 480} {
		t.Errorf("viewport = %v", vp)
	}
	attribs := dev.Attribs()
	if len(attribs) != 2 || attribs[0] == 0 || attribs[1] == 0 {
		t.Errorf("vertex attributes = %v", attribs)
	}
	tex := dev.Texture(p.texture.handle)
	if tex.Width != 1 || tex.Height != 1 || !reflect.DeepEqual(tex.Pixels, []byte{0, 0, 0, 0}) {
		t.Errorf("placeholder texture = %dx%d %v", tex.Width, tex.Height, tex.Pixels)
	}
	if p.FragmentSource() != shader.DefaultFragment {
		t.Errorf("fragment source is not the default")
	}
	checkNoErrors(t, dev)
}

func TestNewConstructionFailure(t *testing.T) {
	dev := graphicstest.New()
	dev.CompileFunc = func(stage graphics.Stage, _ string) (string, bool) {
		if stage == graphics.FragmentStage {
			return "ERROR: 0:1: 'x' : syntax error\n", false
		}
		return "", true
	}
	_, err := New(dev, &graphicstest.Surface{Width: 4, Height: 4})
	if errors.Cause(err) != ErrConstruction {
		t.Fatalf("err = %v, want wrapped ErrConstruction", err)
	}
	if live := dev.LiveShaders(); len(live) != 0 {
		t.Errorf("live shaders after failed construction: %v", live)
	}
}

func TestNewLinkFailure(t *testing.T) {
	dev := graphicstest.New()
	dev.LinkFunc = func(string, string) (string, bool) { return "ERROR: link", false }
	_, err := New(dev, &graphicstest.Surface{Width: 4, Height: 4})
	if errors.Cause(err) != ErrConstruction {
		t.Fatalf("err = %v, want wrapped ErrConstruction", err)
	}
	if live := dev.LiveShaders(); len(live) != 0 {
		t.Errorf("live shaders: %v", live)
	}
	if live := dev.LivePrograms(); len(live) != 0 {
		t.Errorf("live programs: %v", live)
	}
}

func TestWithFragment(t *testing.T) {
	dev := graphicstest.New()
	p, err := New(dev, &graphicstest.Surface{Width: 8, Height: 8}, WithFragment(plainFragment))
	if err != nil {
		t.Fatal(err)
	}
	if p.FragmentSource() != plainFragment {
		t.Errorf("fragment source = %q", p.FragmentSource())
	}
}

func TestRecompileCompileFailureIsAtomic(t *testing.T) {
	p, dev, _, clock := newTestProgram(t)
	p.Mirror(true)
	before := p.Handle()
	liveShaders := dev.LiveShaders()
	livePrograms := dev.LivePrograms()
	clock.Advance(time.Second)

	err := p.Recompile(brokenFragment)
	var ce *shader.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v (%T), want *shader.CompileError", err, err)
	}
	if ce.Stage != graphics.FragmentStage {
		t.Errorf("stage = %v", ce.Stage)
	}
	diags := ce.Diagnostics()
	if len(diags) != 1 || diags[0].Line != 5 {
		t.Errorf("diagnostics = %+v", diags)
	}

	if p.Handle() != before || dev.Current() != before {
		t.Errorf("active program changed: %d -> %d (current %d)", before, p.Handle(), dev.Current())
	}
	if !reflect.DeepEqual(dev.LiveShaders(), liveShaders) {
		t.Errorf("live shaders %v, want %v", dev.LiveShaders(), liveShaders)
	}
	if !reflect.DeepEqual(dev.LivePrograms(), livePrograms) {
		t.Errorf("live programs %v, want %v", dev.LivePrograms(), livePrograms)
	}
	if p.FragmentSource() != shader.DefaultFragment {
		t.Errorf("fragment source replaced")
	}
	// the start time is not reset by a failed edit
	if got := p.Elapsed(); got != 1000 {
		t.Errorf("elapsed = %v, want 1000", got)
	}
	checkNoErrors(t, dev)
}

func TestRecompileLinkFailureIsAtomic(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	before := p.Handle()
	liveShaders := dev.LiveShaders()
	livePrograms := dev.LivePrograms()

	dev.LinkFunc = func(string, string) (string, bool) {
		return "ERROR: Varying v_texcoord is not declared", false
	}
	err := p.Recompile(plainFragment)
	var le *shader.LinkError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v (%T), want *shader.LinkError", err, err)
	}
	if !strings.Contains(le.Log, "v_texcoord") {
		t.Errorf("link log = %q", le.Log)
	}
	if p.Handle() != before || dev.Current() != before {
		t.Errorf("active program changed")
	}
	if !reflect.DeepEqual(dev.LiveShaders(), liveShaders) {
		t.Errorf("live shaders %v, want %v", dev.LiveShaders(), liveShaders)
	}
	if !reflect.DeepEqual(dev.LivePrograms(), livePrograms) {
		t.Errorf("live programs %v, want %v", dev.LivePrograms(), livePrograms)
	}
	checkNoErrors(t, dev)
}

func TestRecompileSuccess(t *testing.T) {
	p, dev, _, clock := newTestProgram(t)
	old := p.Handle()
	oldFragment := p.active.fragment.Handle()
	vertex := p.vertex.Handle()
	clock.Advance(5 * time.Second)

	if err := p.Recompile(plainFragment); err != nil {
		t.Fatalf("Recompile: %v", err)
	}
	if p.Handle() == old || dev.Current() != p.Handle() {
		t.Fatalf("program not swapped: old %d new %d current %d", old, p.Handle(), dev.Current())
	}
	if !dev.Program(old).Deleted {
		t.Errorf("old program not released")
	}
	if !dev.Shader(oldFragment).Deleted {
		t.Errorf("old fragment shader not released")
	}
	if dev.Shader(vertex).Deleted {
		t.Errorf("vertex shader released")
	}
	if got := p.Elapsed(); got != 0 {
		t.Errorf("elapsed after swap = %v, want 0", got)
	}
	if p.FragmentSource() != plainFragment {
		t.Errorf("fragment source not replaced")
	}
	if live := dev.LivePrograms(); len(live) != 1 {
		t.Errorf("live programs = %v", live)
	}
	checkNoErrors(t, dev)
}

func TestRecompilePreservesMirrorAndResolution(t *testing.T) {
	p, dev, surface, _ := newTestProgram(t)
	p.Mirror(true)
	surface.Width, surface.Height = 320, 240
	p.SetResolution()

	if err := p.Recompile(plainFragment); err != nil {
		t.Fatal(err)
	}
	if got := uniform(t, dev, p, "u_mirror"); !reflect.DeepEqual(got, []float32{-1}) {
		t.Errorf("u_mirror = %v, want [-1]", got)
	}
	if got := uniform(t, dev, p, "u_resolution"); !reflect.DeepEqual(got, []float32{320, 240}) {
		t.Errorf("u_resolution = %v", got)
	}
	if vp := dev.LastViewport(); vp != [4]int{0, 0, 320, 240} {
		t.Errorf("viewport = %v", vp)
	}
	if !p.Mirrored() {
		t.Errorf("mirror state lost")
	}
	if w, h := p.Resolution(); w != 320 || h != 240 {
		t.Errorf("resolution = %dx%d", w, h)
	}
}

func TestMirrorToggle(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	for _, tc := range []struct {
		enabled bool
		want    float32
	}{
		{true, -1},
		{false, 1},
		{true, -1},
	} {
		p.Mirror(tc.enabled)
		if got := uniform(t, dev, p, "u_mirror"); got[0] != tc.want {
			t.Errorf("Mirror(%v): u_mirror = %v, want %v", tc.enabled, got[0], tc.want)
		}
	}
}

func TestDrawUploadsEveryFrame(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	src := stillSource{solid(2, 2, color.RGBA{R: 255, A: 255})}

	p.Draw(src, nil)
	p.Draw(src, nil)

	tex := dev.Texture(p.texture.handle)
	if tex.Uploads != 3 { // placeholder plus one per draw
		t.Errorf("uploads = %d, want 3", tex.Uploads)
	}
	if tex.Width != 2 || tex.Height != 2 || tex.Pixels[0] != 255 {
		t.Errorf("texture = %dx%d %v", tex.Width, tex.Height, tex.Pixels[:4])
	}
	draws := dev.Draws()
	if len(draws) != 2 {
		t.Fatalf("draws = %d", len(draws))
	}
	for _, d := range draws {
		if d.Mode != graphics.TriangleStrip || d.First != 0 || d.Count != 4 {
			t.Errorf("draw = %+v", d)
		}
		if d.Texture != p.texture.handle {
			t.Errorf("texture unit 0 = %d", d.Texture)
		}
	}
	checkNoErrors(t, dev)
}

func TestDrawConvertsSubImage(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	img := solid(4, 4, color.RGBA{G: 200, A: 255})
	sub := img.SubImage(image.Rect(1, 1, 3, 4))

	p.Draw(stillSource{sub}, nil)

	tex := dev.Texture(p.texture.handle)
	if tex.Width != 2 || tex.Height != 3 {
		t.Fatalf("texture = %dx%d, want 2x3", tex.Width, tex.Height)
	}
	if len(tex.Pixels) != 2*3*4 || tex.Pixels[1] != 200 {
		t.Errorf("pixels = %v", tex.Pixels)
	}
}

func TestDrawNilFrameKeepsTexture(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	p.Draw(stillSource{}, nil)
	if tex := dev.Texture(p.texture.handle); tex.Uploads != 1 {
		t.Errorf("uploads = %d, want 1", tex.Uploads)
	}
	if len(dev.Draws()) != 1 {
		t.Errorf("draw skipped")
	}
}

func TestDrawFaceUniforms(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	points := make([]feed.Point, feed.ModelSize)
	points[feed.LeftEye] = feed.Point{X: 100, Y: 50}
	points[feed.RightEye] = feed.Point{X: 200, Y: 50}
	face, ok := feed.FromLandmarks(points, 640, 480, false)
	if !ok {
		t.Fatal("no face data")
	}

	p.Draw(stillSource{}, face)
	if got := uniform(t, dev, p, "u_leftEye"); !reflect.DeepEqual(got, []float32{100, 430}) {
		t.Errorf("u_leftEye = %v", got)
	}
	if got := uniform(t, dev, p, "u_rightEye"); !reflect.DeepEqual(got, []float32{200, 430}) {
		t.Errorf("u_rightEye = %v", got)
	}

	// an absent face keeps the previous frame's values
	p.Draw(stillSource{}, nil)
	draws := dev.Draws()
	last := draws[len(draws)-1]
	if got := last.Uniforms["u_leftEye"]; !reflect.DeepEqual(got, []float32{100, 430}) {
		t.Errorf("u_leftEye after absent face = %v", got)
	}
	checkNoErrors(t, dev)
}

func TestDrawFaceAbsentLeavesEyesUnset(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	p.Draw(stillSource{}, nil)
	if _, ok := dev.Uniform(p.Handle(), "u_leftEye"); ok {
		t.Errorf("u_leftEye written without face data")
	}
}

func TestDrawTime(t *testing.T) {
	p, dev, _, clock := newTestProgram(t)
	clock.Advance(1500 * time.Millisecond)
	p.Draw(stillSource{}, nil)
	if got := uniform(t, dev, p, "u_time"); got[0] != 1500 {
		t.Errorf("u_time = %v, want 1500", got[0])
	}

	if err := p.Recompile(shader.DefaultFragment); err != nil {
		t.Fatal(err)
	}
	clock.Advance(250 * time.Millisecond)
	p.Draw(stillSource{}, nil)
	if got := uniform(t, dev, p, "u_time"); got[0] != 250 {
		t.Errorf("u_time after recompile = %v, want 250", got[0])
	}
}

func TestDrawAudioLevels(t *testing.T) {
	dev := graphicstest.New()
	fragment := strings.Replace(plainFragment, "uniform vec2 u_resolution;", "uniform vec2 u_resolution;\nuniform vec4 u_audio;", 1)
	p, err := New(dev, &graphicstest.Surface{Width: 8, Height: 8}, WithFragment(fragment))
	if err != nil {
		t.Fatal(err)
	}
	p.Draw(stillSource{}, nil)
	if _, ok := dev.Uniform(p.Handle(), "u_audio"); ok {
		t.Errorf("u_audio written before levels were supplied")
	}
	p.SetAudioLevels([4]float32{0.5, 0.25, 0.125, 1})
	p.Draw(stillSource{}, nil)
	if got := uniform(t, dev, p, "u_audio"); !reflect.DeepEqual(got, []float32{0.5, 0.25, 0.125, 1}) {
		t.Errorf("u_audio = %v", got)
	}
}

func TestReadPixelsFlips(t *testing.T) {
	dev := graphicstest.New()
	p, err := New(dev, &graphicstest.Surface{Width: 1, Height: 2})
	if err != nil {
		t.Fatal(err)
	}
	// bottom row first, as GL returns it
	dev.Framebuffer = []byte{1, 1, 1, 255, 2, 2, 2, 255}
	img := p.ReadPixels()
	if img.Pix[0] != 2 || img.Pix[4] != 1 {
		t.Errorf("pixels = %v, want top row first", img.Pix)
	}
}

func TestDestroy(t *testing.T) {
	p, dev, _, _ := newTestProgram(t)
	p.Destroy()
	if live := dev.LiveShaders(); len(live) != 0 {
		t.Errorf("live shaders: %v", live)
	}
	if live := dev.LivePrograms(); len(live) != 0 {
		t.Errorf("live programs: %v", live)
	}
}

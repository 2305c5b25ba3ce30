// Package renderer owns the live shader program: it compiles and links user
// fragment shaders against the fixed vertex stage, swaps them in without
// disturbing the current one on failure, and draws the image source through
// the active program each frame.
package renderer

import (
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/feed"
	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/shader"
)

// ErrConstruction is wrapped by every error New returns. The built-in
// shaders failing to build is a packaging defect; callers should abort.
var ErrConstruction = errors.New("render program construction failed")

// ImageSource supplies the pixels drawn each frame. Frame may return nil
// while no frame is available yet.
type ImageSource interface {
	Frame() image.Image
}

// Unit quad as a triangle strip, with texture coordinates placing image row 0
// at the top of the canvas.
var (
	quadPositions = []float32{
		-1.0, 1.0, 1.0, 1.0,
		-1.0, -1.0, 1.0, -1.0,
	}
	quadTexcoords = []float32{
		0.0, 0.0,
		1.0, 0.0,
		0.0, 1.0,
		1.0, 1.0,
	}
)

// linkedProgram is one linked vertex+fragment pair and the state derived
// from it.
type linkedProgram struct {
	handle   uint32
	fragment *shader.Unit
	uniforms uniformTable
	position int32
	texcoord int32
	start    time.Time
}

// Option configures a Program.
type Option func(*Program)

// WithTranslator translates every stage before it reaches the device.
func WithTranslator(t shader.Translator) Option {
	return func(p *Program) { p.translator = t }
}

// WithFragment starts the program with source instead of
// shader.DefaultFragment.
func WithFragment(source string) Option {
	return func(p *Program) { p.initial = source }
}

// WithClock replaces time.Now as the source of the time uniform.
func WithClock(now func() time.Time) Option {
	return func(p *Program) { p.now = now }
}

// Program is the render program. It exclusively owns the active linked
// program, the fixed vertex unit, the quad geometry and the source texture.
// All methods must be called on the thread that owns the GL context.
type Program struct {
	dev        graphics.Device
	surface    graphics.Surface
	translator shader.Translator
	compiler   *shader.Compiler
	now        func() time.Time
	initial    string

	vertex *shader.Unit
	active *linkedProgram

	vao            uint32
	positionBuffer uint32
	texcoordBuffer uint32
	texture        *sourceTexture

	mirrored bool
	width    int
	height   int
	audio    *[4]float32
}

// New builds the program from shader.DefaultVertex and shader.DefaultFragment.
// Any failure is fatal for the caller; the returned error wraps ErrConstruction.
func New(dev graphics.Device, surface graphics.Surface, opts ...Option) (*Program, error) {
	p := &Program{
		dev:     dev,
		surface: surface,
		now:     time.Now,
		initial: shader.DefaultFragment,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.compiler = shader.NewCompiler(dev, p.translator)
	p.width, p.height = surface.GetFramebufferSize()

	var err error
	p.vertex, err = p.compiler.Compile(shader.Vertex(shader.DefaultVertex))
	if err != nil {
		return nil, errors.Wrapf(ErrConstruction, "default vertex shader: %v", err)
	}
	fragment, err := p.compiler.Compile(shader.Fragment(p.initial))
	if err != nil {
		p.vertex.Release()
		return nil, errors.Wrapf(ErrConstruction, "fragment shader: %v", err)
	}

	p.vao = dev.CreateVertexArray()
	p.positionBuffer = dev.CreateBuffer(quadPositions)
	p.texcoordBuffer = dev.CreateBuffer(quadTexcoords)
	p.texture = newSourceTexture(dev)

	linked, err := p.link(fragment)
	if err != nil {
		fragment.Release()
		p.Destroy()
		return nil, errors.Wrapf(ErrConstruction, "link: %v", err)
	}
	p.swap(linked)
	graphics.Logger().Info("render program ready", "program", linked.handle, "width", p.width, "height", p.height)
	return p, nil
}

// Recompile replaces the fragment stage with source. It returns nil on
// success, a *shader.CompileError when source does not compile, or a
// *shader.LinkError when the stages fail to link. On any error the active
// program and every resource it uses are left exactly as they were.
func (p *Program) Recompile(source string) error {
	fragment, err := p.compiler.Compile(shader.Fragment(source))
	if err != nil {
		graphics.Logger().Warn("fragment shader rejected", "error", err)
		return err
	}
	next, err := p.link(fragment)
	if err != nil {
		fragment.Release()
		graphics.Logger().Error("program link failed", "error", err)
		return err
	}
	old := p.active
	p.swap(next)
	graphics.Logger().Info("swapped program", "old", old.handle, "new", next.handle)
	return nil
}

// link links fragment with the vertex unit into a new program without
// touching the active one.
func (p *Program) link(fragment *shader.Unit) (*linkedProgram, error) {
	handle := p.dev.CreateProgram()
	p.dev.AttachShader(handle, p.vertex.Handle())
	p.dev.AttachShader(handle, fragment.Handle())
	p.dev.LinkProgram(handle)
	if !p.dev.ProgramLinked(handle) {
		log := p.dev.ProgramInfoLog(handle)
		p.dev.DeleteProgram(handle)
		return nil, &shader.LinkError{Log: log}
	}
	return &linkedProgram{
		handle:   handle,
		fragment: fragment,
		uniforms: resolveUniforms(p.dev, handle, p.vertex, fragment),
		position: resolveAttrib(p.dev, handle, p.vertex, attribPosition, positionLocation),
		texcoord: resolveAttrib(p.dev, handle, p.vertex, attribTexcoord, texcoordLocation),
	}, nil
}

// swap makes next the active program and releases the previous one.
func (p *Program) swap(next *linkedProgram) {
	dev := p.dev
	dev.UseProgram(next.handle)

	dev.BindVertexArray(p.vao)
	dev.VertexAttrib(next.position, p.positionBuffer, 2)
	dev.VertexAttrib(next.texcoord, p.texcoordBuffer, 2)

	dev.BindTexture(0, p.texture.handle)
	dev.Uniform1i(next.uniforms.texture, 0)

	old := p.active
	p.active = next
	p.applyMirror()
	p.applyResolution()
	next.start = p.now()

	if old != nil {
		dev.DeleteProgram(old.handle)
		old.fragment.Release()
	}
}

// Draw uploads the current frame and draws it through the active program.
// Face uniforms are only written when face is non-nil; otherwise the shader
// keeps seeing the previous frame's values.
func (p *Program) Draw(src ImageSource, face *feed.FaceData) {
	dev := p.dev
	u := p.active.uniforms

	if src != nil {
		p.texture.upload(src.Frame())
	}
	if face != nil {
		dev.Uniform2f(u.leftEye, face.LeftEye.X, face.LeftEye.Y)
		dev.Uniform2f(u.rightEye, face.RightEye.X, face.RightEye.Y)
		dev.Uniform2f(u.mouth, face.Mouth.X, face.Mouth.Y)
		dev.Uniform2fv(u.noseBridge, []float32{
			face.NoseBridge[0].X, face.NoseBridge[0].Y,
			face.NoseBridge[1].X, face.NoseBridge[1].Y,
			face.NoseBridge[2].X, face.NoseBridge[2].Y,
		})
		dev.Uniform2f(u.faceUp, face.FaceUp.X, face.FaceUp.Y)
		dev.Uniform1f(u.openMouth, face.OpenMouth)
		if len(face.Vertices) > 0 {
			dev.Uniform2fv(u.vertices, face.Flat())
		}
	}
	if p.audio != nil {
		dev.Uniform4f(u.audio, p.audio[0], p.audio[1], p.audio[2], p.audio[3])
	}
	dev.Uniform1f(u.time, p.Elapsed())
	dev.DrawArrays(graphics.TriangleStrip, 0, 4)
}

// Elapsed returns the milliseconds since the active program was swapped in.
func (p *Program) Elapsed() float32 {
	return float32(p.now().Sub(p.active.start).Seconds() * 1000)
}

// Mirror flips the output horizontally when enabled. The setting survives
// recompiles.
func (p *Program) Mirror(enabled bool) {
	p.mirrored = enabled
	p.applyMirror()
}

func (p *Program) applyMirror() {
	sign := float32(1.0)
	if p.mirrored {
		sign = -1.0
	}
	p.dev.Uniform1f(p.active.uniforms.mirror, sign)
}

// SetResolution re-reads the surface size and re-applies the resolution
// uniform and the viewport. Call it after switching to a source of a
// different size.
func (p *Program) SetResolution() {
	p.width, p.height = p.surface.GetFramebufferSize()
	p.applyResolution()
	graphics.Logger().Info("resolution changed", "width", p.width, "height", p.height)
}

func (p *Program) applyResolution() {
	p.dev.Uniform2f(p.active.uniforms.resolution, float32(p.width), float32(p.height))
	p.dev.Viewport(0, 0, p.width, p.height)
}

// SetAudioLevels supplies the u_audio vec4 written on every following draw.
func (p *Program) SetAudioLevels(levels [4]float32) {
	p.audio = &levels
}

// ReadPixels reads back the rendered canvas with row 0 at the top.
func (p *Program) ReadPixels() *image.RGBA {
	w, h := p.width, p.height
	raw := p.dev.ReadPixels(w, h)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := 0; y < h; y++ {
		copy(img.Pix[y*stride:(y+1)*stride], raw[(h-1-y)*stride:(h-y)*stride])
	}
	return img
}

// Mirrored reports the mirror setting.
func (p *Program) Mirrored() bool { return p.mirrored }

// Resolution returns the canvas size last applied.
func (p *Program) Resolution() (int, int) { return p.width, p.height }

// FragmentSource returns the source of the active fragment stage.
func (p *Program) FragmentSource() string { return p.active.fragment.Source().Text }

// Handle returns the active native program object.
func (p *Program) Handle() uint32 { return p.active.handle }

// Destroy releases every GL object the program owns.
func (p *Program) Destroy() {
	if p.active != nil {
		p.dev.DeleteProgram(p.active.handle)
		p.active.fragment.Release()
		p.active = nil
	}
	p.vertex.Release()
	if p.texture != nil {
		p.texture.destroy()
	}
	p.dev.DeleteBuffer(p.positionBuffer)
	p.dev.DeleteBuffer(p.texcoordBuffer)
	p.dev.DeleteVertexArray(p.vao)
}

package graphics

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	VertexStage Stage = iota
	FragmentStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

// Primitive is a draw topology.
type Primitive int

const (
	Triangles Primitive = iota
	TriangleStrip
)

// Device is the subset of the GL API used by the render core. Handles are
// opaque; locations of -1 denote a uniform or attribute the program does not
// use, and writes to -1 are ignored.
//
// A Device is bound to the thread that owns the current context and is not
// safe for concurrent use.
type Device interface {
	CreateShader(stage Stage) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32)
	ShaderCompiled(shader uint32) bool
	ShaderInfoLog(shader uint32) string
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	DetachShader(program, shader uint32)
	LinkProgram(program uint32)
	ProgramLinked(program uint32) bool
	ProgramInfoLog(program uint32) string
	UseProgram(program uint32)
	DeleteProgram(program uint32)

	UniformLocation(program uint32, name string) int32
	AttribLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, x, y float32)
	Uniform4f(location int32, x, y, z, w float32)
	// Uniform2fv writes len(values)/2 consecutive vec2 elements.
	Uniform2fv(location int32, values []float32)

	CreateVertexArray() uint32
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)
	// CreateBuffer allocates a static array buffer holding data.
	CreateBuffer(data []float32) uint32
	DeleteBuffer(buffer uint32)
	// VertexAttrib binds buffer to the attribute at location as tightly packed
	// vectors of size floats and enables the attribute array.
	VertexAttrib(location int32, buffer uint32, size int32)

	// CreateTexture allocates a 2D texture with clamp-to-edge wrapping and
	// linear filtering.
	CreateTexture() uint32
	// UploadTexture replaces the texture image with tightly packed RGBA8 rows.
	UploadTexture(texture uint32, width, height int, pixels []byte)
	BindTexture(unit int, texture uint32)
	DeleteTexture(texture uint32)

	Viewport(x, y, width, height int)
	Clear(r, g, b, a float32)
	DrawArrays(mode Primitive, first, count int32)
	// ReadPixels reads the default framebuffer as bottom-up RGBA8 rows.
	ReadPixels(width, height int) []byte
}

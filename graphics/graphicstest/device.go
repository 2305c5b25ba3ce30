// Package graphicstest provides an in-memory graphics.Device for tests.
//
// The fake models the parts of GL the render core depends on: shader and
// program objects with compile and link status, per-program uniform storage
// written through the currently used program, a single texture namespace and
// a log of draw calls. Uniform locations are assigned at link time from the
// `uniform` declarations found in the attached sources, so a fragment shader
// that does not declare a uniform gets location -1 for it, as on a driver.
package graphicstest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/richinsley/goshaderboy/graphics"
)

var (
	uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*;`)
	attribDecl  = regexp.MustCompile(`(?m)^\s*(?:layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*)?(?:in|attribute)\s+\w+\s+(\w+)\s*;`)
)

// Shader is a fake shader object.
type Shader struct {
	Stage    graphics.Stage
	Source   string
	Compiled bool
	Log      string
	Deleted  bool
}

// Program is a fake program object.
type Program struct {
	Attached []uint32
	Linked   bool
	Log      string
	Deleted  bool

	uniforms map[string]int32
	arrays   map[string]int
	attribs  map[string]int32
	values   map[int32][]float32
}

// Texture is a fake 2D texture.
type Texture struct {
	Width, Height int
	Pixels        []byte
	Uploads       int
	Deleted       bool
}

// Draw records one DrawArrays call.
type Draw struct {
	Program  uint32
	Mode     graphics.Primitive
	First    int32
	Count    int32
	Texture  uint32
	Uniforms map[string][]float32
}

// Device is a recording graphics.Device.
type Device struct {
	// CompileFunc decides the outcome of CompileShader. The default fails a
	// shader containing "#error" with an ANGLE style log for that line.
	CompileFunc func(stage graphics.Stage, source string) (log string, ok bool)
	// LinkFunc decides the outcome of LinkProgram. The default always links.
	LinkFunc func(vertex, fragment string) (log string, ok bool)
	// Framebuffer is returned by ReadPixels when its size matches.
	Framebuffer []byte
	// IndexedArrays makes array uniforms resolve only as "name[0]", as some
	// drivers do.
	IndexedArrays bool

	next     uint32
	shaders  map[uint32]*Shader
	programs map[uint32]*Program
	textures map[uint32]*Texture
	buffers  map[uint32][]float32
	vaos     map[uint32]map[int32]uint32

	current  uint32
	vao      uint32
	units    map[int]uint32
	viewport [4]int
	draws    []Draw
	errors   []string
}

// New returns an empty fake device.
func New() *Device {
	return &Device{
		shaders:  make(map[uint32]*Shader),
		programs: make(map[uint32]*Program),
		textures: make(map[uint32]*Texture),
		buffers:  make(map[uint32][]float32),
		vaos:     make(map[uint32]map[int32]uint32),
		units:    make(map[int]uint32),
	}
}

// DefaultCompile fails sources containing "#error".
func DefaultCompile(stage graphics.Stage, source string) (string, bool) {
	for i, line := range strings.Split(source, "\n") {
		if strings.Contains(line, "#error") {
			return fmt.Sprintf("ERROR: 0:%d: '#error' : %s\n", i+1, strings.TrimSpace(line)), false
		}
	}
	return "", true
}

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

func (d *Device) errorf(format string, args ...interface{}) {
	d.errors = append(d.errors, fmt.Sprintf(format, args...))
}

func (d *Device) CreateShader(stage graphics.Stage) uint32 {
	id := d.id()
	d.shaders[id] = &Shader{Stage: stage}
	return id
}

func (d *Device) ShaderSource(shader uint32, source string) {
	if s, ok := d.shaders[shader]; ok && !s.Deleted {
		s.Source = source
		return
	}
	d.errorf("ShaderSource on invalid shader %d", shader)
}

func (d *Device) CompileShader(shader uint32) {
	s, ok := d.shaders[shader]
	if !ok || s.Deleted {
		d.errorf("CompileShader on invalid shader %d", shader)
		return
	}
	compile := d.CompileFunc
	if compile == nil {
		compile = DefaultCompile
	}
	s.Log, s.Compiled = compile(s.Stage, s.Source)
}

func (d *Device) ShaderCompiled(shader uint32) bool {
	s, ok := d.shaders[shader]
	return ok && s.Compiled
}

func (d *Device) ShaderInfoLog(shader uint32) string {
	if s, ok := d.shaders[shader]; ok {
		return s.Log
	}
	return ""
}

func (d *Device) DeleteShader(shader uint32) {
	if s, ok := d.shaders[shader]; ok {
		s.Deleted = true
	}
}

func (d *Device) CreateProgram() uint32 {
	id := d.id()
	d.programs[id] = &Program{values: make(map[int32][]float32)}
	return id
}

func (d *Device) AttachShader(program, shader uint32) {
	p, ok := d.programs[program]
	if !ok || p.Deleted {
		d.errorf("AttachShader on invalid program %d", program)
		return
	}
	p.Attached = append(p.Attached, shader)
}

func (d *Device) DetachShader(program, shader uint32) {
	p, ok := d.programs[program]
	if !ok {
		return
	}
	for i, s := range p.Attached {
		if s == shader {
			p.Attached = append(p.Attached[:i], p.Attached[i+1:]...)
			return
		}
	}
}

func (d *Device) LinkProgram(program uint32) {
	p, ok := d.programs[program]
	if !ok || p.Deleted {
		d.errorf("LinkProgram on invalid program %d", program)
		return
	}
	var vertex, fragment string
	for _, id := range p.Attached {
		s := d.shaders[id]
		if !s.Compiled {
			p.Linked, p.Log = false, "ERROR: attached shader is not compiled"
			return
		}
		if s.Stage == graphics.VertexStage {
			vertex = s.Source
		} else {
			fragment = s.Source
		}
	}
	link := d.LinkFunc
	if link == nil {
		link = func(string, string) (string, bool) { return "", true }
	}
	p.Log, p.Linked = link(vertex, fragment)
	if !p.Linked {
		return
	}

	p.uniforms = make(map[string]int32)
	p.arrays = make(map[string]int)
	var loc int32
	for _, src := range []string{vertex, fragment} {
		for _, m := range uniformDecl.FindAllStringSubmatch(src, -1) {
			if _, seen := p.uniforms[m[1]]; seen {
				continue
			}
			size := 1
			if m[2] != "" {
				size, _ = strconv.Atoi(m[2])
				p.arrays[m[1]] = size
			}
			p.uniforms[m[1]] = loc
			loc += int32(size)
		}
	}
	p.attribs = make(map[string]int32)
	var next int32
	for _, m := range attribDecl.FindAllStringSubmatch(vertex, -1) {
		if m[1] != "" {
			n, _ := strconv.Atoi(m[1])
			p.attribs[m[2]] = int32(n)
			continue
		}
		for taken := true; taken; {
			taken = false
			for _, l := range p.attribs {
				if l == next {
					taken = true
					next++
					break
				}
			}
		}
		p.attribs[m[2]] = next
		next++
	}
}

func (d *Device) ProgramLinked(program uint32) bool {
	p, ok := d.programs[program]
	return ok && p.Linked
}

func (d *Device) ProgramInfoLog(program uint32) string {
	if p, ok := d.programs[program]; ok {
		return p.Log
	}
	return ""
}

func (d *Device) UseProgram(program uint32) {
	if program != 0 {
		p, ok := d.programs[program]
		if !ok || p.Deleted || !p.Linked {
			d.errorf("UseProgram on unusable program %d", program)
			return
		}
	}
	d.current = program
}

func (d *Device) DeleteProgram(program uint32) {
	if p, ok := d.programs[program]; ok {
		p.Deleted = true
	}
	if d.current == program {
		d.current = 0
	}
}

func (d *Device) UniformLocation(program uint32, name string) int32 {
	p, ok := d.programs[program]
	if !ok || !p.Linked {
		d.errorf("UniformLocation on unlinked program %d", program)
		return -1
	}
	base := strings.TrimSuffix(name, "[0]")
	if _, array := p.arrays[base]; array && d.IndexedArrays && base == name {
		return -1
	}
	if loc, ok := p.uniforms[base]; ok {
		return loc
	}
	return -1
}

func (d *Device) AttribLocation(program uint32, name string) int32 {
	p, ok := d.programs[program]
	if !ok || !p.Linked {
		return -1
	}
	if loc, ok := p.attribs[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) setUniform(location int32, values ...float32) {
	if location == -1 {
		return
	}
	p, ok := d.programs[d.current]
	if !ok {
		d.errorf("uniform write with no program in use")
		return
	}
	p.values[location] = append([]float32(nil), values...)
}

func (d *Device) Uniform1i(location int32, v int32)      { d.setUniform(location, float32(v)) }
func (d *Device) Uniform1f(location int32, v float32)    { d.setUniform(location, v) }
func (d *Device) Uniform2f(location int32, x, y float32) { d.setUniform(location, x, y) }
func (d *Device) Uniform4f(location int32, x, y, z, w float32) {
	d.setUniform(location, x, y, z, w)
}
func (d *Device) Uniform2fv(location int32, values []float32) { d.setUniform(location, values...) }

func (d *Device) CreateVertexArray() uint32 {
	id := d.id()
	d.vaos[id] = make(map[int32]uint32)
	return id
}

func (d *Device) BindVertexArray(vao uint32) { d.vao = vao }

func (d *Device) DeleteVertexArray(vao uint32) { delete(d.vaos, vao) }

func (d *Device) CreateBuffer(data []float32) uint32 {
	id := d.id()
	d.buffers[id] = append([]float32(nil), data...)
	return id
}

func (d *Device) DeleteBuffer(buffer uint32) { delete(d.buffers, buffer) }

func (d *Device) VertexAttrib(location int32, buffer uint32, size int32) {
	if location < 0 {
		return
	}
	attribs, ok := d.vaos[d.vao]
	if !ok {
		d.errorf("VertexAttrib with no vertex array bound")
		return
	}
	attribs[location] = buffer
}

func (d *Device) CreateTexture() uint32 {
	id := d.id()
	d.textures[id] = &Texture{}
	return id
}

func (d *Device) UploadTexture(texture uint32, width, height int, pixels []byte) {
	t, ok := d.textures[texture]
	if !ok || t.Deleted {
		d.errorf("UploadTexture on invalid texture %d", texture)
		return
	}
	t.Width, t.Height = width, height
	t.Pixels = append(t.Pixels[:0], pixels[:width*height*4]...)
	t.Uploads++
}

func (d *Device) BindTexture(unit int, texture uint32) { d.units[unit] = texture }

func (d *Device) DeleteTexture(texture uint32) {
	if t, ok := d.textures[texture]; ok {
		t.Deleted = true
	}
}

func (d *Device) Viewport(x, y, width, height int) { d.viewport = [4]int{x, y, width, height} }

func (d *Device) Clear(r, g, b, a float32) {}

func (d *Device) DrawArrays(mode graphics.Primitive, first, count int32) {
	p, ok := d.programs[d.current]
	if !ok {
		d.errorf("DrawArrays with no program in use")
		return
	}
	snapshot := make(map[string][]float32, len(p.uniforms))
	for name, loc := range p.uniforms {
		if v, ok := p.values[loc]; ok {
			snapshot[name] = v
		}
	}
	d.draws = append(d.draws, Draw{
		Program:  d.current,
		Mode:     mode,
		First:    first,
		Count:    count,
		Texture:  d.units[0],
		Uniforms: snapshot,
	})
}

func (d *Device) ReadPixels(width, height int) []byte {
	if len(d.Framebuffer) == width*height*4 {
		return append([]byte(nil), d.Framebuffer...)
	}
	return make([]byte, width*height*4)
}

// --- inspection helpers ---

// Current returns the program in use.
func (d *Device) Current() uint32 { return d.current }

// Program returns the fake program object for id.
func (d *Device) Program(id uint32) *Program { return d.programs[id] }

// Shader returns the fake shader object for id.
func (d *Device) Shader(id uint32) *Shader { return d.shaders[id] }

// Texture returns the fake texture for id.
func (d *Device) Texture(id uint32) *Texture { return d.textures[id] }

// Uniform returns the value last written to name on program.
func (d *Device) Uniform(program uint32, name string) ([]float32, bool) {
	p, ok := d.programs[program]
	if !ok || p.uniforms == nil {
		return nil, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := p.values[loc]
	return v, ok
}

// Attribs returns the attribute bindings of the bound vertex array.
func (d *Device) Attribs() map[int32]uint32 { return d.vaos[d.vao] }

// LastViewport returns the last viewport.
func (d *Device) LastViewport() [4]int { return d.viewport }

// Draws returns the draw log.
func (d *Device) Draws() []Draw { return d.draws }

// Errors returns GL usage errors the fake detected.
func (d *Device) Errors() []string { return d.errors }

// LiveShaders returns the ids of shaders not yet deleted, sorted.
func (d *Device) LiveShaders() []uint32 {
	var ids []uint32
	for id, s := range d.shaders {
		if !s.Deleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LivePrograms returns the ids of programs not yet deleted, sorted.
func (d *Device) LivePrograms() []uint32 {
	var ids []uint32
	for id, p := range d.programs {
		if !p.Deleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var _ graphics.Device = (*Device)(nil)

// Surface is a fixed-size graphics.Surface.
type Surface struct {
	Width, Height int
}

func (s *Surface) GetFramebufferSize() (int, int) { return s.Width, s.Height }

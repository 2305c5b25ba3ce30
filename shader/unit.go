package shader

import (
	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

// Source is shader text tagged with its stage. It is never modified after it
// is handed to a Compiler.
type Source struct {
	Stage graphics.Stage
	Text  string
}

// Vertex returns a vertex stage source.
func Vertex(text string) Source { return Source{Stage: graphics.VertexStage, Text: text} }

// Fragment returns a fragment stage source.
func Fragment(text string) Source { return Source{Stage: graphics.FragmentStage, Text: text} }

// Translation is the device-dialect code produced from a Source together with
// the names the translator gave to each declared variable.
type Translation struct {
	Code  string
	Names map[string]string
}

// Translator rewrites WebGL2 GLSL into the dialect the device accepts.
type Translator interface {
	Translate(src Source) (*Translation, error)
}

// Unit is one compiled shader stage. It owns a native shader object that must
// be released explicitly.
type Unit struct {
	dev    graphics.Device
	handle uint32
	source Source
	names  map[string]string
}

// Handle returns the native shader object.
func (u *Unit) Handle() uint32 { return u.handle }

// Stage returns the pipeline stage.
func (u *Unit) Stage() graphics.Stage { return u.source.Stage }

// Source returns the exact source the unit was compiled from.
func (u *Unit) Source() Source { return u.source }

// MappedName returns the name the device knows a declared variable by.
func (u *Unit) MappedName(name string) (string, bool) {
	mapped, ok := u.names[name]
	return mapped, ok
}

// Release deletes the native shader object. It is safe to call more than once.
func (u *Unit) Release() {
	if u == nil || u.handle == 0 {
		return
	}
	u.dev.DeleteShader(u.handle)
	u.handle = 0
}

// Compiler compiles shader stages on a device.
type Compiler struct {
	dev        graphics.Device
	translator Translator
}

// NewCompiler returns a Compiler. A nil translator hands sources to the
// device unchanged.
func NewCompiler(dev graphics.Device, translator Translator) *Compiler {
	return &Compiler{dev: dev, translator: translator}
}

// Device returns the device units are compiled on.
func (c *Compiler) Device() graphics.Device { return c.dev }

// Compile compiles exactly one stage. A malformed source yields a
// *CompileError and allocates nothing.
func (c *Compiler) Compile(src Source) (*Unit, error) {
	code := src.Text
	var names map[string]string
	if c.translator != nil {
		t, err := c.translator.Translate(src)
		if err != nil {
			var ce *CompileError
			if errors.As(err, &ce) {
				return nil, ce
			}
			return nil, newCompileError(src.Stage, err.Error())
		}
		code, names = t.Code, t.Names
	}

	handle := c.dev.CreateShader(src.Stage)
	c.dev.ShaderSource(handle, code)
	c.dev.CompileShader(handle)
	if !c.dev.ShaderCompiled(handle) {
		log := c.dev.ShaderInfoLog(handle)
		c.dev.DeleteShader(handle)
		return nil, newCompileError(src.Stage, log)
	}

	graphics.Logger().Debug("compiled shader", "stage", src.Stage.String(), "handle", handle)
	return &Unit{
		dev:    c.dev,
		handle: handle,
		source: src,
		names:  names,
	}, nil
}

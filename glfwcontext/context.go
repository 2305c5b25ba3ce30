// Package glfwcontext implements graphics.Context on a GLFW window.
package glfwcontext

import (
	"log"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/options"
)

type binding struct {
	key  glfw.Key
	mods glfw.ModifierKey
}

// modifier keys that take part in a binding; lock keys are ignored
const bindingMods = glfw.ModShift | glfw.ModControl | glfw.ModAlt | glfw.ModSuper

// Context is a GLFW window with an OpenGL 4.1 core context.
type Context struct {
	window *glfw.Window
	// functions to be called on key presses
	keyCallbacks map[binding]func()
}

// New creates the window at the configured canvas size.
func New(opts *options.ShaderOptions, visible bool) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	if !visible {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	win, err := glfw.CreateWindow(*opts.Width, *opts.Height, "goshaderboy", nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create window")
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[binding]func()),
	}
	win.SetKeyCallback(c.glfwKeyCallback)
	return c, nil
}

// RegisterKeyCallback calls f when key is pressed with exactly mods held.
func (c *Context) RegisterKeyCallback(key glfw.Key, mods glfw.ModifierKey, f func()) {
	c.keyCallbacks[binding{key, mods & bindingMods}] = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}
	if key == glfw.KeyEscape {
		w.SetShouldClose(true)
		return
	}
	if callback, ok := c.keyCallbacks[binding{key, mods & bindingMods}]; ok {
		callback()
	}
}

// SetSize resizes the window so the canvas follows the image source.
func (c *Context) SetSize(width, height int) {
	c.window.SetSize(width, height)
	graphics.Logger().Debug("window resized", "width", width, "height", height)
}

// OnFramebufferResize calls f with the new framebuffer size whenever the
// window's framebuffer changes. f runs inside event polling.
func (c *Context) OnFramebufferResize(f func(width, height int)) {
	c.window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		f(width, height)
	})
}

func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown only destroys the window; Terminate ends GLFW.
func (c *Context) Shutdown() {
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) Time() float64 {
	return glfw.GetTime()
}

// IsGLES is false; GLFW is asked for a desktop core profile.
func (c *Context) IsGLES() bool {
	return false
}

var _ graphics.Context = (*Context)(nil)

// Init initializes GLFW. Must be called from the main thread.
func Init() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize GLFW")
	}
	log.Printf("GLFW Initialized")
	return nil
}

// Terminate shuts GLFW down. Must be called from the main thread.
func Terminate() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}

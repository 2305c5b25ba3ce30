package graphics

// Context defines the interface for an OpenGL context.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	EndFrame()
	GetFramebufferSize() (int, int)
	Time() float64
}

// Surface is the drawing area a program renders into. Its framebuffer size is
// the canvas size used for the resolution uniform and the viewport.
type Surface interface {
	GetFramebufferSize() (int, int)
}

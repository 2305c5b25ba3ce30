// Package inputs provides the image sources drawn behind the shader: a live
// camera captured through ffmpeg and a still image fallback.
package inputs

import "image"

// Kind tells camera and still image sources apart.
type Kind int

const (
	KindImage Kind = iota
	KindCamera
)

func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Source supplies the pixels of the current frame.
type Source interface {
	// Frame returns the latest frame, or nil while none is available.
	// The returned image must not be modified.
	Frame() image.Image
	// Size returns the frame size the canvas should follow.
	Size() (int, int)
	Kind() Kind
	Close() error
}

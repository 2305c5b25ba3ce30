package renderer

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/richinsley/goshaderboy/graphics"
)

// sourceTexture is the single texture the image source is uploaded into.
// It is created once and re-populated every frame.
type sourceTexture struct {
	dev     graphics.Device
	handle  uint32
	scratch *image.RGBA
}

func newSourceTexture(dev graphics.Device) *sourceTexture {
	t := &sourceTexture{dev: dev, handle: dev.CreateTexture()}
	// one transparent texel until the first frame arrives
	dev.UploadTexture(t.handle, 1, 1, []byte{0, 0, 0, 0})
	return t
}

// upload replaces the texture contents with img. A nil frame keeps the
// previous contents.
func (t *sourceTexture) upload(img image.Image) {
	if img == nil {
		return
	}
	rgba := t.rgba(img)
	size := rgba.Rect.Size()
	if size.X == 0 || size.Y == 0 {
		return
	}
	t.dev.UploadTexture(t.handle, size.X, size.Y, rgba.Pix)
}

// rgba returns img as tightly packed RGBA rows, converting into a reused
// buffer when img is not already in that layout.
func (t *sourceTexture) rgba(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok && r.Rect.Min == (image.Point{}) && r.Stride == 4*r.Rect.Dx() {
		return r
	}
	b := img.Bounds()
	if t.scratch == nil || t.scratch.Rect.Size() != b.Size() {
		t.scratch = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(t.scratch, t.scratch.Bounds(), img, b.Min, draw.Src)
	return t.scratch
}

func (t *sourceTexture) destroy() {
	t.dev.DeleteTexture(t.handle)
}

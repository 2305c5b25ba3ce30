package inputs

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/richinsley/goshaderboy/graphics"
)

// MaxImageWidth is the widest still image shown; wider images are scaled
// down keeping their aspect ratio.
const MaxImageWidth = 720

// StillImage is a decoded image held in memory.
type StillImage struct {
	img *image.RGBA
}

// LoadImage decodes path (png, jpeg, bmp, tiff or webp).
func LoadImage(path string) (*StillImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}
	graphics.Logger().Info("loaded image", "path", path, "format", format, "bounds", img.Bounds().String())
	return NewStillImage(img), nil
}

// NewStillImage converts img to RGBA, scaling it to at most MaxImageWidth.
func NewStillImage(img image.Image) *StillImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxImageWidth {
		h = h * MaxImageWidth / w
		w = MaxImageWidth
		if h < 1 {
			h = 1
		}
	}
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, b, draw.Src, nil)
	}
	return &StillImage{img: rgba}
}

// Placeholder is a generated test card, shown when neither a camera nor an
// image file is available.
func Placeholder(width, height int) *StillImage {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{
				R: uint8(255 * x / max(width-1, 1)),
				G: uint8(255 * y / max(height-1, 1)),
				B: 128,
				A: 255,
			}
			if (x/32+y/32)%2 == 0 {
				c.B = 192
			}
			img.SetRGBA(x, y, c)
		}
	}
	return &StillImage{img: img}
}

func (s *StillImage) Frame() image.Image { return s.img }

func (s *StillImage) Size() (int, int) {
	return s.img.Rect.Dx(), s.img.Rect.Dy()
}

func (s *StillImage) Kind() Kind { return KindImage }

func (s *StillImage) Close() error { return nil }

package encoder

import (
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"
)

// WritePNG writes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create snapshot")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	return errors.Wrap(f.Close(), "failed to close snapshot")
}

// Snapshot keeps the last frame it is given and writes it on Close.
type Snapshot struct {
	Path string
	last *image.RGBA
}

func (s *Snapshot) WriteFrame(img *image.RGBA) error {
	s.last = img
	return nil
}

// Close writes the last frame. It fails when no frame was rendered.
func (s *Snapshot) Close() error {
	if s.last == nil {
		return errors.New("no frame to snapshot")
	}
	return WritePNG(s.Path, s.last)
}

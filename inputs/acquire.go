package inputs

import (
	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

// AcquireOptions configures Acquire and Toggle.
type AcquireOptions struct {
	Camera CameraOptions
	// NoCamera skips the camera entirely.
	NoCamera bool
	// ImagePath is the fallback image; empty means Placeholder.
	ImagePath string
}

// openCamera is replaced in tests.
var openCamera = func(opts CameraOptions) (Source, error) {
	cam, err := OpenCamera(opts)
	if err != nil {
		return nil, err
	}
	return cam, nil
}

// Acquire opens the camera and falls back to the still image when it cannot
// be opened.
func Acquire(opts AcquireOptions) (Source, error) {
	if !opts.NoCamera {
		cam, err := openCamera(opts.Camera)
		if err == nil {
			return cam, nil
		}
		graphics.Logger().Warn("camera unavailable, falling back to still image", "error", err)
	}
	return openImage(opts)
}

func openImage(opts AcquireOptions) (Source, error) {
	if opts.ImagePath == "" {
		return Placeholder(opts.Camera.Width, opts.Camera.Height), nil
	}
	img, err := LoadImage(opts.ImagePath)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Toggle swaps a camera for the still image and back. When the other
// source cannot be opened current stays open and is returned with the
// error.
func Toggle(current Source, opts AcquireOptions) (Source, error) {
	var (
		next Source
		err  error
	)
	if current.Kind() == KindCamera {
		next, err = openImage(opts)
	} else {
		next, err = openCamera(opts.Camera)
	}
	if err != nil {
		return current, errors.Wrapf(err, "cannot switch from %s", current.Kind())
	}
	if cerr := current.Close(); cerr != nil {
		graphics.Logger().Warn("closing previous source", "error", cerr)
	}
	graphics.Logger().Info("switched source", "from", current.Kind().String(), "to", next.Kind().String())
	return next, nil
}

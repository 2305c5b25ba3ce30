//go:build !linux

package headless

import (
	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/graphics"
)

// Headless is unavailable off Linux.
type Headless struct {
	graphics.Context
}

// New always fails on this platform.
func New(width, height int) (*Headless, error) {
	return nil, errors.New("egl headless rendering is not supported on this platform")
}

// IsGLES reports true, matching the Linux implementation.
func (h *Headless) IsGLES() bool { return true }

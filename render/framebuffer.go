package render

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/tunabrain/sparse-voxel-octrees/svoerr"
)

// Framebuffer is the render target one Renderer writes into, wrapping an
// image.RGBA the way original_source/src/Main.cpp wrote directly into an
// SDL_Surface's pixel buffer.
type Framebuffer struct {
	img *image.RGBA
}

// NewFramebuffer allocates a Framebuffer of the given pixel dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Bounds reports the framebuffer's pixel rectangle.
func (f *Framebuffer) Bounds() image.Rectangle { return f.img.Bounds() }

// Set writes one pixel as given; it does no clamping of its own (shaded
// components are clamped to [0,1] before they are scaled to bytes).
func (f *Framebuffer) Set(x, y int, c color.RGBA) {
	f.img.SetRGBA(x, y, c)
}

// Image exposes the backing image.RGBA for encoders that want it directly.
func (f *Framebuffer) Image() *image.RGBA { return f.img }

// Sink is anything a finished Framebuffer can be presented to. A live
// SDL/GLFW window sink is out of scope for this headless target (see
// SPEC_FULL.md's windowing Non-goal); PNGSink is the only implementation.
type Sink interface {
	Present(fb *Framebuffer) error
}

// PNGSink writes a Framebuffer to a PNG file via disintegration/imaging,
// the file-based presentation surface used by the "view" CLI subcommand.
type PNGSink struct {
	Path string
}

// Present encodes fb to s.Path as a PNG.
func (s PNGSink) Present(fb *Framebuffer) error {
	if err := imaging.Save(fb.Image(), s.Path); err != nil {
		return svoerr.NewIoError(s.Path, err)
	}
	return nil
}

// MemorySink retains the last presented Framebuffer in memory, used by
// tests that want to inspect rendered pixels without touching disk.
type MemorySink struct {
	Last *Framebuffer
}

// Present stores fb as the sink's Last frame.
func (s *MemorySink) Present(fb *Framebuffer) error {
	s.Last = fb
	return nil
}

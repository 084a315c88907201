// Package colorize turns 16-bit depth frames into displayable false-color
// images: a linear rescale clipped to the byte range, then a palette lookup.
package colorize

import (
	"fmt"
	"image"
	"math"

	"github.com/teslashibe/rsviewer/pkg/frame"
)

// DefaultAlpha maps ~8.5m (8500mm * 0.03 = 255) to the top of the palette.
const DefaultAlpha = 0.03

// Options controls the depth-to-color transform.
type Options struct {
	// Alpha scales raw depth samples before clipping.
	Alpha float64 `json:"alpha"`

	// Beta is added after scaling.
	Beta float64 `json:"beta"`

	// Palette names the color mapping ("jet", "hsv", "gray").
	Palette string `json:"palette"`
}

// DefaultOptions returns alpha 0.03 with the jet palette.
func DefaultOptions() Options {
	return Options{
		Alpha:   DefaultAlpha,
		Beta:    0,
		Palette: PaletteJet,
	}
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	if o.Alpha <= 0 || math.IsInf(o.Alpha, 0) || math.IsNaN(o.Alpha) {
		return fmt.Errorf("alpha must be positive, got %v", o.Alpha)
	}
	if math.IsInf(o.Beta, 0) || math.IsNaN(o.Beta) {
		return fmt.Errorf("beta must be finite, got %v", o.Beta)
	}
	if _, ok := palettes[o.Palette]; !ok {
		return fmt.Errorf("unknown palette %q (want one of %v)", o.Palette, PaletteNames())
	}
	return nil
}

// ScaleAbs computes |v*alpha + beta| rounded half to even and saturated to
// [0, 255].
func ScaleAbs(v uint16, alpha, beta float64) uint8 {
	s := math.Abs(float64(v)*alpha + beta)
	s = math.RoundToEven(s)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// Colorizer applies one fixed transform to every frame.
type Colorizer struct {
	opts Options
	lut  *Palette
}

// New creates a Colorizer.
func New(opts Options) (*Colorizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("colorize: %w", err)
	}
	return &Colorizer{opts: opts, lut: palettes[opts.Palette]}, nil
}

// Options returns the transform parameters.
func (c *Colorizer) Options() Options {
	return c.opts
}

// Colorize renders d through the palette. The result depends only on the
// samples and the options.
func (c *Colorizer) Colorize(d *frame.Depth) *image.NRGBA {
	img := image.NewNRGBA(d.Bounds())

	for i, v := range d.Data {
		rgb := c.lut[ScaleAbs(v, c.opts.Alpha, c.opts.Beta)]
		p := img.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = rgb[0], rgb[1], rgb[2], 0xff
	}

	return img
}

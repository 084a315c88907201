// Package frame holds the per-iteration depth and color frame values
// produced by a capture pipeline.
package frame

import (
	"fmt"
	"image"
	"time"
)

// ColorFormat is the byte order of a packed 3-channel color frame.
type ColorFormat string

const (
	// BGR8 is OpenCV's native order and the RealSense default for color.
	BGR8 ColorFormat = "bgr8"
	// RGB8 is packed red, green, blue.
	RGB8 ColorFormat = "rgb8"
)

// Depth is a 2-D grid of 16-bit depth samples in millimeters.
// Data is row-major with len(Data) == Width*Height.
type Depth struct {
	Width     int
	Height    int
	Data      []uint16
	Number    uint64    // Frame counter reported by the device
	Timestamp time.Time // Capture time
}

// NewDepth allocates a zeroed depth frame.
func NewDepth(width, height int) *Depth {
	return &Depth{
		Width:  width,
		Height: height,
		Data:   make([]uint16, width*height),
	}
}

// Set stores a sample at (x, y).
func (d *Depth) Set(x, y int, v uint16) {
	d.Data[y*d.Width+x] = v
}

// Bounds returns the frame rectangle anchored at the origin.
func (d *Depth) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.Width, d.Height)
}

// Validate checks that Data matches the declared dimensions.
func (d *Depth) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("depth frame: invalid size %dx%d", d.Width, d.Height)
	}
	if len(d.Data) != d.Width*d.Height {
		return fmt.Errorf("depth frame: %d samples for %dx%d", len(d.Data), d.Width, d.Height)
	}
	return nil
}

// Gray16 returns the samples as an image.Gray16 (big-endian per pixel).
func (d *Depth) Gray16() *image.Gray16 {
	img := image.NewGray16(d.Bounds())
	for i, v := range d.Data {
		img.Pix[i*2] = byte(v >> 8)
		img.Pix[i*2+1] = byte(v)
	}
	return img
}

// Color is a 2-D grid of packed 3-byte pixels.
// Pix is row-major with len(Pix) == Width*Height*3.
type Color struct {
	Width     int
	Height    int
	Format    ColorFormat
	Pix       []byte
	Number    uint64
	Timestamp time.Time
}

// NewColor allocates a black color frame.
func NewColor(width, height int, format ColorFormat) *Color {
	return &Color{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]byte, width*height*3),
	}
}

// SetRGB stores a pixel at (x, y) given in red, green, blue order,
// independent of the frame's byte order.
func (c *Color) SetRGB(x, y int, r, g, b uint8) {
	i := (y*c.Width + x) * 3
	if c.Format == RGB8 {
		c.Pix[i], c.Pix[i+1], c.Pix[i+2] = r, g, b
		return
	}
	c.Pix[i], c.Pix[i+1], c.Pix[i+2] = b, g, r
}

// RGB returns the pixel at (x, y) in red, green, blue order.
func (c *Color) RGB(x, y int) (r, g, b uint8) {
	i := (y*c.Width + x) * 3
	if c.Format == RGB8 {
		return c.Pix[i], c.Pix[i+1], c.Pix[i+2]
	}
	return c.Pix[i+2], c.Pix[i+1], c.Pix[i]
}

// Validate checks that Pix matches the declared dimensions.
func (c *Color) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("color frame: invalid size %dx%d", c.Width, c.Height)
	}
	if len(c.Pix) != c.Width*c.Height*3 {
		return fmt.Errorf("color frame: %d bytes for %dx%d", len(c.Pix), c.Width, c.Height)
	}
	if c.Format != BGR8 && c.Format != RGB8 {
		return fmt.Errorf("color frame: unsupported format %q", c.Format)
	}
	return nil
}

// Image converts the frame to an opaque NRGBA image.
func (c *Color) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for p := 0; p < c.Width*c.Height; p++ {
		src := c.Pix[p*3 : p*3+3]
		dst := img.Pix[p*4 : p*4+4]
		if c.Format == RGB8 {
			dst[0], dst[1], dst[2] = src[0], src[1], src[2]
		} else {
			dst[0], dst[1], dst[2] = src[2], src[1], src[0]
		}
		dst[3] = 0xff
	}
	return img
}

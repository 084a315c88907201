// Package camera describes which RealSense substreams to open.
// A StreamConfig is built once before streaming and never mutated.
package camera

import (
	"fmt"
)

// Stream identifies a sensor substream.
type Stream string

const (
	StreamDepth Stream = "depth"
	StreamColor Stream = "color"
)

// Format is the pixel format requested for a substream.
type Format string

const (
	FormatZ16  Format = "z16"  // 16-bit depth, millimeters
	FormatBGR8 Format = "bgr8" // 3x8-bit, blue first
	FormatRGB8 Format = "rgb8" // 3x8-bit, red first
)

// Limits of the D400 family.
const (
	MaxWidth  = 1920
	MaxHeight = 1080
	MaxFPS    = 90
)

// Profile is one substream request.
type Profile struct {
	Stream Stream `json:"stream"`
	Width  int    `json:"width"`  // Frame width in pixels
	Height int    `json:"height"` // Frame height in pixels
	Format Format `json:"format"`
	FPS    int    `json:"fps"` // Target framerate
}

func (p Profile) String() string {
	return fmt.Sprintf("%s %dx%d %s@%d", p.Stream, p.Width, p.Height, p.Format, p.FPS)
}

// StreamConfig requests the depth and color substreams together.
type StreamConfig struct {
	Depth Profile `json:"depth"`
	Color Profile `json:"color"`
}

// DefaultStreamConfig returns 640x480 depth (Z16) and color (BGR8) at 30 fps.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Depth: Profile{
			Stream: StreamDepth,
			Width:  640,
			Height: 480,
			Format: FormatZ16,
			FPS:    30,
		},
		Color: Profile{
			Stream: StreamColor,
			Width:  640,
			Height: 480,
			Format: FormatBGR8,
			FPS:    30,
		},
	}
}

// Validate checks both profiles.
// Returns a list of validation errors, or nil if valid.
func (c *StreamConfig) Validate() []string {
	var errors []string

	errors = append(errors, c.Depth.validate(StreamDepth)...)
	errors = append(errors, c.Color.validate(StreamColor)...)

	if c.Depth.Format != "" && c.Depth.Format != FormatZ16 {
		errors = append(errors, "depth format must be z16")
	}
	if c.Color.Format != "" && c.Color.Format != FormatBGR8 && c.Color.Format != FormatRGB8 {
		errors = append(errors, "color format must be bgr8 or rgb8")
	}

	return errors
}

func (p *Profile) validate(want Stream) []string {
	var errors []string

	if p.Stream != want {
		errors = append(errors, fmt.Sprintf("%s profile has stream %q", want, p.Stream))
	}
	if p.Width < 1 || p.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("%s width must be between 1 and %d", want, MaxWidth))
	}
	if p.Height < 1 || p.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("%s height must be between 1 and %d", want, MaxHeight))
	}
	if p.FPS < 1 || p.FPS > MaxFPS {
		errors = append(errors, fmt.Sprintf("%s fps must be between 1 and %d", want, MaxFPS))
	}

	return errors
}

// Err folds Validate into a single error.
func (c *StreamConfig) Err() error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("stream config: %v", errs)
	}
	return nil
}

// Package realsense wraps the Intel RealSense SDK behind a small device
// registry and capture pipeline API.
//
// This package supports multiple backends:
//   - librealsense - librealsense2 through cgo (build tag "realsense")
//   - Mock - synthetic or scripted frames for tests and demos
//
// The backend is selected by NewContext.
package realsense

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/frame"
)

// DefaultFrameTimeout matches librealsense's own wait_for_frames default.
const DefaultFrameTimeout = 5 * time.Second

// Device describes one connected camera.
type Device struct {
	Name            string `json:"name"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	ProductLine     string `json:"product_line,omitempty"`
	USBType         string `json:"usb_type,omitempty"`
}

// Frameset is one synchronized capture. Either member may be nil when the
// device delivered only part of the pair.
type Frameset struct {
	Depth *frame.Depth
	Color *frame.Color
}

// Complete reports whether both frames are present.
func (f Frameset) Complete() bool {
	return f.Depth != nil && f.Color != nil
}

// Validate checks that both frames are present and their buffers match
// their declared dimensions.
func (f Frameset) Validate() error {
	if !f.Complete() {
		return ErrIncompleteFrameset
	}
	return errors.Join(f.Depth.Validate(), f.Color.Validate())
}

// Context is the process-wide device registry.
type Context interface {
	// QueryDevices lists connected cameras.
	QueryDevices(ctx context.Context) ([]Device, error)

	// Open starts streaming the requested profiles.
	// Failures are returned as *StreamStartError.
	Open(ctx context.Context, cfg camera.StreamConfig) (Pipeline, error)

	// Name returns the backend name (e.g., "librealsense", "mock").
	Name() string

	// Close releases the registry.
	io.Closer
}

// Pipeline is an open, streaming device configuration.
type Pipeline interface {
	// WaitForFrames blocks until the next frameset arrives.
	// Returns ErrFrameTimeout when nothing arrived within timeout, and
	// ctx.Err() when ctx is done first. A zero timeout means
	// DefaultFrameTimeout.
	WaitForFrames(ctx context.Context, timeout time.Duration) (Frameset, error)

	// Profile returns the configuration the pipeline was started with.
	Profile() camera.StreamConfig

	// Stop halts streaming.
	// It is safe to call Stop multiple times.
	Stop() error
}

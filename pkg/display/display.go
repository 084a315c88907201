// Package display shows display buffers and reports key presses.
//
// Backends:
//   - opencv (pkg/display/opencv) - HighGUI window through gocv
//   - headless - no window, keys read from a text stream
//   - Mock - scripted keys for tests
package display

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"time"
)

// DefaultTitle is the window title.
const DefaultTitle = "RealSense Viewer (Color | Depth)"

// Key is a polled key code, masked to the low byte.
type Key byte

const (
	// KeyNone means no key was pressed during the poll.
	KeyNone Key = 0
	// KeyQuit ends the viewer.
	KeyQuit Key = 'q'
	// KeySave writes a snapshot.
	KeySave Key = 's'
	// KeyOther is a press whose code has no low byte (e.g., 256).
	KeyOther Key = 0xFF
)

func (k Key) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyOther:
		return "other"
	}
	return string(rune(k))
}

// KeyFromCode maps a raw key code to a Key. Negative codes mean no press;
// any other code is masked to its low byte, and a press whose low byte is
// zero becomes KeyOther so it is never mistaken for KeyNone.
func KeyFromCode(code int) Key {
	if code < 0 {
		return KeyNone
	}
	if k := Key(code & 0xFF); k != KeyNone {
		return k
	}
	return KeyOther
}

// ParseKey maps a typed command to a Key. Only "q"/"quit" and "s"/"save"
// are recognized, case-insensitively.
func ParseKey(s string) (Key, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q", "quit":
		return KeyQuit, true
	case "s", "save":
		return KeySave, true
	}
	return KeyNone, false
}

// Display renders images and polls the keyboard.
type Display interface {
	// Show renders img, replacing whatever was shown before.
	Show(img image.Image) error

	// PollKey waits at most timeout for a key press.
	// Returns KeyNone when nothing was pressed.
	PollKey(timeout time.Duration) (Key, error)

	// Close destroys the window.
	// It is safe to call Close multiple times.
	io.Closer
}

// OpenFunc opens a display. The viewer calls it once the pipeline is
// streaming, so a missing camera never creates a window.
type OpenFunc func(ctx context.Context) (Display, error)

// Backend represents the display backend type.
type Backend string

const (
	BackendOpenCV   Backend = "opencv"
	BackendHeadless Backend = "headless"
)

// Config holds display configuration.
type Config struct {
	// Backend selects the window implementation.
	// Default: "opencv"
	Backend Backend `json:"backend"`

	// Title is the window name.
	Title string `json:"title"`

	// X11Display is the X server to draw on (e.g., ":1" for a Jetson's
	// attached monitor). Empty keeps the inherited DISPLAY.
	X11Display string `json:"x11_display,omitempty"`

	// XAuthority is the X authority file for X11Display.
	// Empty keeps the inherited XAUTHORITY.
	XAuthority string `json:"xauthority,omitempty"`
}

// DefaultConfig returns an OpenCV window with the default title.
func DefaultConfig() Config {
	return Config{
		Backend: BackendOpenCV,
		Title:   DefaultTitle,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenCV, BackendHeadless:
	default:
		return fmt.Errorf("unsupported display backend: %q", c.Backend)
	}
	if c.Title == "" {
		return fmt.Errorf("display title must not be empty")
	}
	return nil
}

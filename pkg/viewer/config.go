package viewer

import (
	"fmt"
	"time"

	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/realsense"
)

// DefaultKeyPollInterval is how long each iteration waits for a key press.
const DefaultKeyPollInterval = time.Millisecond

// Config holds the frame loop configuration.
type Config struct {
	// Stream is the fixed depth + color configuration passed to Open.
	Stream camera.StreamConfig `json:"stream"`

	// FrameTimeout bounds each frame wait. Expiry skips the iteration.
	// Default: 5s
	FrameTimeout time.Duration `json:"frame_timeout"`

	// KeyPollInterval is the per-iteration key wait and the loop's
	// only yield point.
	// Default: 1ms
	KeyPollInterval time.Duration `json:"key_poll_interval"`

	// WindowTitle is echoed in the start banner. Empty omits the line.
	WindowTitle string `json:"window_title,omitempty"`
}

// DefaultConfig returns the default loop configuration.
func DefaultConfig() Config {
	return Config{
		Stream:          camera.DefaultStreamConfig(),
		FrameTimeout:    realsense.DefaultFrameTimeout,
		KeyPollInterval: DefaultKeyPollInterval,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Stream.Err(); err != nil {
		return err
	}
	if c.FrameTimeout <= 0 {
		return fmt.Errorf("frame_timeout must be positive, got %v", c.FrameTimeout)
	}
	if c.KeyPollInterval <= 0 {
		return fmt.Errorf("key_poll_interval must be positive, got %v", c.KeyPollInterval)
	}
	return nil
}

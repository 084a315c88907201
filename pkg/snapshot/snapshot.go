// Package snapshot writes the current color and colorized depth frames to
// PNG files.
package snapshot

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Default output paths.
const (
	DefaultColorPath = "/tmp/realsense_color.png"
	DefaultDepthPath = "/tmp/realsense_depth.png"
)

// Config holds snapshot output paths. Files are overwritten on every save
// and parent directories are never created.
type Config struct {
	ColorPath string `json:"color_path"`
	DepthPath string `json:"depth_path"`
}

// DefaultConfig returns the fixed /tmp paths.
func DefaultConfig() Config {
	return Config{
		ColorPath: DefaultColorPath,
		DepthPath: DefaultDepthPath,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ColorPath == "" || c.DepthPath == "" {
		return errors.New("snapshot paths must not be empty")
	}
	if c.ColorPath == c.DepthPath {
		return fmt.Errorf("snapshot paths must differ: %s", c.ColorPath)
	}
	for _, p := range []string{c.ColorPath, c.DepthPath} {
		if !strings.EqualFold(filepath.Ext(p), ".png") {
			return fmt.Errorf("snapshot path %s: want .png extension", p)
		}
	}
	return nil
}

// Pattern is the glob naming both outputs, e.g. /tmp/realsense_*.png.
// Falls back to "<color>, <depth>" when the paths share no such shape.
func (c Config) Pattern() string {
	dir := filepath.Dir(c.ColorPath)
	if dir != filepath.Dir(c.DepthPath) {
		return c.ColorPath + ", " + c.DepthPath
	}
	a, b := filepath.Base(c.ColorPath), filepath.Base(c.DepthPath)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	if prefix == 0 && suffix == 0 {
		return c.ColorPath + ", " + c.DepthPath
	}
	return filepath.Join(dir, a[:prefix]+"*"+a[len(a)-suffix:])
}

// Paths reports where a snapshot was written.
type Paths struct {
	Color string
	Depth string
}

// Writer saves snapshots.
type Writer struct {
	cfg    Config
	logger *slog.Logger
}

// NewWriter creates a writer for cfg.
func NewWriter(cfg Config, logger *slog.Logger) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{cfg: cfg, logger: logger}, nil
}

// Config returns the writer's configuration.
func (w *Writer) Config() Config {
	return w.cfg
}

// Save writes color then depth. If the color write fails, depth is not
// attempted.
func (w *Writer) Save(color, depth image.Image) (Paths, error) {
	if color == nil || depth == nil {
		return Paths{}, errors.New("snapshot: missing image")
	}

	if err := imaging.Save(color, w.cfg.ColorPath); err != nil {
		return Paths{}, fmt.Errorf("save color snapshot: %w", err)
	}
	if err := imaging.Save(depth, w.cfg.DepthPath); err != nil {
		return Paths{Color: w.cfg.ColorPath}, fmt.Errorf("save depth snapshot: %w", err)
	}

	w.logger.Debug("snapshot saved",
		"color", w.cfg.ColorPath,
		"depth", w.cfg.DepthPath)

	return Paths{Color: w.cfg.ColorPath, Depth: w.cfg.DepthPath}, nil
}

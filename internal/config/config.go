// Package config loads rsviewer configuration.
// Priority (highest to lowest): CLI flags > Environment variables > Config file > Defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/colorize"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/realsense"
	"github.com/teslashibe/rsviewer/pkg/snapshot"
	"github.com/teslashibe/rsviewer/pkg/viewer"
	"github.com/teslashibe/rsviewer/pkg/web"
)

// Environment variables read by Load.
const (
	EnvBackend    = "RSVIEWER_BACKEND"
	EnvLogLevel   = "RSVIEWER_LOG_LEVEL"
	EnvWebAddr    = "RSVIEWER_WEB_ADDR"
	EnvDisplay    = "DISPLAY"
	EnvXAuthority = "XAUTHORITY"
)

// Duration is a time.Duration that reads and writes JSON as "5s".
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "1500ms" style strings or integer milliseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// Config is the full rsviewer configuration.
type Config struct {
	// Backend selects the capture backend: auto, librealsense, mock.
	Backend string `json:"backend"`

	// Preset names the stream configuration: default, high, low.
	Preset string `json:"preset"`

	// FrameTimeout bounds each frame wait.
	FrameTimeout Duration `json:"frame_timeout"`

	LogLevel string `json:"log_level"`

	Colorize colorize.Options `json:"colorize"`
	Display  display.Config   `json:"display"`
	Snapshot snapshot.Config  `json:"snapshot"`

	// Web enables the preview server when Web.Addr is set.
	Web web.Config `json:"web"`
}

// Default returns the built-in configuration.
func Default() Config {
	webCfg := web.DefaultConfig()
	webCfg.Addr = ""

	return Config{
		Backend:      string(realsense.BackendAuto),
		Preset:       camera.PresetDefault,
		FrameTimeout: Duration(realsense.DefaultFrameTimeout),
		LogLevel:     "info",
		Colorize:     colorize.DefaultOptions(),
		Display:      display.DefaultConfig(),
		Snapshot:     snapshot.DefaultConfig(),
		Web:          webCfg,
	}
}

// DefaultPath returns ~/.rsviewer/config.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rsviewer", "config.json")
}

// Load layers the config file and environment over the defaults. An empty
// path reads DefaultPath if it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			// Fields absent from the file keep their defaults
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv(getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvWebAddr); v != "" {
		c.Web.Addr = v
	}

	// The inherited X session only fills in what the file left unset, so a
	// configured monitor (e.g. ":1") wins over the launching shell's DISPLAY.
	if c.Display.X11Display == "" {
		c.Display.X11Display = getenv(EnvDisplay)
	}
	if c.Display.XAuthority == "" {
		c.Display.XAuthority = getenv(EnvXAuthority)
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := realsense.ParseBackend(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.StreamConfig(); err != nil {
		errs = append(errs, err)
	}
	if c.FrameTimeout <= 0 {
		errs = append(errs, fmt.Errorf("frame_timeout must be positive, got %v", time.Duration(c.FrameTimeout)))
	}
	if err := c.Colorize.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("colorize: %w", err))
	}
	if err := c.Display.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("display: %w", err))
	}
	if err := c.Snapshot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot: %w", err))
	}
	if c.WebEnabled() {
		if err := c.Web.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("web: %w", err))
		}
	}

	return errors.Join(errs...)
}

// StreamConfig resolves the preset.
func (c *Config) StreamConfig() (camera.StreamConfig, error) {
	p := camera.GetPreset(c.Preset)
	if p == nil {
		return camera.StreamConfig{}, fmt.Errorf("unknown preset %q (want one of %s)",
			c.Preset, strings.Join(camera.PresetNames(), ", "))
	}
	return *p, nil
}

// WebEnabled reports whether the preview server should run.
func (c *Config) WebEnabled() bool {
	return c.Web.Addr != ""
}

// Viewer builds the frame loop configuration.
func (c *Config) Viewer() (viewer.Config, error) {
	stream, err := c.StreamConfig()
	if err != nil {
		return viewer.Config{}, err
	}
	vc := viewer.DefaultConfig()
	vc.Stream = stream
	vc.FrameTimeout = time.Duration(c.FrameTimeout)
	if c.Display.Backend == display.BackendOpenCV {
		vc.WindowTitle = c.Display.Title
	}
	return vc, nil
}

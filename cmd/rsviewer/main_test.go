package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/rsviewer/internal/config"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/realsense"
)

// isolate hides the user's config file and RSVIEWER_* variables.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{config.EnvBackend, config.EnvLogLevel, config.EnvWebAddr, config.EnvDisplay, config.EnvXAuthority} {
		t.Setenv(k, "")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	isolate(t)

	opts, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if opts.debug {
		t.Error("debug on by default")
	}
	if opts.cfg.Backend != "auto" || opts.cfg.Preset != "default" || opts.cfg.Display.Backend != display.BackendOpenCV {
		t.Errorf("unexpected defaults: %+v", opts.cfg)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	isolate(t)

	opts, err := parseFlags([]string{
		"--backend", "mock",
		"--preset", "high",
		"--palette", "gray",
		"--alpha", "0.05",
		"--frame-timeout", "2s",
		"--display", ":1",
		"--xauthority", "/run/user/1000/gdm/Xauthority",
		"--headless",
		"--web", ":8090",
		"--log-level", "debug",
		"--debug",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	cfg := opts.cfg
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"backend", cfg.Backend, "mock"},
		{"preset", cfg.Preset, "high"},
		{"palette", cfg.Colorize.Palette, "gray"},
		{"alpha", cfg.Colorize.Alpha, 0.05},
		{"frame timeout", time.Duration(cfg.FrameTimeout), 2 * time.Second},
		{"display", cfg.Display.X11Display, ":1"},
		{"xauthority", cfg.Display.XAuthority, "/run/user/1000/gdm/Xauthority"},
		{"display backend", cfg.Display.Backend, display.BackendHeadless},
		{"web", cfg.Web.Addr, ":8090"},
		{"log level", cfg.LogLevel, "debug"},
		{"debug", opts.debug, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config invalid: %v", err)
	}
}

func TestParseFlags_FlagBeatsFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"backend": "librealsense", "preset": "low"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := parseFlags([]string{"--config", path, "--backend", "mock"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if opts.cfg.Backend != "mock" {
		t.Errorf("backend = %q, want flag value", opts.cfg.Backend)
	}
	if opts.cfg.Preset != "low" {
		t.Errorf("preset = %q, want file value", opts.cfg.Preset)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--fps", "60"}},
		{name: "bad duration", args: []string{"--frame-timeout", "soon"}},
		{name: "positional", args: []string{"extra"}},
		{name: "missing config", args: []string{"--config", "/nonexistent/rsviewer.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(tt.args, io.Discard); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := parseFlags([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "quit", err: nil, want: exitOK},
		{name: "no device", err: realsense.ErrNoDevice, want: exitOK},
		{name: "interrupt", err: fmt.Errorf("run: %w", context.Canceled), want: exitInterrupted},
		{name: "start failure", err: &realsense.StreamStartError{Backend: "mock", Err: errors.New("busy")}, want: exitFailure},
		{name: "runtime", err: errors.New("device disconnected"), want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := exitCode(tt.err, &stderr); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
			if tt.want == exitFailure && !strings.Contains(stderr.String(), tt.err.Error()) {
				t.Errorf("stderr %q does not include the error", stderr.String())
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	isolate(t)
	if got := run([]string{"--palette", "viridis"}); got != exitConfig {
		t.Errorf("run() = %d, want %d", got, exitConfig)
	}
}

func TestBuild_MockHeadless(t *testing.T) {
	isolate(t)

	cfg := config.Default()
	cfg.Backend = string(realsense.BackendMock)
	cfg.Preset = "low"
	cfg.Display.Backend = display.BackendHeadless
	dir := t.TempDir()
	cfg.Snapshot.ColorPath = filepath.Join(dir, "c.png")
	cfg.Snapshot.DepthPath = filepath.Join(dir, "d.png")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	v, cleanup, err := build(ctx, cfg)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer cleanup()

	err = v.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	s := v.Stats()
	if s.FramesDisplayed == 0 {
		t.Error("no frames displayed from mock backend")
	}
	if s.Backend != "mock" || s.State != "stopped" {
		t.Errorf("unexpected stats: %+v", s)
	}
}

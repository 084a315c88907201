// rsviewer - RealSense color + depth viewer
// Shows the color stream next to a colorized depth map; 'q' quits, 's' saves a snapshot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/rsviewer/internal/config"
	"github.com/teslashibe/rsviewer/internal/log"
	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/colorize"
	"github.com/teslashibe/rsviewer/pkg/debug"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/display/opencv"
	"github.com/teslashibe/rsviewer/pkg/realsense"
	"github.com/teslashibe/rsviewer/pkg/snapshot"
	"github.com/teslashibe/rsviewer/pkg/viewer"
	"github.com/teslashibe/rsviewer/pkg/web"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitInterrupted = 130
)

func init() {
	// HighGUI calls must all come from the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// cliOptions is the parsed command line.
type cliOptions struct {
	cfg   config.Config
	debug bool
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return exitConfig
	}
	cfg := opts.cfg

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return exitConfig
	}

	log.Init(cfg.LogLevel)
	debug.Enabled = opts.debug
	debug.Frames = opts.debug
	debug.Logln("debug tracing enabled")
	log.Info("rsviewer starting",
		"backend", cfg.Backend,
		"preset", cfg.Preset,
		"display", string(cfg.Display.Backend),
		"web", cfg.Web.Addr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v, cleanup, err := build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Initialization failed: %v\n", err)
		return exitFailure
	}
	defer cleanup()

	return exitCode(v.Run(ctx), os.Stderr)
}

// build wires the viewer and its collaborators from cfg.
func build(ctx context.Context, cfg config.Config) (*viewer.Viewer, func(), error) {
	logger := log.With("component", "rsviewer")

	backend, err := realsense.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	rs, err := realsense.NewContext(backend, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := rs.Close(); err != nil {
			log.Warn("close realsense context", "error", err)
		}
	}

	col, err := colorize.New(cfg.Colorize)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	snaps, err := snapshot.NewWriter(cfg.Snapshot, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	vcfg, err := cfg.Viewer()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	vopts := viewer.Options{
		Context:     rs,
		OpenDisplay: displayOpener(cfg.Display, os.Stdin),
		Snapshots:   snaps,
		Colorizer:   col,
		Out:         os.Stdout,
		Logger:      logger,
		Config:      vcfg,
	}

	var srv *web.Server
	if cfg.WebEnabled() {
		srv, err = web.NewServer(cfg.Web, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		vopts.Publisher = srv
		vopts.RemoteKeys = srv.Keys()
	}

	v, err := viewer.New(vopts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	if srv != nil {
		srv.SetSource(v)
		srv.StartAsync(ctx)
	}

	return v, cleanup, nil
}

// displayOpener picks the window backend. Headless reads keys from in.
func displayOpener(cfg display.Config, in io.Reader) display.OpenFunc {
	logger := log.L()
	log.Debug("display backend selected", "backend", string(cfg.Backend), "title", cfg.Title)
	if cfg.Backend == display.BackendHeadless {
		return func(ctx context.Context) (display.Display, error) {
			return display.NewHeadless(in, logger), nil
		}
	}
	return opencv.Opener(cfg, logger)
}

// exitCode maps the viewer result to a process exit code.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, realsense.ErrNoDevice):
		// Diagnostic already printed; not a failure of the viewer itself.
		return exitOK
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "👋 Interrupted")
		return exitInterrupted
	default:
		log.Error("viewer failed", "error", err)
		fmt.Fprintf(stderr, "❌ Runtime error: %v\n", err)
		return exitFailure
	}
}

// parseFlags loads the config file named by --config (or the default path),
// then applies any flags that were set explicitly.
func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("rsviewer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaults := config.Default()

	configPath := fs.String("config", "", "Config file (default ~/.rsviewer/config.json)")
	backend := fs.String("backend", defaults.Backend, "Capture backend: auto, "+joinBackends())
	preset := fs.String("preset", defaults.Preset, "Stream preset: "+strings.Join(camera.PresetNames(), ", "))
	palette := fs.String("palette", defaults.Colorize.Palette, "Depth palette: "+strings.Join(colorize.PaletteNames(), ", "))
	alpha := fs.Float64("alpha", defaults.Colorize.Alpha, "Depth scale factor before clipping to 0-255")
	frameTimeout := fs.Duration("frame-timeout", time.Duration(defaults.FrameTimeout), "Max wait for a frame before skipping")
	x11Display := fs.String("display", "", "X display for the window (e.g., :1)")
	xauthority := fs.String("xauthority", "", "X authority file for --display")
	headless := fs.Bool("headless", false, "No window; read keys from stdin (use with --web)")
	webAddr := fs.String("web", "", "Serve a live preview on this address (e.g., :8090)")
	logLevel := fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	debugFlag := fs.Bool("debug", false, "Enable per-frame debug traces")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cliOptions{}, err
	}

	// CLI flags have highest priority, but only when given
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "preset":
			cfg.Preset = *preset
		case "palette":
			cfg.Colorize.Palette = *palette
		case "alpha":
			cfg.Colorize.Alpha = *alpha
		case "frame-timeout":
			cfg.FrameTimeout = config.Duration(*frameTimeout)
		case "display":
			cfg.Display.X11Display = *x11Display
		case "xauthority":
			cfg.Display.XAuthority = *xauthority
		case "headless":
			if *headless {
				cfg.Display.Backend = display.BackendHeadless
			}
		case "web":
			cfg.Web.Addr = *webAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	return cliOptions{cfg: cfg, debug: *debugFlag}, nil
}

func joinBackends() string {
	names := make([]string, 0, 2)
	for _, b := range realsense.AvailableBackends() {
		names = append(names, string(b))
	}
	return strings.Join(names, ", ")
}

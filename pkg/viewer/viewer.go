// Package viewer runs the capture and display loop: discover the camera,
// start the fixed stream configuration, show color and colorized depth side
// by side, and handle quit and snapshot keys until the user quits.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/colorize"
	"github.com/teslashibe/rsviewer/pkg/composite"
	"github.com/teslashibe/rsviewer/pkg/debug"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/realsense"
	"github.com/teslashibe/rsviewer/pkg/snapshot"
)

// Publisher receives every displayed buffer. Publish must not block.
type Publisher interface {
	Publish(img image.Image)
}

// Options are the viewer's collaborators.
type Options struct {
	// Context is the device registry and pipeline opener. Required.
	Context realsense.Context

	// OpenDisplay creates the window once the pipeline is streaming. Required.
	OpenDisplay display.OpenFunc

	// Snapshots writes the 's' key output. Defaults to the /tmp paths.
	Snapshots *snapshot.Writer

	// Colorizer maps depth to color. Defaults to alpha 0.03, jet.
	Colorizer *colorize.Colorizer

	// Out receives the console lines. Defaults to os.Stdout.
	Out io.Writer

	Logger *slog.Logger

	// Publisher optionally receives each displayed buffer.
	Publisher Publisher

	// RemoteKeys optionally delivers keys from outside the window.
	RemoteKeys <-chan display.Key

	Config Config
}

// Viewer owns the pipeline and window for one session.
type Viewer struct {
	rs          realsense.Context
	openDisplay display.OpenFunc
	snapshots   *snapshot.Writer
	colorizer   *colorize.Colorizer
	out         io.Writer
	logger      *slog.Logger
	publisher   Publisher
	remoteKeys  <-chan display.Key
	cfg         Config

	display display.Display

	closeOnce sync.Once
	closeErr  error

	mu    sync.Mutex
	stats Stats
}

// New creates a viewer.
func New(opts Options) (*Viewer, error) {
	if opts.Context == nil {
		return nil, errors.New("viewer: realsense context is required")
	}
	if opts.OpenDisplay == nil {
		return nil, errors.New("viewer: display opener is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	snaps := opts.Snapshots
	if snaps == nil {
		w, err := snapshot.NewWriter(snapshot.DefaultConfig(), logger)
		if err != nil {
			return nil, err
		}
		snaps = w
	}

	col := opts.Colorizer
	if col == nil {
		c, err := colorize.New(colorize.DefaultOptions())
		if err != nil {
			return nil, err
		}
		col = c
	}

	sessionID := uuid.NewString()

	return &Viewer{
		rs:          opts.Context,
		openDisplay: opts.OpenDisplay,
		snapshots:   snaps,
		colorizer:   col,
		out:         out,
		logger:      logger.With("session", sessionID),
		publisher:   opts.Publisher,
		remoteKeys:  opts.RemoteKeys,
		cfg:         opts.Config,
		stats: Stats{
			SessionID: sessionID,
			Backend:   opts.Context.Name(),
			State:     StateIdle,
			StartedAt: time.Now(),
		},
	}, nil
}

// Discover queries the connected cameras once and prints them.
// Returns realsense.ErrNoDevice when none are connected.
func (v *Viewer) Discover(ctx context.Context) ([]realsense.Device, error) {
	devices, err := v.rs.QueryDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}

	v.mu.Lock()
	v.stats.Devices = devices
	v.mu.Unlock()

	if len(devices) == 0 {
		return nil, realsense.ErrNoDevice
	}

	fmt.Fprintf(v.out, "Found %d camera(s)\n", len(devices))
	for _, dev := range devices {
		fmt.Fprintf(v.out, "  - %s (SN: %s)\n", dev.Name, dev.SerialNumber)
	}

	v.logger.Info("devices discovered", "count", len(devices), "backend", v.rs.Name())
	return devices, nil
}

// Configure returns the stream configuration to start.
func (v *Viewer) Configure() camera.StreamConfig {
	return v.cfg.Stream
}

// Open starts streaming cfg. Failures are *realsense.StreamStartError and
// are not retried.
func (v *Viewer) Open(ctx context.Context, cfg camera.StreamConfig) (realsense.Pipeline, error) {
	p, err := v.rs.Open(ctx, cfg)
	if err != nil {
		var startErr *realsense.StreamStartError
		if !errors.As(err, &startErr) {
			err = &realsense.StreamStartError{Backend: v.rs.Name(), Err: err}
		}
		return nil, err
	}

	v.setState(StateStreaming)
	profile := p.Profile()
	v.logger.Info("pipeline started",
		"depth", profile.Depth.String(),
		"color", profile.Color.String())
	return p, nil
}

// RunLoop shows frames until 'q' is pressed (returns nil), ctx is
// cancelled (returns ctx.Err()), or a collaborator fails.
// Timed out waits and incomplete pairs are skipped.
func (v *Viewer) RunLoop(ctx context.Context, p realsense.Pipeline) error {
	if err := v.ensureDisplay(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fs, err := p.WaitForFrames(ctx, v.cfg.FrameTimeout)
		if err != nil {
			if errors.Is(err, realsense.ErrFrameTimeout) {
				v.countTimeout()
				debug.FrameLog("frame wait timed out after %v\n", v.cfg.FrameTimeout)
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("wait for frames: %w", err)
		}

		if !fs.Complete() {
			v.countSkip()
			debug.FrameLog("incomplete frameset (depth=%t color=%t)\n", fs.Depth != nil, fs.Color != nil)
			continue
		}
		if err := fs.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", fs.Depth.Number, err)
		}

		colorImg := fs.Color.Image()
		depthImg := v.colorizer.Colorize(fs.Depth)
		buf := composite.SideBySide(colorImg, depthImg)

		if err := v.display.Show(buf); err != nil {
			return fmt.Errorf("show frame %d: %w", fs.Depth.Number, err)
		}
		v.countDisplayed(fs.Depth.Number)
		debug.FrameLog("frame %d displayed\n", fs.Depth.Number)

		if v.publisher != nil {
			v.publisher.Publish(buf)
		}

		key, err := v.display.PollKey(v.cfg.KeyPollInterval)
		if err != nil {
			return fmt.Errorf("poll key: %w", err)
		}
		if key == display.KeyNone {
			key = v.remoteKey()
		}

		switch key {
		case display.KeyNone:
		case display.KeyQuit:
			v.logger.Info("quit requested", "frames", v.Stats().FramesDisplayed)
			return nil
		case display.KeySave:
			if err := v.save(colorImg, depthImg); err != nil {
				return err
			}
		default:
			debug.FrameLog("ignoring key %q\n", key.String())
		}
	}
}

// Close stops the pipeline, destroys the window if one was opened, and
// prints "Camera stopped". Only the first call does anything.
func (v *Viewer) Close(p realsense.Pipeline) error {
	v.closeOnce.Do(func() {
		var errs []error
		if p != nil {
			if err := p.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop pipeline: %w", err))
			}
		}
		if v.display != nil {
			if err := v.display.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close display: %w", err))
			}
		}
		v.setState(StateStopped)

		s := v.Stats()
		v.logger.Info("viewer stopped",
			"frames", s.FramesDisplayed,
			"skipped", s.FramesSkipped,
			"timeouts", s.Timeouts,
			"snapshots", s.SnapshotsSaved,
			"uptime", s.Uptime().Round(time.Millisecond))

		fmt.Fprintln(v.out, "Camera stopped")
		v.closeErr = errors.Join(errs...)
	})
	return v.closeErr
}

// Run executes a whole session. With no camera it prints a diagnostic
// and returns realsense.ErrNoDevice without opening anything.
func (v *Viewer) Run(ctx context.Context) (err error) {
	if _, err := v.Discover(ctx); err != nil {
		if errors.Is(err, realsense.ErrNoDevice) {
			v.printNoDevice()
		}
		return err
	}

	cfg := v.Configure()

	fmt.Fprintln(v.out, "Starting RealSense camera...")
	p, err := v.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := v.Close(p); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	fmt.Fprintln(v.out, "Camera started! Press 'q' to quit, 's' to save frame")
	if v.cfg.WindowTitle != "" {
		fmt.Fprintf(v.out, "Window should appear on monitor: '%s'\n", v.cfg.WindowTitle)
	}

	return v.RunLoop(ctx, p)
}

// Stats returns a copy of the current counters.
func (v *Viewer) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.stats
	s.Devices = append([]realsense.Device(nil), v.stats.Devices...)
	return s
}

func (v *Viewer) printNoDevice() {
	fmt.Fprintln(v.out, "ERROR: No RealSense camera detected!")
	fmt.Fprintln(v.out, "Please check:")
	fmt.Fprintln(v.out, "  1. Camera USB cable is connected")
	fmt.Fprintln(v.out, "  2. Camera is powered on")
	fmt.Fprintln(v.out, "  3. Try unplugging and replugging the camera")
}

func (v *Viewer) ensureDisplay(ctx context.Context) error {
	if v.display != nil {
		return nil
	}
	d, err := v.openDisplay(ctx)
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	v.display = d
	return nil
}

// remoteKey takes one pending remote key without blocking.
func (v *Viewer) remoteKey() display.Key {
	if v.remoteKeys == nil {
		return display.KeyNone
	}
	select {
	case k := <-v.remoteKeys:
		v.logger.Debug("remote key", "key", k.String())
		return k
	default:
		return display.KeyNone
	}
}

func (v *Viewer) save(colorImg, depthImg image.Image) error {
	if _, err := v.snapshots.Save(colorImg, depthImg); err != nil {
		return err
	}

	v.mu.Lock()
	v.stats.SnapshotsSaved++
	v.mu.Unlock()

	fmt.Fprintf(v.out, "Saved frames to %s\n", v.snapshots.Config().Pattern())
	return nil
}

func (v *Viewer) setState(s State) {
	v.mu.Lock()
	v.stats.State = s
	v.mu.Unlock()
}

func (v *Viewer) countDisplayed(n uint64) {
	v.mu.Lock()
	v.stats.FramesDisplayed++
	v.stats.LastFrame = n
	v.mu.Unlock()
}

func (v *Viewer) countSkip() {
	v.mu.Lock()
	v.stats.FramesSkipped++
	v.mu.Unlock()
}

func (v *Viewer) countTimeout() {
	v.mu.Lock()
	v.stats.Timeouts++
	v.mu.Unlock()
}

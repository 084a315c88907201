// Package opencv implements display.Display with an OpenCV HighGUI window.
//
// HighGUI is not thread-safe: create, show, poll, and close from the same
// OS thread (lock the main goroutine with runtime.LockOSThread).
package opencv

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/teslashibe/rsviewer/pkg/display"
	"gocv.io/x/gocv"
)

// Window wraps a gocv window.
type Window struct {
	logger *slog.Logger
	title  string

	mu     sync.Mutex
	window *gocv.Window
}

// New creates the window. X11Display and XAuthority from cfg are exported
// to the environment first, since HighGUI only reads them at window creation.
func New(cfg display.Config, logger *slog.Logger) (*Window, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.X11Display != "" {
		if err := os.Setenv("DISPLAY", cfg.X11Display); err != nil {
			return nil, fmt.Errorf("set DISPLAY: %w", err)
		}
	}
	if cfg.XAuthority != "" {
		if err := os.Setenv("XAUTHORITY", cfg.XAuthority); err != nil {
			return nil, fmt.Errorf("set XAUTHORITY: %w", err)
		}
	}

	w := gocv.NewWindow(cfg.Title)
	if w == nil || !w.IsOpen() {
		return nil, fmt.Errorf("open window %q on DISPLAY=%q", cfg.Title, os.Getenv("DISPLAY"))
	}

	logger.Info("window opened",
		"title", cfg.Title,
		"display", os.Getenv("DISPLAY"),
		"opencv", gocv.OpenCVVersion())

	return &Window{logger: logger, title: cfg.Title, window: w}, nil
}

// Opener returns a display.OpenFunc that creates a Window from cfg.
func Opener(cfg display.Config, logger *slog.Logger) display.OpenFunc {
	return func(ctx context.Context) (display.Display, error) {
		return New(cfg, logger)
	}
}

// Show converts img to a BGR Mat and draws it.
func (w *Window) Show(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return fmt.Errorf("window %q is closed", w.title)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	w.window.IMShow(mat)
	return nil
}

// PollKey runs the HighGUI event loop for up to timeout. The event loop
// also repaints the window, so it must be called once per shown frame.
func (w *Window) PollKey(timeout time.Duration) (display.Key, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return display.KeyNone, fmt.Errorf("window %q is closed", w.title)
	}

	ms := max(int(timeout/time.Millisecond), 1)
	return display.KeyFromCode(w.window.WaitKey(ms)), nil
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	w.logger.Info("window closed", "title", w.title)
	return err
}

// Ensure Window implements display.Display.
var _ display.Display = (*Window)(nil)

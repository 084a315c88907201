package display

import (
	"bufio"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Headless is a Display without a window, for hosts with no monitor. Keys
// are read line by line from an input stream (usually stdin); a line must be
// exactly q, quit, s or save. Anything else is ignored.
type Headless struct {
	logger *slog.Logger
	keys   chan Key

	shown atomic.Int64

	once   sync.Once
	closed chan struct{}
}

// NewHeadless starts reading keys from in. A nil in never produces keys.
func NewHeadless(in io.Reader, logger *slog.Logger) *Headless {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Headless{
		logger: logger,
		keys:   make(chan Key, 16),
		closed: make(chan struct{}),
	}

	if in != nil {
		go h.readKeys(in)
	}

	logger.Info("headless display ready")
	return h
}

func (h *Headless) readKeys(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		key, ok := ParseKey(scanner.Text())
		if !ok {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				h.logger.Debug("ignoring input", "line", line)
			}
			continue
		}
		select {
		case h.keys <- key:
		case <-h.closed:
			return
		}
	}
}

// Show counts the frame and discards it.
func (h *Headless) Show(img image.Image) error {
	h.shown.Add(1)
	return nil
}

// PollKey returns the next typed key, waiting at most timeout.
func (h *Headless) PollKey(timeout time.Duration) (Key, error) {
	select {
	case k := <-h.keys:
		return k, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case k := <-h.keys:
		return k, nil
	case <-timer.C:
		return KeyNone, nil
	case <-h.closed:
		return KeyNone, nil
	}
}

// Shown returns how many frames were shown.
func (h *Headless) Shown() int {
	return int(h.shown.Load())
}

// Close stops key reading.
func (h *Headless) Close() error {
	h.once.Do(func() {
		close(h.closed)
		h.logger.Info("headless display closed")
	})
	return nil
}

// Ensure Headless implements Display.
var _ Display = (*Headless)(nil)

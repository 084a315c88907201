package display

import (
	"image"
	"sync"
	"time"
)

// Mock is a Display for tests. It records every shown image and replays
// scripted keys, one per PollKey call.
type Mock struct {
	mu      sync.Mutex
	keys    []Key
	shown   []image.Image
	polls   int
	closes  int
	showErr error
	errAt   int
}

// NewMock creates a mock that returns keys in order, then KeyNone.
func NewMock(keys ...Key) *Mock {
	return &Mock{keys: keys}
}

// FailShowAt makes the n-th Show call (1-based) return err.
func (m *Mock) FailShowAt(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errAt, m.showErr = n, err
}

// Show records img.
func (m *Mock) Show(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.showErr != nil && len(m.shown)+1 == m.errAt {
		return m.showErr
	}
	m.shown = append(m.shown, img)
	return nil
}

// PollKey pops the next scripted key.
func (m *Mock) PollKey(timeout time.Duration) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.polls++
	if len(m.keys) == 0 {
		return KeyNone, nil
	}
	k := m.keys[0]
	m.keys = m.keys[1:]
	return k, nil
}

// Close records the call.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Shown returns the images shown so far.
func (m *Mock) Shown() []image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]image.Image, len(m.shown))
	copy(out, m.shown)
	return out
}

// Polls returns how many times PollKey was called.
func (m *Mock) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Closes returns how many times Close was called.
func (m *Mock) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Ensure Mock implements Display.
var _ Display = (*Mock)(nil)

package realsense

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/frame"
)

// MockDevice is the device reported by a default mock context.
var MockDevice = Device{
	Name:            "Intel RealSense D435 (mock)",
	SerialNumber:    "000000000000",
	FirmwareVersion: "5.16.0.1",
	ProductLine:     "D400",
	USBType:         "3.2",
}

// MockResult is one scripted WaitForFrames outcome.
type MockResult struct {
	Frames Frameset
	Err    error
	Delay  time.Duration // Simulated wait before the result is delivered
}

// Mock is a device registry for tests and hardware-less demos.
// Without a script it generates a synthetic scene paced at the
// configured framerate.
type Mock struct {
	logger *slog.Logger

	devices    []Device
	queryErr   error
	startErr   error
	script     []MockResult
	scriptOnly bool

	mu        sync.Mutex
	closed    bool
	pipelines []*MockPipeline

	opens atomic.Int64
}

// MockOption configures a Mock.
type MockOption func(*Mock)

// WithDevices replaces the reported device list. No arguments means no
// camera is connected.
func WithDevices(devices ...Device) MockOption {
	return func(m *Mock) {
		m.devices = devices
	}
}

// WithQueryError makes QueryDevices fail.
func WithQueryError(err error) MockOption {
	return func(m *Mock) {
		m.queryErr = err
	}
}

// WithStartError makes Open fail with a StreamStartError wrapping err.
func WithStartError(err error) MockOption {
	return func(m *Mock) {
		m.startErr = err
	}
}

// WithScript queues results returned by WaitForFrames, in order. Once the
// script is exhausted the pipeline falls back to synthetic frames.
func WithScript(results ...MockResult) MockOption {
	return func(m *Mock) {
		m.script = results
	}
}

// WithScriptOnly makes an exhausted script behave like a silent device:
// every later wait ends in ErrFrameTimeout.
func WithScriptOnly() MockOption {
	return func(m *Mock) {
		m.scriptOnly = true
	}
}

// NewMock creates a mock registry with one synthetic device.
func NewMock(logger *slog.Logger, opts ...MockOption) *Mock {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mock{
		logger:  logger,
		devices: []Device{MockDevice},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// QueryDevices returns the configured devices.
func (m *Mock) QueryDevices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := make([]Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

// Open starts a mock pipeline.
func (m *Mock) Open(ctx context.Context, cfg camera.StreamConfig) (Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &StreamStartError{Backend: "mock", Err: io.ErrClosedPipe}
	}
	if m.startErr != nil {
		return nil, &StreamStartError{Backend: "mock", Err: m.startErr}
	}
	if len(m.devices) == 0 {
		return nil, &StreamStartError{Backend: "mock", Err: ErrNoDevice}
	}

	script := make([]MockResult, len(m.script))
	copy(script, m.script)

	p := &MockPipeline{
		cfg:        cfg,
		logger:     m.logger,
		script:     script,
		scriptOnly: m.scriptOnly,
		stopCh:     make(chan struct{}),
	}
	m.pipelines = append(m.pipelines, p)
	m.opens.Add(1)

	m.logger.Info("mock pipeline started",
		"depth", cfg.Depth.String(),
		"color", cfg.Color.String(),
	)

	return p, nil
}

// Opens returns how many pipelines were started.
func (m *Mock) Opens() int {
	return int(m.opens.Load())
}

// Pipelines returns every pipeline opened so far.
func (m *Mock) Pipelines() []*MockPipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockPipeline, len(m.pipelines))
	copy(out, m.pipelines)
	return out
}

// Name returns "mock".
func (m *Mock) Name() string {
	return string(BackendMock)
}

// Close releases resources.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Ensure Mock implements Context.
var _ Context = (*Mock)(nil)

// MockPipeline is the Pipeline returned by Mock.Open.
type MockPipeline struct {
	cfg        camera.StreamConfig
	logger     *slog.Logger
	scriptOnly bool

	mu     sync.Mutex
	script []MockResult
	next   int
	frame  uint64
	stopCh chan struct{}

	waits atomic.Int64
	stops atomic.Int64
}

// WaitForFrames returns the next scripted result or a synthetic frameset.
func (p *MockPipeline) WaitForFrames(ctx context.Context, timeout time.Duration) (Frameset, error) {
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}
	p.waits.Add(1)

	p.mu.Lock()
	if p.stops.Load() > 0 {
		p.mu.Unlock()
		return Frameset{}, ErrPipelineStopped
	}
	var (
		res      MockResult
		scripted bool
	)
	if p.next < len(p.script) {
		res = p.script[p.next]
		p.next++
		scripted = true
	}
	p.frame++
	n := p.frame
	stopCh := p.stopCh
	p.mu.Unlock()

	switch {
	case scripted:
		if err := p.sleep(ctx, stopCh, res.Delay, timeout); err != nil {
			return Frameset{}, err
		}
		return res.Frames, res.Err
	case p.scriptOnly:
		if err := p.sleep(ctx, stopCh, timeout+time.Nanosecond, timeout); err != nil {
			return Frameset{}, err
		}
		return Frameset{}, ErrFrameTimeout
	default:
		interval := time.Second / time.Duration(max(p.cfg.Depth.FPS, 1))
		if err := p.sleep(ctx, stopCh, interval, timeout); err != nil {
			return Frameset{}, err
		}
		return SyntheticFrameset(p.cfg, n), nil
	}
}

// sleep waits d, giving up with ErrFrameTimeout after timeout.
func (p *MockPipeline) sleep(ctx context.Context, stopCh <-chan struct{}, d, timeout time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	wait, expired := d, false
	if d > timeout {
		wait, expired = timeout, true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		return ErrPipelineStopped
	case <-timer.C:
	}
	if expired {
		return ErrFrameTimeout
	}
	return nil
}

// Profile returns the stream configuration.
func (p *MockPipeline) Profile() camera.StreamConfig {
	return p.cfg
}

// Stop halts the pipeline.
func (p *MockPipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stops.Add(1) == 1 {
		close(p.stopCh)
		p.logger.Info("mock pipeline stopped")
	}
	return nil
}

// Stops returns how many times Stop was called.
func (p *MockPipeline) Stops() int {
	return int(p.stops.Load())
}

// Waits returns how many times WaitForFrames was called.
func (p *MockPipeline) Waits() int {
	return int(p.waits.Load())
}

// Ensure MockPipeline implements Pipeline.
var _ Pipeline = (*MockPipeline)(nil)

// SyntheticFrameset renders frame n of a sliding ramp scene: depth grows
// left to right from 0.3m to ~8.5m and scrolls with n, color is a matching
// gradient.
func SyntheticFrameset(cfg camera.StreamConfig, n uint64) Frameset {
	now := time.Now()

	depth := frame.NewDepth(cfg.Depth.Width, cfg.Depth.Height)
	depth.Number, depth.Timestamp = n, now
	for y := 0; y < depth.Height; y++ {
		for x := 0; x < depth.Width; x++ {
			// Leave a band of holes along the top rows like a real sensor edge.
			if y < depth.Height/40 {
				continue
			}
			v := 300 + (x*8192/max(depth.Width, 1)+int(n)*40)%8192
			depth.Set(x, y, uint16(v))
		}
	}

	format := frame.BGR8
	if cfg.Color.Format == camera.FormatRGB8 {
		format = frame.RGB8
	}
	color := frame.NewColor(cfg.Color.Width, cfg.Color.Height, format)
	color.Number, color.Timestamp = n, now
	for y := 0; y < color.Height; y++ {
		for x := 0; x < color.Width; x++ {
			r := uint8((x + int(n)) * 255 / max(color.Width, 1))
			g := uint8(y * 255 / max(color.Height, 1))
			color.SetRGB(x, y, r, g, 128)
		}
	}

	return Frameset{Depth: depth, Color: color}
}

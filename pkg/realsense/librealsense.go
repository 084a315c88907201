//go:build realsense && cgo

package realsense

/*
#cgo linux darwin LDFLAGS: -L/usr/local/lib -lrealsense2
#cgo CPPFLAGS: -I/usr/local/include
#include <stdlib.h>
#include <librealsense2/rs.h>
#include <librealsense2/h/rs_pipeline.h>
#include <librealsense2/h/rs_config.h>
#include <librealsense2/h/rs_frame.h>
*/
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/teslashibe/rsviewer/pkg/camera"
	"github.com/teslashibe/rsviewer/pkg/frame"
)

const librealsenseAvailable = true

// waitSlice bounds each blocking SDK wait so ctx cancellation is noticed.
const waitSlice = 100 * time.Millisecond

func errorFrom(errc *C.rs2_error) error {
	if errc == nil {
		return nil
	}
	defer C.rs2_free_error(errc)

	return &SDKError{
		Function: C.GoString(C.rs2_get_failed_function(errc)),
		Args:     C.GoString(C.rs2_get_failed_args(errc)),
		Message:  C.GoString(C.rs2_get_error_message(errc)),
	}
}

// librealsenseContext is the production registry backed by rs2_context.
type librealsenseContext struct {
	logger *slog.Logger

	mu  sync.Mutex
	ctx *C.rs2_context
}

func newLibrealsenseContext(logger *slog.Logger) (Context, error) {
	var errc *C.rs2_error
	ctx := C.rs2_create_context(C.RS2_API_VERSION, &errc)
	if err := errorFrom(errc); err != nil {
		return nil, err
	}

	logger.Info("librealsense context created", "api_version", int(C.RS2_API_VERSION))

	return &librealsenseContext{logger: logger, ctx: ctx}, nil
}

// QueryDevices lists connected cameras.
func (c *librealsenseContext) QueryDevices(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return nil, ErrPipelineStopped
	}

	var errc *C.rs2_error
	list := C.rs2_query_devices(c.ctx, &errc)
	if err := errorFrom(errc); err != nil {
		return nil, err
	}
	defer C.rs2_delete_device_list(list)

	count := int(C.rs2_get_device_count(list, &errc))
	if err := errorFrom(errc); err != nil {
		return nil, err
	}

	devices := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		dev := C.rs2_create_device(list, C.int(i), &errc)
		if err := errorFrom(errc); err != nil {
			return nil, err
		}
		devices = append(devices, Device{
			Name:            deviceInfo(dev, C.RS2_CAMERA_INFO_NAME),
			SerialNumber:    deviceInfo(dev, C.RS2_CAMERA_INFO_SERIAL_NUMBER),
			FirmwareVersion: deviceInfo(dev, C.RS2_CAMERA_INFO_FIRMWARE_VERSION),
			ProductLine:     deviceInfo(dev, C.RS2_CAMERA_INFO_PRODUCT_LINE),
			USBType:         deviceInfo(dev, C.RS2_CAMERA_INFO_USB_TYPE_DESCRIPTOR),
		})
		C.rs2_delete_device(dev)
	}

	return devices, nil
}

// deviceInfo returns "" for fields the device does not report.
func deviceInfo(dev *C.rs2_device, info C.rs2_camera_info) string {
	var errc *C.rs2_error
	if C.rs2_supports_device_info(dev, info, &errc) == 0 {
		errorFrom(errc)
		return ""
	}
	s := C.rs2_get_device_info(dev, info, &errc)
	if errorFrom(errc) != nil {
		return ""
	}
	return C.GoString(s)
}

// Open configures and starts an rs2_pipeline.
func (c *librealsenseContext) Open(ctx context.Context, cfg camera.StreamConfig) (Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StreamStartError{Backend: string(BackendLibrealsense), Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := startPipeline(c.ctx, cfg)
	if err != nil {
		return nil, &StreamStartError{Backend: string(BackendLibrealsense), Err: err}
	}
	p.logger = c.logger

	c.logger.Info("librealsense pipeline started",
		"depth", cfg.Depth.String(),
		"color", cfg.Color.String(),
	)

	return p, nil
}

// Name returns "librealsense".
func (c *librealsenseContext) Name() string {
	return string(BackendLibrealsense)
}

// Close releases the rs2_context.
func (c *librealsenseContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx != nil {
		C.rs2_delete_context(c.ctx)
		c.ctx = nil
	}
	return nil
}

// librealsensePipeline owns an rs2_pipeline and its config.
type librealsensePipeline struct {
	cfg    camera.StreamConfig
	logger *slog.Logger

	mu      sync.Mutex
	pipe    *C.rs2_pipeline
	config  *C.rs2_config
	profile *C.rs2_pipeline_profile
	stopped bool
}

func startPipeline(ctx *C.rs2_context, cfg camera.StreamConfig) (*librealsensePipeline, error) {
	if ctx == nil {
		return nil, ErrPipelineStopped
	}

	var errc *C.rs2_error
	pipe := C.rs2_create_pipeline(ctx, &errc)
	if err := errorFrom(errc); err != nil {
		return nil, err
	}

	config := C.rs2_create_config(&errc)
	if err := errorFrom(errc); err != nil {
		C.rs2_delete_pipeline(pipe)
		return nil, err
	}

	p := &librealsensePipeline{cfg: cfg, pipe: pipe, config: config}

	for _, prof := range []camera.Profile{cfg.Depth, cfg.Color} {
		C.rs2_config_enable_stream(config, sdkStream(prof.Stream), -1,
			C.int(prof.Width), C.int(prof.Height), sdkFormat(prof.Format), C.int(prof.FPS), &errc)
		if err := errorFrom(errc); err != nil {
			p.release()
			return nil, fmt.Errorf("enable %s: %w", prof, err)
		}
	}

	p.profile = C.rs2_pipeline_start_with_config(pipe, config, &errc)
	if err := errorFrom(errc); err != nil {
		p.release()
		return nil, err
	}

	return p, nil
}

// WaitForFrames polls rs2_pipeline_try_wait_for_frames in short slices.
func (p *librealsensePipeline) WaitForFrames(ctx context.Context, timeout time.Duration) (Frameset, error) {
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return Frameset{}, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Frameset{}, ErrFrameTimeout
		}
		slice := min(remaining, waitSlice)

		fs, ok, err := p.tryWait(slice)
		if err != nil {
			return Frameset{}, err
		}
		if ok {
			return fs, nil
		}
	}
}

func (p *librealsensePipeline) tryWait(slice time.Duration) (Frameset, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return Frameset{}, false, ErrPipelineStopped
	}

	var (
		errc      *C.rs2_error
		composite *C.rs2_frame
	)
	got := C.rs2_pipeline_try_wait_for_frames(p.pipe, &composite, C.uint(slice.Milliseconds()), &errc)
	if err := errorFrom(errc); err != nil {
		return Frameset{}, false, err
	}
	if got == 0 {
		return Frameset{}, false, nil
	}
	defer C.rs2_release_frame(composite)

	fs, err := extractFrameset(composite)
	if err != nil {
		return Frameset{}, false, err
	}
	return fs, true, nil
}

// extractFrameset copies the depth and color members out of a composite
// frame. A member the device did not deliver stays nil.
func extractFrameset(composite *C.rs2_frame) (Frameset, error) {
	var errc *C.rs2_error
	count := int(C.rs2_embedded_frames_count(composite, &errc))
	if err := errorFrom(errc); err != nil {
		return Frameset{}, err
	}

	var fs Frameset
	for i := 0; i < count; i++ {
		f := C.rs2_extract_frame(composite, C.int(i), &errc)
		if err := errorFrom(errc); err != nil {
			return Frameset{}, err
		}

		err := func() error {
			defer C.rs2_release_frame(f)

			profile := C.rs2_get_frame_stream_profile(f, &errc)
			if err := errorFrom(errc); err != nil {
				return err
			}
			var (
				stream                C.rs2_stream
				format                C.rs2_format
				index, uid, framerate C.int
			)
			C.rs2_get_stream_profile_data(profile, &stream, &format, &index, &uid, &framerate, &errc)
			if err := errorFrom(errc); err != nil {
				return err
			}

			switch {
			case stream == C.RS2_STREAM_DEPTH && format == C.RS2_FORMAT_Z16:
				d, err := copyDepth(f)
				if err != nil {
					return err
				}
				fs.Depth = d
			case stream == C.RS2_STREAM_COLOR && (format == C.RS2_FORMAT_BGR8 || format == C.RS2_FORMAT_RGB8):
				cf := frame.BGR8
				if format == C.RS2_FORMAT_RGB8 {
					cf = frame.RGB8
				}
				c, err := copyColor(f, cf)
				if err != nil {
					return err
				}
				fs.Color = c
			}
			return nil
		}()
		if err != nil {
			return Frameset{}, err
		}
	}

	return fs, nil
}

type frameGeometry struct {
	width, height, stride int
	data                  unsafe.Pointer
	number                uint64
	timestamp             time.Time
}

func geometry(f *C.rs2_frame) (frameGeometry, error) {
	var (
		errc *C.rs2_error
		g    frameGeometry
	)
	g.width = int(C.rs2_get_frame_width(f, &errc))
	if err := errorFrom(errc); err != nil {
		return g, err
	}
	g.height = int(C.rs2_get_frame_height(f, &errc))
	if err := errorFrom(errc); err != nil {
		return g, err
	}
	g.stride = int(C.rs2_get_frame_stride_in_bytes(f, &errc))
	if err := errorFrom(errc); err != nil {
		return g, err
	}
	g.data = unsafe.Pointer(C.rs2_get_frame_data(f, &errc))
	if err := errorFrom(errc); err != nil {
		return g, err
	}
	g.number = uint64(C.rs2_get_frame_number(f, &errc))
	if err := errorFrom(errc); err != nil {
		return g, err
	}
	ms := float64(C.rs2_get_frame_timestamp(f, &errc))
	if err := errorFrom(errc); err != nil {
		return g, err
	}
	g.timestamp = time.UnixMilli(int64(ms))
	return g, nil
}

func copyDepth(f *C.rs2_frame) (*frame.Depth, error) {
	g, err := geometry(f)
	if err != nil {
		return nil, err
	}

	d := frame.NewDepth(g.width, g.height)
	d.Number, d.Timestamp = g.number, g.timestamp
	for y := 0; y < g.height; y++ {
		row := unsafe.Slice((*uint16)(unsafe.Add(g.data, y*g.stride)), g.width)
		copy(d.Data[y*g.width:(y+1)*g.width], row)
	}
	return d, nil
}

func copyColor(f *C.rs2_frame, format frame.ColorFormat) (*frame.Color, error) {
	g, err := geometry(f)
	if err != nil {
		return nil, err
	}

	c := frame.NewColor(g.width, g.height, format)
	c.Number, c.Timestamp = g.number, g.timestamp
	rowBytes := g.width * 3
	for y := 0; y < g.height; y++ {
		row := unsafe.Slice((*byte)(unsafe.Add(g.data, y*g.stride)), rowBytes)
		copy(c.Pix[y*rowBytes:(y+1)*rowBytes], row)
	}
	return c, nil
}

// Profile returns the stream configuration.
func (p *librealsensePipeline) Profile() camera.StreamConfig {
	return p.cfg
}

// Stop halts streaming and frees SDK handles.
func (p *librealsensePipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true

	var errc *C.rs2_error
	C.rs2_pipeline_stop(p.pipe, &errc)
	err := errorFrom(errc)
	p.release()

	if p.logger != nil {
		p.logger.Info("librealsense pipeline stopped")
	}
	return err
}

func (p *librealsensePipeline) release() {
	if p.profile != nil {
		C.rs2_delete_pipeline_profile(p.profile)
		p.profile = nil
	}
	if p.config != nil {
		C.rs2_delete_config(p.config)
		p.config = nil
	}
	if p.pipe != nil {
		C.rs2_delete_pipeline(p.pipe)
		p.pipe = nil
	}
}

func sdkStream(s camera.Stream) C.rs2_stream {
	if s == camera.StreamDepth {
		return C.RS2_STREAM_DEPTH
	}
	return C.RS2_STREAM_COLOR
}

func sdkFormat(f camera.Format) C.rs2_format {
	switch f {
	case camera.FormatZ16:
		return C.RS2_FORMAT_Z16
	case camera.FormatRGB8:
		return C.RS2_FORMAT_RGB8
	default:
		return C.RS2_FORMAT_BGR8
	}
}

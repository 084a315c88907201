package realsense

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoDevice is returned when no camera is connected.
	ErrNoDevice = errors.New("realsense: no device connected")

	// ErrFrameTimeout is returned when no frameset arrived in time.
	ErrFrameTimeout = errors.New("realsense: frame didn't arrive in time")

	// ErrPipelineStopped is returned when waiting on a stopped pipeline.
	ErrPipelineStopped = errors.New("realsense: pipeline stopped")

	// ErrIncompleteFrameset is returned when validating a frameset that
	// lacks its depth or color frame.
	ErrIncompleteFrameset = errors.New("realsense: incomplete frameset")

	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("realsense: backend unavailable")
)

// StreamStartError is returned by Context.Open when streaming could not
// start (device unplugged, busy, or unsupported mode).
type StreamStartError struct {
	// Backend identifies which backend failed.
	Backend string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StreamStartError) Error() string {
	return fmt.Sprintf("realsense [%s]: start stream: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamStartError) Unwrap() error {
	return e.Err
}

// SDKError is an error reported by librealsense2.
type SDKError struct {
	Function string
	Args     string
	Message  string
}

// Error implements the error interface.
func (e *SDKError) Error() string {
	if e.Args != "" {
		return fmt.Sprintf("realsense: %s(%s): %s", e.Function, e.Args, e.Message)
	}
	return fmt.Sprintf("realsense: %s: %s", e.Function, e.Message)
}

// IsStreamStart reports whether err came from a failed stream start.
func IsStreamStart(err error) bool {
	var sse *StreamStartError
	return errors.As(err, &sse)
}

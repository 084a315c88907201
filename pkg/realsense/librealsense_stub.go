//go:build !realsense || !cgo

package realsense

import (
	"fmt"
	"log/slog"
)

const librealsenseAvailable = false

// newLibrealsenseContext returns an error when built without librealsense2.
func newLibrealsenseContext(logger *slog.Logger) (Context, error) {
	return nil, fmt.Errorf("%w: librealsense (rebuild with -tags realsense)", ErrBackendUnavailable)
}

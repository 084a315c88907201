package realsense

import (
	"fmt"
	"log/slog"
)

// Backend represents the capture backend type.
type Backend string

const (
	// BackendAuto selects librealsense.
	BackendAuto Backend = "auto"
	// BackendLibrealsense uses librealsense2 through cgo.
	BackendLibrealsense Backend = "librealsense"
	// BackendMock uses synthetic frames.
	BackendMock Backend = "mock"
)

// ParseBackend converts a flag or config value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendAuto, nil
	case BackendAuto, BackendLibrealsense, BackendMock:
		return b, nil
	default:
		return "", fmt.Errorf("unsupported backend: %s", s)
	}
}

// NewContext creates a device registry for the given backend.
func NewContext(backend Backend, logger *slog.Logger) (Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if backend == BackendAuto || backend == "" {
		backend = BackendLibrealsense
	}

	logger.Info("creating realsense context", "backend", backend)

	switch backend {
	case BackendMock:
		return NewMock(logger), nil
	case BackendLibrealsense:
		return newLibrealsenseContext(logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// AvailableBackends returns the backends compiled into this binary.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock}
	if librealsenseAvailable {
		backends = append(backends, BackendLibrealsense)
	}
	return backends
}

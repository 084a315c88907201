package viewer

import (
	"time"

	"github.com/teslashibe/rsviewer/pkg/realsense"
)

// State is the viewer lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateStopped   State = "stopped"
)

// Stats is a snapshot of the viewer's counters.
type Stats struct {
	SessionID string             `json:"session_id"`
	Backend   string             `json:"backend"`
	State     State              `json:"state"`
	Devices   []realsense.Device `json:"devices"`
	StartedAt time.Time          `json:"started_at"`

	FramesDisplayed uint64 `json:"frames_displayed"`
	FramesSkipped   uint64 `json:"frames_skipped"` // incomplete pairs
	Timeouts        uint64 `json:"timeouts"`
	SnapshotsSaved  uint64 `json:"snapshots_saved"`
	LastFrame       uint64 `json:"last_frame"`
}

// Uptime returns time since the viewer was created.
func (s Stats) Uptime() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt)
}

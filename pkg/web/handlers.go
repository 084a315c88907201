package web

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/rsviewer/pkg/debug"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/hub"
	"github.com/teslashibe/rsviewer/pkg/viewer"
)

// StatusResponse is the /api/status body
type StatusResponse struct {
	viewer.Stats
	Elapsed         string `json:"uptime"`
	PreviewClients  int    `json:"preview_clients"`
	PreviewMessages int64  `json:"preview_messages"`
	PreviewDropped  int64  `json:"preview_dropped"`
}

// handleStatus returns viewer counters and preview state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.source == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "viewer not started",
		})
	}

	return c.JSON(s.status())
}

// status builds the status body. Requires a source.
func (s *Server) status() StatusResponse {
	stats := s.source.Stats()
	return StatusResponse{
		Stats:           stats,
		Elapsed:         stats.Uptime().Round(time.Second).String(),
		PreviewClients:  s.preview.ClientCount(),
		PreviewMessages: s.preview.Delivered(),
		PreviewDropped:  s.preview.DroppedClients(),
	}
}

// handleKey injects a quit or save key into the viewer loop
func (s *Server) handleKey(c *fiber.Ctx) error {
	raw := strings.ToLower(c.Params("key"))

	key, ok := display.ParseKey(raw)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown key: " + raw,
		})
	}

	select {
	case s.keys <- key:
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "key queue full",
		})
	}

	debug.Log("remote key %s queued from %s\n", key, c.IP())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"key": key.String(),
	})
}

// handlePreviewWS streams JPEG frames to one client
func (s *Server) handlePreviewWS(c *websocket.Conn) {
	client, err := hub.NewClient(s.preview, c)
	if err != nil {
		c.Close()
		return
	}
	client.Run()
}

// handleIndex serves a minimal preview page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

const indexHTML = `<!doctype html>
<html>
<head><title>RealSense Viewer</title></head>
<body style="background:#111;color:#ddd;font-family:sans-serif">
<h3>RealSense Viewer (Color | Depth)</h3>
<img id="preview" style="max-width:100%">
<pre id="stats"></pre>
<p>
<button onclick="fetch('/api/keys/s',{method:'POST'})">Save</button>
<button onclick="fetch('/api/keys/q',{method:'POST'})">Quit</button>
</p>
<script>
const img = document.getElementById('preview');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws/preview');
ws.binaryType = 'blob';
const stats = document.getElementById('stats');
ws.onmessage = (e) => {
  if (typeof e.data === 'string') {
    const s = JSON.parse(e.data);
    stats.textContent = s.state + '  frames ' + s.frames_displayed +
      '  skipped ' + s.frames_skipped + '  snapshots ' + s.snapshots_saved + '  up ' + s.uptime;
    return;
  }
  const url = URL.createObjectURL(e.data);
  img.onload = () => URL.revokeObjectURL(url);
  img.src = url;
};
</script>
</body>
</html>
`

// Package web provides an optional live preview of the viewer: a JPEG
// websocket stream of every displayed frame, a status endpoint, and remote
// quit/save keys for hosts without a keyboard.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/rsviewer/pkg/debug"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/hub"
	"github.com/teslashibe/rsviewer/pkg/viewer"
)

// Config holds preview server configuration.
type Config struct {
	// Addr is the listen address (e.g., ":8090").
	Addr string `json:"addr"`

	// JPEGQuality is the preview encoding quality (1-100).
	// Default: 75
	JPEGQuality int `json:"jpeg_quality"`
}

// DefaultConfig returns the default preview configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8090",
		JPEGQuality: 75,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("web addr must not be empty")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be in [1,100], got %d", c.JPEGQuality)
	}
	return nil
}

// statsInterval is how often preview clients receive viewer counters.
const statsInterval = time.Second

// StatsSource reports viewer counters for /api/status.
type StatsSource interface {
	Stats() viewer.Stats
}

// Server is the preview server
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	// Source of /api/status, set with SetSource once the viewer exists
	source StatsSource

	// Hub for preview broadcast
	preview *hub.Hub

	// Latest frame awaiting encoding; older frames are dropped
	frames chan image.Image

	// Remote key presses for the viewer loop
	keys chan display.Key

	// Period of the JSON counters pushed to preview clients
	statsEvery time.Duration
}

// NewServer creates a new preview server
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger.With("component", "web"),
		preview: hub.New("preview", logger),
		frames:  make(chan image.Image, 1),
		keys:    make(chan display.Key, 4),

		statsEvery: statsInterval,
	}

	app := fiber.New(fiber.Config{
		AppName:               "RealSense Viewer",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/keys/:key", s.handleKey)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/preview", websocket.New(s.handlePreviewWS))

	s.app = app
	return s, nil
}

// SetSource sets the status source. Call before Start.
func (s *Server) SetSource(src StatsSource) {
	s.source = src
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	fmt.Printf("🌐 Preview: http://%s\n", displayAddr(ln.Addr()))
	return s.Serve(ctx, ln)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Warn("preview server stopped", "error", err)
		}
	}()
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.preview.Run(ctx)
	go s.encodeFrames(ctx)
	go s.pushStats(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(2 * time.Second); err != nil {
			s.logger.Warn("preview shutdown", "error", err)
		}
	}()

	debug.Log("preview server listening on %s\n", ln.Addr())
	return s.app.Listener(ln)
}

// Publish hands a displayed frame to the encoder. It never blocks and
// does nothing while the server is down or no preview client is connected.
func (s *Server) Publish(img image.Image) {
	if !s.preview.IsRunning() || s.preview.ClientCount() == 0 {
		return
	}
	select {
	case s.frames <- img:
	default:
		// Encoder still busy with the previous frame
	}
}

// Keys returns remote key presses for the viewer loop.
func (s *Server) Keys() <-chan display.Key {
	return s.keys
}

func (s *Server) encodeFrames(ctx context.Context) {
	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return
		case img := <-s.frames:
			buf.Reset()
			if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.cfg.JPEGQuality)); err != nil {
				s.logger.Warn("preview encode failed", "error", err)
				continue
			}
			// Hub clients keep the slice, so hand over a copy
			s.preview.BroadcastBinary(bytes.Clone(buf.Bytes()))
		}
	}
}

// pushStats sends the status body to preview clients as a JSON text
// message every statsEvery, while a source is set and clients are connected.
func (s *Server) pushStats(ctx context.Context) {
	ticker := time.NewTicker(s.statsEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.source == nil || s.preview.ClientCount() == 0 {
				continue
			}
			if err := s.preview.BroadcastJSON(s.status()); err != nil {
				s.logger.Warn("preview stats encode failed", "error", err)
			}
		}
	}
}

func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return addr.String()
	}
	return fmt.Sprintf("localhost:%d", tcp.Port)
}

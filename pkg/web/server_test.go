package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	gorilla "github.com/gorilla/websocket"
	"github.com/teslashibe/rsviewer/pkg/display"
	"github.com/teslashibe/rsviewer/pkg/realsense"
	"github.com/teslashibe/rsviewer/pkg/viewer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	stats viewer.Stats
}

func (f fakeSource) Stats() viewer.Stats { return f.stats }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(DefaultConfig(), quietLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "empty addr", cfg: Config{JPEGQuality: 75}, wantErr: true},
		{name: "quality zero", cfg: Config{Addr: ":1", JPEGQuality: 0}, wantErr: true},
		{name: "quality too high", cfg: Config{Addr: ":1", JPEGQuality: 101}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status without source = %d, want 503", resp.StatusCode)
	}

	s.SetSource(fakeSource{stats: viewer.Stats{
		SessionID:       "abc",
		Backend:         "mock",
		State:           viewer.StateStreaming,
		Devices:         []realsense.Device{{Name: "Device-A", SerialNumber: "123"}},
		FramesDisplayed: 42,
		StartedAt:       time.Now(),
	}})

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		SessionID       string             `json:"session_id"`
		State           string             `json:"state"`
		FramesDisplayed uint64             `json:"frames_displayed"`
		Devices         []realsense.Device `json:"devices"`
		Uptime          string             `json:"uptime"`
		PreviewClients  int                `json:"preview_clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SessionID != "abc" || body.State != "streaming" || body.FramesDisplayed != 42 {
		t.Errorf("unexpected body: %+v", body)
	}
	if len(body.Devices) != 1 || body.Devices[0].SerialNumber != "123" {
		t.Errorf("devices = %+v", body.Devices)
	}
	if body.Uptime == "" || body.PreviewClients != 0 {
		t.Errorf("uptime=%q clients=%d", body.Uptime, body.PreviewClients)
	}
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		path    string
		want    int
		wantKey display.Key
	}{
		{path: "/api/keys/q", want: http.StatusAccepted, wantKey: display.KeyQuit},
		{path: "/api/keys/S", want: http.StatusAccepted, wantKey: display.KeySave},
		{path: "/api/keys/save", want: http.StatusAccepted, wantKey: display.KeySave},
		{path: "/api/keys/x", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := newTestServer(t)
			resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, tt.path, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.wantKey == display.KeyNone {
				if len(s.keys) != 0 {
					t.Error("rejected key was queued")
				}
				return
			}
			select {
			case k := <-s.Keys():
				if k != tt.wantKey {
					t.Errorf("key = %v, want %v", k, tt.wantKey)
				}
			default:
				t.Error("no key queued")
			}
		})
	}
}

func TestHandleKey_QueueFull(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < cap(s.keys); i++ {
		s.keys <- display.KeySave
	}

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/api/keys/q", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestPreviewRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/ws/preview", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("/ws/preview")) {
		t.Errorf("status=%d body=%q", resp.StatusCode, body)
	}
}

func TestPublish_NoClientsIsNoop(t *testing.T) {
	s := newTestServer(t)
	s.Publish(image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	if len(s.frames) != 0 {
		t.Error("frame queued with no preview clients")
	}
}

func TestPreviewStream(t *testing.T) {
	s := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)

	url := "ws://" + ln.Addr().String() + "/ws/preview"
	var ws *gorilla.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		ws, _, err = gorilla.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer ws.Close()

	for s.preview.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	frame := imaging.New(16, 8, color.NRGBA{R: 255, A: 255})
	s.Publish(frame)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != gorilla.BinaryMessage {
		t.Fatalf("message type = %d, want binary", mt)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	if img.Bounds().Size() != image.Pt(16, 8) {
		t.Errorf("preview size = %v, want 16x8", img.Bounds().Size())
	}
	r, g, b, _ := img.At(4, 4).RGBA()
	if r>>8 < 200 || g>>8 > 60 || b>>8 > 60 {
		t.Errorf("preview pixel = %d,%d,%d, want red", r>>8, g>>8, b>>8)
	}
}

func TestPreviewStats(t *testing.T) {
	s := newTestServer(t)
	s.statsEvery = 20 * time.Millisecond
	s.SetSource(fakeSource{stats: viewer.Stats{
		SessionID:       "abc",
		State:           viewer.StateStreaming,
		FramesDisplayed: 7,
		SnapshotsSaved:  1,
		StartedAt:       time.Now(),
	}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx, ln)

	url := "ws://" + ln.Addr().String() + "/ws/preview"
	var ws *gorilla.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		ws, _, err = gorilla.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != gorilla.TextMessage {
		t.Fatalf("message type = %d, want text", mt)
	}

	var body struct {
		SessionID       string `json:"session_id"`
		FramesDisplayed uint64 `json:"frames_displayed"`
		SnapshotsSaved  uint64 `json:"snapshots_saved"`
		PreviewClients  int    `json:"preview_clients"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if body.SessionID != "abc" || body.FramesDisplayed != 7 || body.SnapshotsSaved != 1 || body.PreviewClients != 1 {
		t.Errorf("unexpected stats: %+v", body)
	}

	// Delivered counts the message just received
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	var status struct {
		PreviewMessages int64 `json:"preview_messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.PreviewMessages < 1 {
		t.Errorf("preview_messages = %d, want >= 1", status.PreviewMessages)
	}
}

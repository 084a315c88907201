package snapshot

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ColorPath != "/tmp/realsense_color.png" || cfg.DepthPath != "/tmp/realsense_depth.png" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if got := cfg.Pattern(); got != "/tmp/realsense_*.png" {
		t.Errorf("Pattern() = %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty color", cfg: Config{DepthPath: "/tmp/d.png"}, wantErr: true},
		{name: "same path", cfg: Config{ColorPath: "/tmp/a.png", DepthPath: "/tmp/a.png"}, wantErr: true},
		{name: "jpeg", cfg: Config{ColorPath: "/tmp/a.jpg", DepthPath: "/tmp/b.png"}, wantErr: true},
		{name: "upper case ext", cfg: Config{ColorPath: "/tmp/a.PNG", DepthPath: "/tmp/b.png"}},
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

func TestConfig_PatternFallback(t *testing.T) {
	cfg := Config{ColorPath: "/a/x.png", DepthPath: "/b/y.png"}
	if got := cfg.Pattern(); got != "/a/x.png, /b/y.png" {
		t.Errorf("Pattern() = %q", got)
	}
}

func TestWriter_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ColorPath: filepath.Join(dir, "color.png"),
		DepthPath: filepath.Join(dir, "depth.png"),
	}
	w, err := NewWriter(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	colorImg := imaging.New(4, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	depthImg := imaging.New(5, 2, color.NRGBA{R: 200, A: 255})

	// Save twice: the second write overwrites.
	for i := 0; i < 2; i++ {
		paths, err := w.Save(colorImg, depthImg)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if paths.Color != cfg.ColorPath || paths.Depth != cfg.DepthPath {
			t.Errorf("paths = %+v", paths)
		}
	}

	checks := []struct {
		path string
		want *image.NRGBA
	}{
		{cfg.ColorPath, colorImg},
		{cfg.DepthPath, depthImg},
	}
	for _, c := range checks {
		got, err := imaging.Open(c.path)
		if err != nil {
			t.Fatalf("open %s: %v", c.path, err)
		}
		if got.Bounds().Size() != c.want.Bounds().Size() {
			t.Fatalf("%s size = %v, want %v", c.path, got.Bounds().Size(), c.want.Bounds().Size())
		}
		r, g, b, _ := got.At(0, 0).RGBA()
		wr, wg, wb, _ := c.want.At(0, 0).RGBA()
		if r != wr || g != wg || b != wb {
			t.Errorf("%s pixel = %d,%d,%d want %d,%d,%d", c.path, r>>8, g>>8, b>>8, wr>>8, wg>>8, wb>>8)
		}
	}
}

func TestWriter_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	w, err := NewWriter(Config{
		ColorPath: filepath.Join(dir, "c.png"),
		DepthPath: filepath.Join(dir, "d.png"),
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	img := imaging.New(1, 1, color.NRGBA{A: 255})
	if _, err := w.Save(img, img); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}

func TestWriter_NilImage(t *testing.T) {
	w, _ := NewWriter(DefaultConfig(), quietLogger())
	if _, err := w.Save(nil, nil); err == nil {
		t.Error("expected error for nil images")
	}
}

package camera

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultStreamConfig(t *testing.T) {
	cfg := DefaultStreamConfig()

	want := StreamConfig{
		Depth: Profile{Stream: StreamDepth, Width: 640, Height: 480, Format: FormatZ16, FPS: 30},
		Color: Profile{Stream: StreamColor, Width: 640, Height: 480, Format: FormatBGR8, FPS: 30},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("DefaultStreamConfig() mismatch (-want +got):\n%s", diff)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestStreamConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*StreamConfig)
		wantErrs int
	}{
		{name: "default", mutate: func(*StreamConfig) {}},
		{name: "zero width", mutate: func(c *StreamConfig) { c.Depth.Width = 0 }, wantErrs: 1},
		{name: "too tall", mutate: func(c *StreamConfig) { c.Color.Height = 5000 }, wantErrs: 1},
		{name: "bad fps", mutate: func(c *StreamConfig) { c.Color.FPS = 0; c.Depth.FPS = 500 }, wantErrs: 2},
		{name: "depth wrong format", mutate: func(c *StreamConfig) { c.Depth.Format = FormatBGR8 }, wantErrs: 1},
		{name: "color wrong format", mutate: func(c *StreamConfig) { c.Color.Format = FormatZ16 }, wantErrs: 1},
		{name: "rgb color", mutate: func(c *StreamConfig) { c.Color.Format = FormatRGB8 }},
		{name: "swapped streams", mutate: func(c *StreamConfig) { c.Depth.Stream = StreamColor }, wantErrs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultStreamConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
			if (cfg.Err() != nil) != (tt.wantErrs > 0) {
				t.Errorf("Err() = %v", cfg.Err())
			}
		})
	}
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	if diff := cmp.Diff([]string{PresetDefault, PresetHigh, PresetLow}, names); diff != "" {
		t.Errorf("PresetNames() mismatch (-want +got):\n%s", diff)
	}

	for _, name := range names {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("GetPreset(%q) = nil", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}

	if GetPreset("4k") != nil {
		t.Error("GetPreset(4k) should be nil")
	}
}

func TestProfile_String(t *testing.T) {
	p := DefaultStreamConfig().Depth
	if got, want := p.String(), "depth 640x480 z16@30"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

package camera

import "sort"

// Preset names for common stream configurations
const (
	PresetDefault = "default"
	PresetHigh    = "high"
	PresetLow     = "low"
)

// Presets returns all available preset configurations.
func Presets() map[string]StreamConfig {
	return map[string]StreamConfig{
		PresetDefault: DefaultStreamConfig(),
		PresetHigh:    HighStreamConfig(),
		PresetLow:     LowStreamConfig(),
	}
}

// PresetNames returns the sorted list of preset names.
func PresetNames() []string {
	names := make([]string, 0, 3)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *StreamConfig {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HighStreamConfig returns 1280x720 on both streams.
// USB 3 only.
func HighStreamConfig() StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.Depth.Width, cfg.Depth.Height = 1280, 720
	cfg.Color.Width, cfg.Color.Height = 1280, 720
	return cfg
}

// LowStreamConfig returns the smallest modes at 15 fps, usable on USB 2.
// Depth and color heights differ, so the display buffer resizes color.
func LowStreamConfig() StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.Depth.Width, cfg.Depth.Height = 480, 270
	cfg.Color.Width, cfg.Color.Height = 424, 240
	cfg.Depth.FPS = 15
	cfg.Color.FPS = 15
	return cfg
}

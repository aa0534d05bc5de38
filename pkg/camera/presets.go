package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	Preset360p    = "360p"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetNight   = "night"
	PresetBright  = "bright"
	PresetZoom2x  = "zoom2x"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset360p:    LowResConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetNight:   NightModeConfig(),
		PresetBright:  BrightModeConfig(),
		PresetZoom2x:  Zoom2xConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		Preset360p,
		Preset720p,
		Preset1080p,
		PresetNight,
		PresetBright,
		PresetZoom2x,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowResConfig returns 640x360 for slow machines.
func LowResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 360
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
// Most webcams drop to 15 FPS here.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Framerate = 15
	return cfg
}

// NightModeConfig returns configuration for dim rooms: a long manual
// exposure and raised brightness.
func NightModeConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	cfg.AutoExposure = false
	cfg.Exposure = -4
	cfg.Brightness = 0.65
	return cfg
}

// BrightModeConfig returns configuration for bright scenes.
func BrightModeConfig() Config {
	cfg := DefaultConfig()
	cfg.AutoExposure = false
	cfg.Exposure = -8
	cfg.Brightness = 0.4
	return cfg
}

// Zoom2xConfig returns 2x zoom configuration.
func Zoom2xConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoomLevel = 2.0
	return cfg
}

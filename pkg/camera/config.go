// Package camera provides the local webcam frame source and its
// runtime-configurable capture settings.
package camera

// Config holds all capture configuration parameters.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Exposure ===
	// AutoExposure lets the driver pick exposure. When false, Exposure is
	// applied as-is.
	AutoExposure bool `json:"auto_exposure"`

	// Exposure is the driver exposure value. Units are backend specific;
	// V4L2 uses log2 seconds (-13 to -1).
	Exposure float64 `json:"exposure"`

	// Brightness adjustment (0.0 to 1.0), 0.5 is neutral.
	Brightness float64 `json:"brightness"`

	// === Zoom and focus ===
	// ZoomLevel is the requested zoom factor (1.0 to 4.0).
	ZoomLevel float64 `json:"zoom_level"`

	// Autofocus enables continuous autofocus when the device supports it.
	Autofocus bool `json:"autofocus"`
}

// Capture limits.
const (
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFramerate = 120
	MaxZoom      = 4.0
)

// DefaultConfig returns the standard 640x480 configuration, the size
// the overlay renders at.
func DefaultConfig() Config {
	return Config{
		Width:     640,
		Height:    480,
		Framerate: 30,
		Quality:   85,

		AutoExposure: true,
		Exposure:     -6,
		Brightness:   0.5,

		ZoomLevel: 1.0,
		Autofocus: true,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	// Resolution
	if c.Width < 160 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < 120 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	// Exposure
	if !c.AutoExposure && (c.Exposure < -13 || c.Exposure > 0) {
		errors = append(errors, "exposure must be between -13 and 0 when auto_exposure is off")
	}

	// Brightness
	if c.Brightness < 0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between 0.0 and 1.0")
	}

	// Zoom
	if c.ZoomLevel < 1.0 || c.ZoomLevel > MaxZoom {
		errors = append(errors, "zoom_level must be between 1.0 and 4.0")
	}

	return errors
}

// Capabilities returns the capture limits.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_width":     MaxWidth,
		"max_height":    MaxHeight,
		"max_framerate": MaxFramerate,
		"max_zoom":      MaxZoom,
		"presets":       PresetNames(),
	}
}

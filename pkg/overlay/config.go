// Package overlay wires the frame source, pose estimator, render loop
// and dashboard into the creature overlay application.
package overlay

import (
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-creatures/internal/config"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

// Frame sources.
const (
	SourceWebcam = "webcam"
	SourceWebRTC = "webrtc"
	SourceIngest = "ingest"
)

// Config holds all configuration for the overlay application.
// Flag parsing is done in cmd/creatures/main.go; this struct is data only.
type Config struct {
	// Debug starts with the debug overlay on and enables debug.Log output.
	Debug bool

	// DebugFrames logs every render tick.
	DebugFrames bool

	// Port is the dashboard and API port.
	Port int

	// Source selects where frames come from: webcam, webrtc or ingest.
	Source string

	// Webcam settings.
	CameraDevice string
	CameraPreset string

	// RemoteHost is the WebRTC signalling host for the webrtc source.
	RemoteHost string

	// Model files and where to fetch them when missing.
	ModelDir     string
	ModelBaseURL string

	// Initial selections.
	Mode     pose.Mode
	Creature string

	// Render surface size.
	Width  int
	Height int

	// RefreshInterval is the render loop period.
	RefreshInterval time.Duration

	// LogLevel is debug, info, warn or error.
	LogLevel string

	// StaticDir is served at / when set.
	StaticDir string
}

// DefaultConfig returns sensible defaults. Fields left empty are filled
// from the environment by LoadEnvConfig.
func DefaultConfig() Config {
	return Config{
		Mode:            pose.SinglePose,
		Width:           640,
		Height:          480,
		RefreshInterval: 16 * time.Millisecond,
	}
}

// LoadEnvConfig fills unset fields from environment variables.
// Call this after flag parsing so flags win.
func (c *Config) LoadEnvConfig() {
	if c.Port == 0 {
		c.Port = config.Port()
	}
	if c.Source == "" {
		c.Source = config.Source()
	}
	if c.CameraDevice == "" {
		c.CameraDevice = config.CameraDevice()
	}
	if c.CameraPreset == "" {
		c.CameraPreset = config.CameraPreset()
	}
	if c.RemoteHost == "" {
		c.RemoteHost = config.RemoteCameraHost()
	}
	if c.ModelDir == "" {
		c.ModelDir = config.ModelDir()
	}
	if c.ModelBaseURL == "" {
		c.ModelBaseURL = config.ModelBaseURL()
	}
	if c.LogLevel == "" {
		c.LogLevel = config.LogLevel()
	}
	if c.StaticDir == "" {
		if _, err := os.Stat("web"); err == nil {
			c.StaticDir = "web"
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceWebcam, SourceIngest:
	case SourceWebRTC:
		if c.RemoteHost == "" {
			return &ConfigError{Field: "RemoteHost", Message: "REMOTE_CAMERA_HOST is required for the webrtc source"}
		}
	default:
		return &ConfigError{Field: "Source", Message: fmt.Sprintf("unknown source %q (want webcam, webrtc or ingest)", c.Source)}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Field: "Port", Message: fmt.Sprintf("invalid port %d", c.Port)}
	}
	if c.Width <= 0 || c.Height <= 0 {
		return &ConfigError{Field: "Size", Message: fmt.Sprintf("invalid canvas size %dx%d", c.Width, c.Height)}
	}
	if c.ModelDir == "" {
		return &ConfigError{Field: "ModelDir", Message: "model directory is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Package config provides environment helpers for go-creatures commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults used when the matching environment variable is unset.
const (
	DefaultPort         = 8181
	DefaultSource       = "webcam"
	DefaultCameraDevice = "0"
	DefaultModelDir     = "models"
	DefaultModelBaseURL = "https://storage.googleapis.com/creatures-models/movenet"
	DefaultLogLevel     = "info"
)

// String returns the env var named key, or def if it is unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env var named key parsed as an int, or def if it is
// unset or not a number.
func Int(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the env var named key parsed as a bool, or def.
func Bool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Duration returns the env var named key parsed by time.ParseDuration, or def.
func Duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Port returns CREATURES_PORT or the default port.
func Port() int {
	return Int("CREATURES_PORT", DefaultPort)
}

// Source returns CREATURES_SOURCE (webcam, webrtc or ingest).
func Source() string {
	return String("CREATURES_SOURCE", DefaultSource)
}

// CameraDevice returns CAMERA_DEVICE, a capture device index or path.
func CameraDevice() string {
	return String("CAMERA_DEVICE", DefaultCameraDevice)
}

// CameraPreset returns CAMERA_PRESET, or "" if unset.
func CameraPreset() string {
	return os.Getenv("CAMERA_PRESET")
}

// RemoteCameraHost returns REMOTE_CAMERA_HOST, the WebRTC signalling host.
func RemoteCameraHost() string {
	return os.Getenv("REMOTE_CAMERA_HOST")
}

// ModelDir returns MODEL_DIR or the default model directory.
func ModelDir() string {
	return String("MODEL_DIR", DefaultModelDir)
}

// ModelBaseURL returns MODEL_BASE_URL or the default download location.
func ModelBaseURL() string {
	return String("MODEL_BASE_URL", DefaultModelBaseURL)
}

// LogLevel returns LOG_LEVEL or "info".
func LogLevel() string {
	return String("LOG_LEVEL", DefaultLogLevel)
}

// Creatures - draws cartoon creatures over the people a camera sees,
// driven by MoveNet pose estimation.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-creatures/pkg/overlay"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

func main() {
	cfg := parseFlags()

	app, err := overlay.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
// Unset flags fall back to environment variables in overlay.New.
func parseFlags() overlay.Config {
	cfg := overlay.DefaultConfig()

	debug := flag.Bool("debug", false, "Start with the debug overlay and verbose logging")
	debugFrames := flag.Bool("debug-frames", false, "Log every render tick (very verbose)")
	port := flag.Int("port", 0, "Dashboard port (overrides CREATURES_PORT)")
	source := flag.String("source", "", "Frame source: webcam, webrtc or ingest (overrides CREATURES_SOURCE)")
	device := flag.String("camera", "", "Capture device index or path (overrides CAMERA_DEVICE)")
	preset := flag.String("camera-preset", "", "Camera preset name (overrides CAMERA_PRESET)")
	remote := flag.String("remote-host", "", "WebRTC signalling host (overrides REMOTE_CAMERA_HOST)")
	models := flag.String("models", "", "Model directory (overrides MODEL_DIR)")
	mode := flag.String("mode", cfg.Mode.String(), "Initial mode: single or multi")
	creature := flag.String("creature", "", "Initial creature: blob, ghost or bug")
	width := flag.Int("width", cfg.Width, "Render width")
	height := flag.Int("height", cfg.Height, "Render height")
	refresh := flag.Duration("refresh", cfg.RefreshInterval, "Render loop interval")
	level := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	static := flag.String("static", "", "Directory served at / (default ./web when present)")

	flag.Parse()

	m, err := pose.ParseMode(*mode)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	cfg.Debug, cfg.DebugFrames = *debug, *debugFrames
	cfg.Port, cfg.Source = *port, *source
	cfg.CameraDevice, cfg.CameraPreset, cfg.RemoteHost = *device, *preset, *remote
	cfg.ModelDir = *models
	cfg.Mode, cfg.Creature = m, *creature
	cfg.Width, cfg.Height, cfg.RefreshInterval = *width, *height, *refresh
	cfg.LogLevel, cfg.StaticDir = *level, *static
	if *debug && cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	return cfg
}

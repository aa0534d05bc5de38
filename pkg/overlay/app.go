package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/camera"
	"github.com/teslashibe/go-creatures/pkg/canvas"
	"github.com/teslashibe/go-creatures/pkg/controls"
	"github.com/teslashibe/go-creatures/pkg/creature"
	"github.com/teslashibe/go-creatures/pkg/debug"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/estimator/movenet"
	"github.com/teslashibe/go-creatures/pkg/scheduler"
	"github.com/teslashibe/go-creatures/pkg/video"
	"github.com/teslashibe/go-creatures/pkg/web"
)

// shutdownTimeout bounds how long Shutdown waits for each component.
const shutdownTimeout = 5 * time.Second

// Option customises an App.
type Option func(*App)

// WithBackend replaces the MoveNet estimator backend.
func WithBackend(b estimator.Backend) Option {
	return func(a *App) { a.backend = b }
}

// App is the main overlay application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	// Pose pipeline
	backend   estimator.Backend
	lifecycle *estimator.Lifecycle
	creatures *creature.Registry
	controls  *controls.Controls
	canvas    *canvas.Canvas
	scheduler *scheduler.Scheduler

	// Frame source, one of capture, remote or ingest
	source        video.Source
	capture       *camera.Capture
	cameraManager *camera.Manager
	remote        *video.Client
	ingest        *video.Ingest

	// Web dashboard
	webServer *web.Server
	logSink   atomic.Pointer[web.Server]

	wg sync.WaitGroup
}

// New creates the application with the given configuration.
func New(cfg Config, opts ...Option) (*App, error) {
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Init(cfg.LogLevel)
	debug.Enabled = cfg.Debug
	debug.Frames = cfg.DebugFrames

	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	// Install the dashboard hook before any component logger exists;
	// loggers capture their handler when created.
	log.SetHook(func(r slog.Record) {
		if s := a.logSink.Load(); s != nil {
			s.AddLogRecord(r)
		}
	})
	a.logger = log.Component("overlay")

	return a, nil
}

// Init initializes all components.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	fmt.Println("🐾 Creatures - pose-driven creature overlay")
	fmt.Println("===========================================")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	fmt.Print("🔧 Initializing pipeline... ")
	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("pipeline init: %w", err)
	}
	fmt.Println("✅")

	a.initWeb()

	fmt.Printf("📹 Opening %s source... ", a.config.Source)
	if err := a.initSource(ctx); err != nil {
		return fmt.Errorf("%s source: %w", a.config.Source, err)
	}
	fmt.Println("✅")

	a.scheduler = scheduler.New(
		scheduler.Config{RefreshInterval: a.config.RefreshInterval},
		a.lifecycle, a.source, a.canvas, a.creatures, a.controls,
	)

	return nil
}

// initPipeline builds the estimator lifecycle, creature registry,
// controls and canvas.
func (a *App) initPipeline() error {
	if a.backend == nil {
		mcfg := movenet.DefaultConfig()
		mcfg.ModelDir = a.config.ModelDir
		mcfg.BaseURL = a.config.ModelBaseURL
		a.backend = movenet.New(mcfg)
	}
	a.lifecycle = estimator.NewLifecycle(context.Background(), a.backend)

	a.creatures = creature.Builtin()
	a.controls = controls.New(a.creatures, a.lifecycle)
	if a.config.Creature != "" {
		if err := a.controls.SetCreature(a.config.Creature); err != nil {
			return &ConfigError{Field: "Creature", Message: err.Error()}
		}
	}
	a.controls.SetDebug(a.config.Debug)

	ccfg := canvas.DefaultConfig()
	ccfg.Width, ccfg.Height = a.config.Width, a.config.Height
	c, err := canvas.New(ccfg)
	if err != nil {
		return err
	}
	a.canvas = c
	return nil
}

// initWeb creates the dashboard and routes state, frames and logs to it.
func (a *App) initWeb() {
	opts := web.Options{
		Port:      strconv.Itoa(a.config.Port),
		Controls:  a.controls,
		Surface:   a.canvas,
		Stats:     a.Stats,
		StaticDir: a.config.StaticDir,
	}
	if a.config.Source == SourceWebcam {
		a.cameraManager = camera.NewManager()
		opts.Camera = a.cameraManager
	}
	a.webServer = web.NewServer(opts)
	a.logSink.Store(a.webServer)

	a.canvas.OnPresent(a.webServer.PublishFrame)
	a.controls.OnChange(a.webServer.PublishState)
	a.lifecycle.OnChange(func(estimator.Status) {
		a.webServer.PublishState(a.controls.State())
	})
}

// initSource opens the configured frame source.
func (a *App) initSource(ctx context.Context) error {
	switch a.config.Source {
	case SourceWebcam:
		cfg := a.cameraManager.GetConfig()
		if a.config.CameraPreset != "" {
			preset := camera.GetPreset(a.config.CameraPreset)
			if preset == nil {
				return fmt.Errorf("unknown camera preset %q", a.config.CameraPreset)
			}
			cfg = *preset
			if err := a.cameraManager.SetConfig(cfg); err != nil {
				return err
			}
		}
		a.capture = camera.NewCapture(a.config.CameraDevice, cfg)
		if err := a.capture.Open(); err != nil {
			return err
		}
		a.cameraManager.OnConfigChange = a.capture.Apply
		a.source = a.capture

	case SourceWebRTC:
		a.remote = video.NewClient(video.DefaultClientConfig(a.config.RemoteHost))
		if err := a.remote.Connect(ctx); err != nil {
			return err
		}
		a.source = a.remote

	case SourceIngest:
		a.ingest = video.NewIngest()
		a.ingest.RegisterRoutes(a.webServer.App())
		a.source = a.ingest
	}
	return nil
}

// Run starts the dashboard and source, requests the initial estimator
// and runs the render loop. Blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.webServer.Start(ctx); err != nil {
			a.logger.Error("web server stopped", "error", err)
		}
	}()

	if a.capture != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.capture.Run(ctx); err != nil {
				a.logger.Error("camera stopped", "error", err)
			}
		}()
	}

	if err := a.lifecycle.RequestMode(a.config.Mode); err != nil {
		return fmt.Errorf("request %s estimator: %w", a.config.Mode, err)
	}

	fmt.Printf("\n👀 Watching for people in %s mode! Dashboard on http://localhost:%d\n", a.config.Mode, a.config.Port)
	fmt.Println("   (Ctrl+C to exit)")

	if err := a.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stats gathers counters from every component for /api/status.
func (a *App) Stats() any {
	stats := map[string]any{
		"lifecycle": a.lifecycle.Stats(),
	}
	if a.scheduler != nil {
		stats["scheduler"] = a.scheduler.Stats()
	}
	switch {
	case a.capture != nil:
		stats["source"] = a.capture.Stats()
	case a.remote != nil:
		stats["source"] = a.remote.Stats()
	case a.ingest != nil:
		stats["source"] = a.ingest.Stats()
	}
	return stats
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.webServer != nil {
		if err := a.webServer.Shutdown(ctx); err != nil {
			a.logger.Warn("web shutdown", "error", err)
		}
	}
	if a.lifecycle != nil {
		if err := a.lifecycle.Close(ctx); err != nil {
			a.logger.Warn("estimator shutdown", "error", err)
		}
	}

	a.wg.Wait()
	a.logSink.Store(nil)

	if a.capture != nil {
		a.capture.Close()
	}
	if a.remote != nil {
		a.remote.Close()
	}
	if a.canvas != nil {
		a.canvas.Close()
	}
}

// Package web serves the overlay control API and the dashboard
// websocket streams.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/camera"
	"github.com/teslashibe/go-creatures/pkg/controls"
	"github.com/teslashibe/go-creatures/pkg/hub"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

// maxLogs is how many log entries the server keeps for /api/logs.
const maxLogs = 500

// Controls is the control surface the API drives. It is satisfied by
// *controls.Controls.
type Controls interface {
	State() controls.State
	ToggleDebug() bool
	NextCreature() string
	SetCreature(name string) error
	ToggleMode() (pose.Mode, error)
	SetMode(mode pose.Mode) error
	Retry() error
}

// Surface is the resizable render target.
type Surface interface {
	Size() pose.Dims
	Resize(width, height int) error
}

// Options wires the server to the rest of the app. Camera and Stats
// may be nil.
type Options struct {
	Port      string
	Controls  Controls
	Surface   Surface
	Camera    *camera.Manager
	Stats     func() any
	StaticDir string
}

// LogEntry is a log line for the dashboard.
type LogEntry struct {
	Time      string         `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Server is the dashboard and control API server.
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger

	logs   []LogEntry
	logsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates the server and mounts its routes.
func NewServer(opts Options) *Server {
	s := &Server{
		opts:      opts,
		logger:    log.Component("web"),
		logs:      make([]LogEntry, 0, maxLogs),
		statusHub: hub.New("status", hub.WithRetain()),
		logHub:    hub.New("logs"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Creatures",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/debug/toggle", s.handleToggleDebug)
	api.Post("/creature/next", s.handleNextCreature)
	api.Put("/creature/:name", s.handleSetCreature)
	api.Post("/mode/toggle", s.handleToggleMode)
	api.Put("/mode/:mode", s.handleSetMode)
	api.Post("/estimator/retry", s.handleRetry)
	api.Post("/canvas", s.handleResize)
	api.Get("/camera", s.handleGetCamera)
	api.Put("/camera", s.handleUpdateCamera)
	api.Post("/camera/preset/:name", s.handleCameraPreset)
	api.Get("/logs", s.handleGetLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App exposes the fiber app so other components can mount routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and listens until Shutdown. It blocks.
func (s *Server) Start(ctx context.Context) error {
	fmt.Printf("🌐 Dashboard: http://localhost:%s\n", s.opts.Port)

	s.RunHubs(ctx)
	return s.app.Listen(":" + s.opts.Port)
}

// RunHubs starts the broadcast hubs; they stop with ctx.
func (s *Server) RunHubs(ctx context.Context) {
	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.cameraHub.Run(ctx)
}

// PublishState sends a controls snapshot to /ws/status clients.
func (s *Server) PublishState(state controls.State) {
	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.logger.Warn("status encode failed", "error", err)
	}
}

// PublishFrame sends a rendered JPEG to /ws/camera clients.
func (s *Server) PublishFrame(jpeg []byte) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(jpeg)
}

// AddLogRecord stores a log record and streams it to /ws/logs clients.
// It matches the internal/log hook signature.
func (s *Server) AddLogRecord(r slog.Record) {
	entry := LogEntry{
		Time:    r.Time.Format("15:04:05.000"),
		Level:   r.Level.String(),
		Message: r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			entry.Component = a.Value.String()
			return true
		}
		if entry.Attrs == nil {
			entry.Attrs = make(map[string]any)
		}
		v := a.Value.Resolve().Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry.Attrs[a.Key] = v
		return true
	})
	s.AddLog(entry)
}

// AddLog adds a log entry and broadcasts it.
func (s *Server) AddLog(entry LogEntry) {
	if entry.Time == "" {
		entry.Time = time.Now().Format("15:04:05.000")
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// Logs returns a copy of the buffered log entries.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

// HubStats returns the counters of every hub.
func (s *Server) HubStats() []hub.Stats {
	return []hub.Stats{s.statusHub.Stats(), s.logHub.Stats(), s.cameraHub.Stats()}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

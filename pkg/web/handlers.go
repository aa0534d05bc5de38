package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-creatures/pkg/camera"
	"github.com/teslashibe/go-creatures/pkg/controls"
	"github.com/teslashibe/go-creatures/pkg/creature"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/hub"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

// errorHandler renders every error as {"error": "..."}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, creature.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, estimator.ErrClosed):
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Controls controls.State `json:"controls"`
	Canvas   pose.Dims      `json:"canvas"`
	Stats    any            `json:"stats,omitempty"`
	Hubs     []hub.Stats    `json:"hubs"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		Controls: s.opts.Controls.State(),
		Hubs:     s.HubStats(),
	}
	if s.opts.Surface != nil {
		resp.Canvas = s.opts.Surface.Size()
	}
	if s.opts.Stats != nil {
		resp.Stats = s.opts.Stats()
	}
	return c.JSON(resp)
}

func (s *Server) handleToggleDebug(c *fiber.Ctx) error {
	on := s.opts.Controls.ToggleDebug()
	return c.JSON(fiber.Map{"debug": on})
}

func (s *Server) handleNextCreature(c *fiber.Ctx) error {
	name := s.opts.Controls.NextCreature()
	return c.JSON(fiber.Map{"creature": name})
}

func (s *Server) handleSetCreature(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.opts.Controls.SetCreature(name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"creature": name})
}

func (s *Server) handleToggleMode(c *fiber.Ctx) error {
	mode, err := s.opts.Controls.ToggleMode()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"mode": mode})
}

func (s *Server) handleSetMode(c *fiber.Ctx) error {
	mode, err := pose.ParseMode(c.Params("mode"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.opts.Controls.SetMode(mode); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"mode": mode})
}

func (s *Server) handleRetry(c *fiber.Ctx) error {
	if err := s.opts.Controls.Retry(); err != nil {
		return err
	}
	return c.JSON(s.opts.Controls.State())
}

// ResizeRequest is the body of POST /api/canvas.
type ResizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleResize(c *fiber.Ctx) error {
	if s.opts.Surface == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no render surface")
	}
	var req ResizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := s.opts.Surface.Resize(req.Width, req.Height); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"width": req.Width, "height": req.Height, "pending": true})
}

func (s *Server) cameraManager() (*camera.Manager, error) {
	if s.opts.Camera == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "no local camera")
	}
	return s.opts.Camera, nil
}

func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	m, err := s.cameraManager()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"config":       m.GetConfigJSON(),
		"capabilities": camera.Capabilities(),
	})
}

func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	m, err := s.cameraManager()
	if err != nil {
		return err
	}
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
	}
	if err := m.UpdateConfig(params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(m.GetConfigJSON())
}

func (s *Server) handleCameraPreset(c *fiber.Ctx) error {
	m, err := s.cameraManager()
	if err != nil {
		return err
	}
	if err := m.ApplyPreset(c.Params("name")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(m.GetConfigJSON())
}

func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

// handleStatusWS streams controls snapshots. The status hub replays the
// latest one on connect.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.serveHub(s.statusHub, c, nil)
}

// handleLogsWS sends the buffered log lines, then streams new ones.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.serveHub(s.logHub, c, func() {
		for _, entry := range s.Logs() {
			if err := c.WriteJSON(entry); err != nil {
				return
			}
		}
	})
}

// handleCameraWS streams rendered JPEG frames.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	s.serveHub(s.cameraHub, c, nil)
}

// serveHub registers c with h and blocks until it disconnects. backlog
// runs before the write pump starts, so it may write to c directly.
func (s *Server) serveHub(h *hub.Hub, c *websocket.Conn, backlog func()) {
	client, err := hub.NewClient(h, c)
	if err != nil {
		c.Close()
		return
	}
	if backlog != nil {
		backlog()
	}
	client.Run()
}

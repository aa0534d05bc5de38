package video

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-creatures/internal/log"
)

// IngestPath is the websocket route browsers push frames to.
const IngestPath = "/ws/ingest"

// Ingest is a Source fed by websocket clients that send one JPEG per
// binary message. Frames from every connection land in the same Slot.
type Ingest struct {
	slot   *Slot
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]time.Time

	received atomic.Uint64
	rejected atomic.Uint64
}

// IngestStats are the ingest counters.
type IngestStats struct {
	Connections int       `json:"connections"`
	Received    uint64    `json:"received"`
	Rejected    uint64    `json:"rejected"`
	Slot        SlotStats `json:"slot"`
}

// NewIngest creates an ingest source.
func NewIngest() *Ingest {
	return &Ingest{
		slot:   NewSlot(),
		logger: log.Component("ingest"),
		conns:  make(map[string]time.Time),
	}
}

// RegisterRoutes mounts the ingest websocket on app.
func (in *Ingest) RegisterRoutes(app fiber.Router) {
	app.Use(IngestPath, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(IngestPath, websocket.New(in.handle))
}

func (in *Ingest) handle(c *websocket.Conn) {
	id := uuid.NewString()

	in.mu.Lock()
	in.conns[id] = time.Now()
	count := len(in.conns)
	in.mu.Unlock()
	in.logger.Info("ingest connected", "conn", id, "total", count)

	defer func() {
		in.mu.Lock()
		delete(in.conns, id)
		count := len(in.conns)
		in.mu.Unlock()
		in.logger.Info("ingest disconnected", "conn", id, "total", count)
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		in.received.Add(1)
		if _, err := in.Push(data); err != nil {
			in.logger.Debug("frame rejected", "conn", id, "error", err)
		}
	}
}

// Push publishes one JPEG frame, reading its size from the header.
func (in *Ingest) Push(jpeg []byte) (Frame, error) {
	w, h, err := JPEGDims(jpeg)
	if err != nil {
		in.rejected.Add(1)
		return Frame{}, err
	}
	return in.slot.Publish(jpeg, w, h), nil
}

// Latest implements Source.
func (in *Ingest) Latest() (Frame, bool) {
	return in.slot.Latest()
}

// Stats returns the ingest counters.
func (in *Ingest) Stats() IngestStats {
	in.mu.RLock()
	n := len(in.conns)
	in.mu.RUnlock()
	return IngestStats{
		Connections: n,
		Received:    in.received.Load(),
		Rejected:    in.rejected.Load(),
		Slot:        in.slot.Stats(),
	}
}

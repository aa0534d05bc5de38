package video

import (
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-creatures/internal/log"
)

func init() {
	log.SetOutput(io.Discard)
}

func TestIngest_Push(t *testing.T) {
	in := NewIngest()

	f, err := in.Push(encodeJPEG(t, 64, 48, color.White))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if f.Seq != 1 || f.Width != 64 || f.Height != 48 {
		t.Errorf("frame = %+v", f)
	}
	if _, err := in.Push([]byte("junk")); err == nil {
		t.Error("Push accepted junk")
	}
	if st := in.Stats(); st.Rejected != 1 || st.Slot.Published != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestIngest_WebSocket(t *testing.T) {
	in := NewIngest()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	in.RegisterRoutes(app)

	go app.Listen(":18190")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18190"+IngestPath, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if err := ws.WriteMessage(websocket.BinaryMessage, encodeJPEG(t, 80, 60, color.White)); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if f, ok := in.Latest(); ok {
			if f.Width != 80 || f.Height != 60 {
				t.Errorf("frame dims = %v, want 80x60", f.Dims())
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no frame ingested")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if st := in.Stats(); st.Connections != 1 || st.Received != 1 {
		t.Errorf("Stats() = %+v, want 1 connection, 1 received", st)
	}
}

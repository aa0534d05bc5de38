package hub

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/teslashibe/go-creatures/internal/log"
)

func init() {
	log.SetOutput(io.Discard)
}

// fakeClient registers a connectionless client straight into the hub.
func fakeClient(h *Hub, buffer int) *Client {
	c := &Client{id: "test", hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func recv(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func startHub(t *testing.T, h *Hub) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return cancel
}

func TestBroadcastFansOut(t *testing.T) {
	h := New("test")
	startHub(t, h)

	a := fakeClient(h, 4)
	b := fakeClient(h, 4)

	if err := h.BroadcastJSON(map[string]int{"n": 1}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	for _, c := range []*Client{a, b} {
		m, ok := recv(t, c)
		if !ok || m.Type != JSONMessage || string(m.Data) != `{"n":1}` {
			t.Errorf("got %v %q", ok, m.Data)
		}
	}

	h.BroadcastBinary([]byte{0xFF, 0xD8})
	if m, _ := recv(t, a); m.Type != BinaryMessage {
		t.Errorf("type = %v, want binary", m.Type)
	}
	if h.ClientCount() != 2 {
		t.Errorf("ClientCount() = %d", h.ClientCount())
	}
}

func TestRetainReplaysLast(t *testing.T) {
	h := New("status", WithRetain())
	startHub(t, h)

	first := fakeClient(h, 4)
	h.BroadcastJSON("one")
	h.BroadcastJSON("two")
	recv(t, first)
	recv(t, first)

	late := fakeClient(h, 4)
	m, _ := recv(t, late)
	if string(m.Data) != `"two"` {
		t.Errorf("replayed %q, want \"two\"", m.Data)
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := New("camera")
	startHub(t, h)

	slow := fakeClient(h, 1)
	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h.ClientCount() != 0 {
		t.Fatal("slow client still registered")
	}
	if st := h.Stats(); st.Dropped != 1 || st.Sent != 1 {
		t.Errorf("stats = %+v", st)
	}

	recv(t, slow)
	if _, ok := recv(t, slow); ok {
		t.Error("send channel not closed")
	}
}

func TestRunStopClosesClients(t *testing.T) {
	h := New("logs")
	cancel := startHub(t, h)
	c := fakeClient(h, 1)

	cancel()
	if _, ok := recv(t, c); ok {
		t.Error("client channel open after stop")
	}
	<-h.done
	if h.IsRunning() {
		t.Error("hub still running")
	}
	if _, err := NewClient(h, nil); err != ErrStopped {
		t.Errorf("NewClient after stop = %v, want ErrStopped", err)
	}
}

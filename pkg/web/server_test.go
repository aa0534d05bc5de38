package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/camera"
	"github.com/teslashibe/go-creatures/pkg/controls"
	"github.com/teslashibe/go-creatures/pkg/creature"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

func init() {
	log.SetOutput(io.Discard)
}

type fakeSurface struct {
	size pose.Dims
}

func (f *fakeSurface) Size() pose.Dims { return f.size }

func (f *fakeSurface) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid size %dx%d", w, h)
	}
	f.size = pose.Dims{Width: w, Height: h}
	return nil
}

type fixture struct {
	srv       *Server
	controls  *controls.Controls
	lifecycle *estimator.Lifecycle
	surface   *fakeSurface
	camera    *camera.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := estimator.NewLifecycle(context.Background(), estimator.NewMock())
	t.Cleanup(func() { l.Close(context.Background()) })

	f := &fixture{
		controls:  controls.New(creature.Builtin(), l),
		lifecycle: l,
		surface:   &fakeSurface{size: pose.Dims{Width: 640, Height: 480}},
		camera:    camera.NewManager(),
	}
	f.srv = NewServer(Options{
		Port:     "0",
		Controls: f.controls,
		Surface:  f.surface,
		Camera:   f.camera,
		Stats:    func() any { return map[string]int{"ticks": 7} },
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}
	return resp.StatusCode, out
}

func (f *fixture) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.lifecycle.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, "GET", "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	ctl := body["controls"].(map[string]any)
	if ctl["creature"] != "blob" {
		t.Errorf("creature = %v", ctl["creature"])
	}
	canvas := body["canvas"].(map[string]any)
	if canvas["width"] != float64(640) {
		t.Errorf("canvas = %v", canvas)
	}
	if body["stats"].(map[string]any)["ticks"] != float64(7) {
		t.Errorf("stats = %v", body["stats"])
	}
}

func TestControlRoutes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		code   int
		key    string
		want   any
	}{
		{"toggle debug", "POST", "/api/debug/toggle", 200, "debug", true},
		{"next creature", "POST", "/api/creature/next", 200, "creature", "ghost"},
		{"set creature", "PUT", "/api/creature/bug", 200, "creature", "bug"},
		{"unknown creature", "PUT", "/api/creature/dragon", 404, "", nil},
		{"set mode", "PUT", "/api/mode/multi", 200, "mode", "multi"},
		{"bad mode", "PUT", "/api/mode/crowd", 400, "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.do(t, tc.method, tc.path, "")
			if code != tc.code {
				t.Fatalf("status = %d, want %d (%v)", code, tc.code, body)
			}
			if tc.key == "" {
				if body["error"] == nil {
					t.Error("error body missing")
				}
				return
			}
			if body[tc.key] != tc.want {
				t.Errorf("%s = %v, want %v", tc.key, body[tc.key], tc.want)
			}
		})
	}

	if !f.controls.Debug() || f.controls.Creature() != "bug" {
		t.Errorf("controls = %+v", f.controls.State())
	}
}

func TestToggleModeAndRetry(t *testing.T) {
	f := newFixture(t)
	f.lifecycle.RequestMode(pose.SinglePose)
	f.waitIdle(t)

	code, body := f.do(t, "POST", "/api/mode/toggle", "")
	if code != 200 || body["mode"] != "multi" {
		t.Fatalf("toggle = %d %v", code, body)
	}
	f.waitIdle(t)
	if st := f.lifecycle.Status(); st.State != estimator.StateReady || st.Mode != pose.MultiPose {
		t.Errorf("lifecycle = %+v", st)
	}

	code, body = f.do(t, "POST", "/api/estimator/retry", "")
	if code != 200 || body["mode"] != "multi" {
		t.Errorf("retry = %d %v", code, body)
	}

	f.lifecycle.Close(context.Background())
	if code, _ := f.do(t, "PUT", "/api/mode/single", ""); code != http.StatusServiceUnavailable {
		t.Errorf("mode after close = %d, want 503", code)
	}
}

func TestResize(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, "POST", "/api/canvas", `{"width":320,"height":240}`)
	if code != 200 {
		t.Fatalf("resize = %d", code)
	}
	if f.surface.size != (pose.Dims{Width: 320, Height: 240}) {
		t.Errorf("size = %+v", f.surface.size)
	}
	if code, _ := f.do(t, "POST", "/api/canvas", `{"width":0,"height":240}`); code != 400 {
		t.Errorf("zero width = %d, want 400", code)
	}
}

func TestCameraRoutes(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, "GET", "/api/camera", "")
	if code != 200 || body["config"].(map[string]any)["width"] != float64(640) {
		t.Fatalf("get camera = %d %v", code, body)
	}

	code, body = f.do(t, "PUT", "/api/camera", `{"framerate":24,"quality":70}`)
	if code != 200 || body["framerate"] != float64(24) {
		t.Errorf("update camera = %d %v", code, body)
	}

	if code, _ := f.do(t, "PUT", "/api/camera", `{"quality":0}`); code != 400 {
		t.Errorf("invalid update = %d, want 400", code)
	}

	code, body = f.do(t, "POST", "/api/camera/preset/720p", "")
	if code != 200 || body["width"] != float64(1280) {
		t.Errorf("preset = %d %v", code, body)
	}
	if code, _ := f.do(t, "POST", "/api/camera/preset/8k", ""); code != 400 {
		t.Errorf("unknown preset = %d, want 400", code)
	}

	f.srv.opts.Camera = nil
	if code, _ := f.do(t, "GET", "/api/camera", ""); code != 404 {
		t.Errorf("camera without manager = %d, want 404", code)
	}
}

func TestLogs(t *testing.T) {
	f := newFixture(t)

	r := slog.NewRecord(time.Now(), slog.LevelWarn, "estimate failed", 0)
	r.AddAttrs(slog.String("component", "scheduler"), slog.Int("generation", 3))
	f.srv.AddLogRecord(r)

	req := httptest.NewRequest("GET", "/api/logs", nil)
	resp, err := f.srv.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var logs []LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}
	got := logs[0]
	if got.Level != "WARN" || got.Component != "scheduler" || got.Message != "estimate failed" {
		t.Errorf("entry = %+v", got)
	}
	if got.Attrs["generation"] != float64(3) {
		t.Errorf("attrs = %v", got.Attrs)
	}

	for i := 0; i < maxLogs+10; i++ {
		f.srv.AddLog(LogEntry{Message: "x"})
	}
	if n := len(f.srv.Logs()); n != maxLogs {
		t.Errorf("kept %d logs, want %d", n, maxLogs)
	}
}

func TestWebsocketUpgradeRequired(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, "GET", "/ws/status", "")
	if code != http.StatusUpgradeRequired {
		t.Errorf("plain GET /ws/status = %d, want 426", code)
	}
}

func TestStatusWebsocket(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.srv.RunHubs(ctx)

	const addr = "127.0.0.1:18191"
	go f.srv.App().Listen(addr)
	defer f.srv.Shutdown(context.Background())

	f.srv.PublishState(f.controls.State())

	var conn *websocket.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/ws/status", nil)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var st struct {
		Creature string `json:"creature"`
	}
	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("read replayed state: %v", err)
	}
	if st.Creature != "blob" {
		t.Errorf("replayed creature = %q", st.Creature)
	}

	f.controls.OnChange(f.srv.PublishState)
	f.controls.SetCreature("ghost")

	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if st.Creature != "ghost" {
		t.Errorf("updated creature = %q", st.Creature)
	}
}

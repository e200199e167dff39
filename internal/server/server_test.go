package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/camera/cameratest"
	"bm-camera-control/internal/preset"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	sim     *cameratest.Simulator
	session *camera.Session
	hub     *Hub
	srv     *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sim := cameratest.NewSimulator()
	sim.AddCamera("cam.local")

	hub := NewHub(quiet)
	s := camera.NewSession(camera.Options{
		Transport: sim,
		Projector: hub,
		Scheduler: &cameratest.ManualScheduler{},
		Logger:    quiet,
	})
	engine := preset.NewEngine(s, preset.DefaultSelection(), 0, quiet)

	srv := httptest.NewServer(New(s, engine, hub, quiet).Routes())
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return &harness{sim: sim, session: s, hub: hub, srv: srv}
}

func (h *harness) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestConnectAndProperties(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/cameras/1/connect", `{"hostname":"cam.local"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("connect: %d %s", resp.StatusCode, body)
	}
	var slot camera.SlotView
	json.Unmarshal(body, &slot)
	if !slot.Connected || !slot.Active || slot.Hostname != "cam.local" {
		t.Errorf("slot = %+v", slot)
	}

	resp, body = h.do(t, http.MethodGet, "/api/properties/video/iso", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"iso":400`) {
		t.Errorf("get property: %d %s", resp.StatusCode, body)
	}

	h.sim.Camera("cam.local").Remove("/lens/zoom")
	_, body = h.do(t, http.MethodGet, "/api/properties/lens/zoom", "")
	var prop propertyResponse
	json.Unmarshal(body, &prop)
	if prop.Available {
		t.Errorf("unsupported property reported available: %s", body)
	}

	resp, _ = h.do(t, http.MethodPut, "/api/properties/video/gain", `{"gain":6}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("put property: %d", resp.StatusCode)
	}
	if v, _ := h.sim.Camera("cam.local").Get("/video/gain"); v != `{"gain":6}` {
		t.Errorf("camera gain = %s", v)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t)
	cam := h.sim.Camera("cam.local")

	tests := []struct {
		name   string
		setup  func()
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{name: "no camera", method: http.MethodPost, path: "/api/presets/capture", status: http.StatusConflict, kind: "no_active_camera"},
		{name: "empty hostname", method: http.MethodPost, path: "/api/cameras/1/connect", body: `{"hostname":" "}`, status: http.StatusBadRequest, kind: "invalid_request"},
		{name: "bad slot", method: http.MethodPost, path: "/api/cameras/9/connect", body: `{"hostname":"cam.local"}`, status: http.StatusBadRequest, kind: "invalid_request"},
		{name: "unreachable", method: http.MethodPost, path: "/api/cameras/2/connect", body: `{"hostname":"nowhere.local"}`, status: http.StatusBadGateway, kind: "connectivity"},
		{name: "connect", method: http.MethodPost, path: "/api/cameras/1/connect", body: `{"hostname":"cam.local"}`, status: http.StatusOK},
		{
			name:   "camera rejects",
			setup:  func() { cam.FailWith("/video/iso", http.StatusBadRequest) },
			method: http.MethodPut, path: "/api/properties/video/iso", body: `{"iso":99}`,
			status: http.StatusBadGateway, kind: "camera_status",
		},
		{
			name:   "cross origin",
			setup:  func() { cam.BlockCrossOrigin("/video/gain") },
			method: http.MethodPut, path: "/api/properties/video/gain", body: `{"gain":2}`,
			status: http.StatusBadGateway, kind: "cross_origin",
		},
		{name: "bad field value", method: http.MethodPut, path: "/api/edits/iso", body: `{"value":"abc"}`, status: http.StatusBadRequest, kind: "invalid_request"},
		{name: "unknown field", method: http.MethodPost, path: "/api/edits/bogus", status: http.StatusBadRequest, kind: "invalid_request"},
		{name: "empty clipboard", method: http.MethodPost, path: "/api/presets/paste", status: http.StatusConflict, kind: "empty_clipboard"},
		{name: "malformed preset", method: http.MethodPost, path: "/api/presets/apply", body: `{"settings":`, status: http.StatusBadRequest, kind: "malformed_preset"},
		{name: "bad json", method: http.MethodPost, path: "/api/request", body: `{`, status: http.StatusBadRequest, kind: "invalid_request"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			resp, body := h.do(t, tc.method, tc.path, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tc.status, body)
			}
			if tc.kind == "" {
				return
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatal(err)
			}
			if e.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", e.Kind, tc.kind)
			}
			if e.RequestID == "" {
				t.Error("missing request id")
			}
		})
	}
}

func TestEditLockOverHTTP(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.session.Connect(ctx, 0, "cam.local", false); err != nil {
		t.Fatal(err)
	}

	resp, _ := h.do(t, http.MethodPost, "/api/edits/gain", "")
	if resp.StatusCode != http.StatusNoContent || !h.session.IsLocked(camera.FieldGain) {
		t.Fatalf("begin edit: %d", resp.StatusCode)
	}

	_, body := h.do(t, http.MethodPost, "/api/refresh", "")
	var v camera.View
	json.Unmarshal(body, &v)
	if !v.Locked[camera.FieldGain] {
		t.Errorf("view should report gain locked: %s", body)
	}

	resp, body = h.do(t, http.MethodPut, "/api/edits/gain", `{"value":"9"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("commit: %d %s", resp.StatusCode, body)
	}
	if h.session.IsLocked(camera.FieldGain) {
		t.Error("commit should release the lock")
	}
	if v, _ := h.sim.Camera("cam.local").Get("/video/gain"); v != `{"gain":9}` {
		t.Errorf("camera gain = %s", v)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/cameras/1/connect", `{"hostname":"cam.local"}`)
	h.sim.Camera("cam.local").Set("/video/gain", `{"gain":10}`)

	resp, file := h.do(t, http.MethodGet, "/api/presets/export?name=Stage%20Left", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: %d %s", resp.StatusCode, file)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "Stage_Left.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	h.sim.Camera("cam.local").Set("/video/gain", `{"gain":0}`)
	h.sim.ResetCalls()

	resp, body := h.do(t, http.MethodPost, "/api/presets/apply", string(file))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply: %d %s", resp.StatusCode, body)
	}
	if v, _ := h.sim.Camera("cam.local").Get("/video/gain"); v != `{"gain":10}` {
		t.Errorf("gain after apply = %s", v)
	}
	if !strings.Contains(string(body), `"Stage Left"`) {
		t.Errorf("apply response: %s", body)
	}
}

func TestManualRequest(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/cameras/1/connect", `{"hostname":"cam.local"}`)

	_, body := h.do(t, http.MethodPost, "/api/request", `{"method":"get","path":"video/whiteBalance"}`)
	var out manualResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != 200 || string(out.Body) != `{"whiteBalance":5600}` {
		t.Errorf("manual GET = %+v", out)
	}

	_, body = h.do(t, http.MethodPost, "/api/request", `{"method":"GET","path":"/no/such/thing"}`)
	json.Unmarshal(body, &out)
	if out.Status != 404 || out.StatusText != "Not Found" {
		t.Errorf("manual GET of unknown path = %+v", out)
	}
}

func TestWebsocketStreamsViews(t *testing.T) {
	h := newHarness(t)

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for h.hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := h.session.Connect(context.Background(), 3, "cam.local", false); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(deadline)
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var env struct {
		Type string      `json:"type"`
		Data camera.View `json:"data"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "view" || !env.Data.Slots[3].Connected {
		t.Errorf("unexpected message: %s", msg)
	}
}

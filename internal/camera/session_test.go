package camera

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"bm-camera-control/internal/camera/cameratest"
	"bm-camera-control/internal/store"
)

type recordingProjector struct {
	views []View
}

func (p *recordingProjector) Project(v View) { p.views = append(p.views, v) }

func (p *recordingProjector) last() View { return p.views[len(p.views)-1] }

func newTestSession(t *testing.T) (*Session, *cameratest.Simulator, *store.Memory, *recordingProjector) {
	t.Helper()
	sim := cameratest.NewSimulator()
	kv := store.NewMemory()
	proj := &recordingProjector{}
	s := NewSession(Options{
		Transport: sim,
		Store:     kv,
		Projector: proj,
		Scheduler: &cameratest.ManualScheduler{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return s, sim, kv, proj
}

func TestConnectInstallsHandle(t *testing.T) {
	s, sim, kv, proj := newTestSession(t)
	sim.AddCamera("cam.local")
	ctx := context.Background()

	if err := s.Connect(ctx, 0, "cam.local", false); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	slot, ok := s.Slot(0)
	if !ok || !slot.Active || slot.Hostname != "cam.local" {
		t.Errorf("slot 0: got %+v, installed=%v", slot, ok)
	}
	if v, _ := kv.Get(ctx, "camerahostname_0"); v != "cam.local" {
		t.Errorf("camerahostname_0 = %q", v)
	}
	if v, _ := kv.Get(ctx, "camerasecurity_0"); v != "false" {
		t.Errorf("camerasecurity_0 = %q", v)
	}
	if len(proj.views) == 0 {
		t.Error("projector not invoked after connect")
	}

	calls := sim.Calls()
	if len(calls) != 1 || calls[0].Path != "/system" || calls[0].Method != http.MethodGet {
		t.Errorf("expected a single probe of /system, got %+v", calls)
	}
}

func TestConnectFailures(t *testing.T) {
	s, sim, kv, _ := newTestSession(t)
	ctx := context.Background()

	sim.AddCamera("good.local")
	bad := sim.AddCamera("bad.local")
	bad.FailWith("/system", http.StatusServiceUnavailable)

	if err := s.Connect(ctx, 1, "good.local", false); err != nil {
		t.Fatalf("Connect good: %v", err)
	}
	s.BeginEdit(FieldHostname)

	tests := []struct {
		name  string
		host  string
		check func(error) bool
	}{
		{"unknown host", "nowhere.local", func(err error) bool {
			var ce *ConnectivityError
			return errors.As(err, &ce)
		}},
		{"error status", "bad.local", func(err error) bool {
			var he *HTTPStatusError
			return errors.As(err, &he) && he.Status == http.StatusServiceUnavailable
		}},
		{"empty hostname", "", func(err error) bool { return errors.Is(err, ErrEmptyHostname) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Connect(ctx, 1, tc.host, false)
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			slot, _ := s.Slot(1)
			if slot.Hostname != "good.local" {
				t.Errorf("failed connect replaced slot: %+v", slot)
			}
			if !s.IsLocked(FieldHostname) {
				t.Error("failed connect cleared the hostname lock")
			}
		})
	}

	if v, _ := kv.Get(ctx, "camerahostname_1"); v != "good.local" {
		t.Errorf("failed connect overwrote persisted hostname: %q", v)
	}
}

func TestCommitHostnameFailureKeepsLock(t *testing.T) {
	s, sim, kv, proj := newTestSession(t)
	ctx := context.Background()
	sim.AddCamera("good.local")
	bad := sim.AddCamera("bad.local")
	bad.FailWith("/system", http.StatusServiceUnavailable)

	if err := s.Connect(ctx, 0, "good.local", false); err != nil {
		t.Fatal(err)
	}

	for _, host := range []string{"nowhere.local", "bad.local", ""} {
		t.Run(host, func(t *testing.T) {
			s.BeginEdit(FieldHostname)
			if err := s.CommitValue(ctx, FieldHostname, host); err == nil {
				t.Fatal("expected the commit to fail")
			}
			if !s.IsLocked(FieldHostname) {
				t.Fatal("failed hostname commit cleared the lock")
			}

			// a poll must leave the typed hostname alone
			display := NewDisplay()
			display.Set(FieldHostname, host)
			if err := s.Refresh(ctx); err != nil {
				t.Fatal(err)
			}
			display.Apply(proj.last())
			if got := display.Value(FieldHostname); got != host {
				t.Errorf("displayed hostname after poll = %q, want %q", got, host)
			}
		})
	}

	if v, _ := kv.Get(ctx, "camerahostname_0"); v != "good.local" {
		t.Errorf("persisted hostname = %q", v)
	}

	if err := s.CommitValue(ctx, FieldHostname, "good.local"); err != nil {
		t.Fatal(err)
	}
	if s.IsLocked(FieldHostname) {
		t.Error("successful hostname commit should clear the lock")
	}
}

func TestConnectClearsHostnameLock(t *testing.T) {
	s, sim, _, _ := newTestSession(t)
	sim.AddCamera("cam.local")
	s.BeginEdit(FieldHostname)
	s.BeginEdit(FieldISO)

	if err := s.Connect(context.Background(), 0, "cam.local", true); err != nil {
		t.Fatal(err)
	}
	if s.IsLocked(FieldHostname) {
		t.Error("hostname lock should be cleared by a successful connect")
	}
	if !s.IsLocked(FieldISO) {
		t.Error("unrelated locks must survive connect")
	}
}

func TestConnectLeavesOtherSlotsAlone(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < Slots; i++ {
		s, sim, _, _ := newTestSession(t)
		sim.AddCamera("other.local")
		sim.AddCamera("target.local")

		for j := 0; j < Slots; j++ {
			if j == i {
				continue
			}
			if err := s.Connect(ctx, j, "other.local", false); err != nil {
				t.Fatal(err)
			}
		}
		before := s.Snapshot(ctx).Slots

		if err := s.Connect(ctx, i, "target.local", false); err != nil {
			t.Fatal(err)
		}
		after := s.Snapshot(ctx).Slots
		for j := 0; j < Slots; j++ {
			if j != i && before[j] != after[j] {
				t.Errorf("connect at %d changed slot %d: %+v -> %+v", i, j, before[j], after[j])
			}
		}
	}
}

func TestBulkConnect(t *testing.T) {
	s, sim, _, _ := newTestSession(t)
	ctx := context.Background()
	sim.AddCamera("camera1.local")
	sim.AddCamera("camera3.local")
	sim.AddCamera("camera8.local").SetUnreachable(true)

	if err := s.SwitchCurrent(ctx, 2); err != nil {
		t.Fatal(err)
	}

	res := s.BulkConnect(ctx, false)
	if got := res.String(); got != "2/8 connected" {
		t.Errorf("summary: got %q", got)
	}
	if res.Attempted != Slots || len(res.Errors) != 6 {
		t.Errorf("attempted=%d errors=%d", res.Attempted, len(res.Errors))
	}
	if s.Current() != 2 {
		t.Errorf("current index not restored: %d", s.Current())
	}
	slot, _ := s.Slot(2)
	if !slot.Active || slot.Hostname != "camera3.local" {
		t.Errorf("slot 2 should be active camera3: %+v", slot)
	}
	slot, _ = s.Slot(0)
	if slot.Active {
		t.Error("slot 0 must not be active")
	}
}

func TestConnectRemembered(t *testing.T) {
	s, sim, kv, _ := newTestSession(t)
	ctx := context.Background()
	sim.AddCamera("a.local")
	store.SaveCamera(ctx, kv, 4, "a.local", false)
	store.SaveCamera(ctx, kv, 6, "gone.local", true)

	res := s.ConnectRemembered(ctx)
	if res.Connected != 1 || res.Attempted != 2 {
		t.Errorf("got %+v", res)
	}
	if _, ok := s.Slot(4); !ok {
		t.Error("slot 4 should be connected")
	}
}

func TestSwitchCurrentProjectsRememberedHostname(t *testing.T) {
	s, sim, kv, proj := newTestSession(t)
	ctx := context.Background()
	sim.AddCamera("cam0.local")
	if err := s.Connect(ctx, 0, "cam0.local", false); err != nil {
		t.Fatal(err)
	}
	// slot 3 has a remembered hostname but no handle
	store.SaveCamera(ctx, kv, 3, "remembered.local", true)

	if err := s.SwitchCurrent(ctx, 3); err != nil {
		t.Fatal(err)
	}
	v := proj.last()
	if !v.Reset || v.Hostname != "remembered.local" || !v.Secure || v.Current != 3 {
		t.Errorf("unexpected view: %+v", v)
	}
	slot, _ := s.Slot(0)
	if slot.Active {
		t.Error("old slot should be deactivated")
	}

	if err := s.SwitchCurrent(ctx, 9); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestFetchAndCache(t *testing.T) {
	s, sim, _, _ := newTestSession(t)
	ctx := context.Background()
	cam := sim.AddCamera("cam.local")
	cam.Remove("/lens/iris")
	cam.FailWith("/video/shutter", http.StatusInternalServerError)

	if _, _, err := s.FetchAndCache(ctx, "/video/gain"); !errors.Is(err, ErrNoActiveCamera) {
		t.Fatalf("expected ErrNoActiveCamera, got %v", err)
	}
	if _, ok := s.ReadProperty("/video/gain"); ok {
		t.Error("ReadProperty without a camera must be unavailable")
	}

	if err := s.Connect(ctx, 0, "cam.local", false); err != nil {
		t.Fatal(err)
	}

	v, ok, err := s.FetchAndCache(ctx, "/video/gain")
	if err != nil || !ok || string(v) != `{"gain":0}` {
		t.Fatalf("gain: %s %v %v", v, ok, err)
	}
	if cached, ok := s.ReadProperty("/video/gain"); !ok || string(cached) != `{"gain":0}` {
		t.Errorf("gain not cached: %s", cached)
	}

	_, ok, err = s.FetchAndCache(ctx, "/lens/iris")
	if err != nil || ok {
		t.Errorf("404 should be unavailable without error: ok=%v err=%v", ok, err)
	}
	if _, ok := s.ReadProperty("/lens/iris"); ok {
		t.Error("404 must not populate the cache")
	}

	// a success without a JSON body carries no value
	cam.Set("/lens/autoFocus", "")
	_, ok, err = s.FetchAndCache(ctx, "/lens/autoFocus")
	if err != nil || ok {
		t.Errorf("empty body should be unavailable without error: ok=%v err=%v", ok, err)
	}
	if _, ok := s.ReadProperty("/lens/autoFocus"); ok {
		t.Error("empty body must not populate the cache")
	}

	// a later failure keeps the previous value
	cam.Set("/video/gain", `{"gain":12}`)
	cam.FailWith("/video/gain", http.StatusInternalServerError)
	var he *HTTPStatusError
	if _, _, err := s.FetchAndCache(ctx, "/video/gain"); !errors.As(err, &he) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if cached, _ := s.ReadProperty("/video/gain"); string(cached) != `{"gain":0}` {
		t.Errorf("failed GET mutated cache: %s", cached)
	}
}

func TestPushPropertyDoesNotTouchCache(t *testing.T) {
	s, sim, _, _ := newTestSession(t)
	ctx := context.Background()
	cam := sim.AddCamera("cam.local")
	s.Connect(ctx, 0, "cam.local", false)
	s.FetchAndCache(ctx, "/video/gain")

	if err := s.PushProperty(ctx, "/video/gain", map[string]int{"gain": 4}); err != nil {
		t.Fatal(err)
	}
	if cached, _ := s.ReadProperty("/video/gain"); string(cached) != `{"gain":0}` {
		t.Errorf("push should not update cache, got %s", cached)
	}
	if got, _ := cam.Get("/video/gain"); got != `{"gain":4}` {
		t.Errorf("camera state: %s", got)
	}

	cam.BlockCrossOrigin("/video/iso")
	if err := s.PushProperty(ctx, "/video/iso", map[string]int{"iso": 800}); !errors.Is(err, ErrCrossOriginRestricted) {
		t.Errorf("expected ErrCrossOriginRestricted, got %v", err)
	}

	cam.FailWith("/video/ndFilter", http.StatusBadRequest)
	var he *HTTPStatusError
	if err := s.PushProperty(ctx, "/video/ndFilter", map[string]int{"stop": 2}); !errors.As(err, &he) || he.Method != http.MethodPut {
		t.Errorf("expected PUT HTTPStatusError, got %v", err)
	}
}

func TestRequest(t *testing.T) {
	s, sim, _, _ := newTestSession(t)
	ctx := context.Background()
	sim.AddCamera("cam.local")
	s.Connect(ctx, 0, "cam.local", false)

	resp, err := s.Request(ctx, "get", "video/iso", nil)
	if err != nil || resp.Status != 200 {
		t.Fatalf("GET: %+v %v", resp, err)
	}
	if _, ok := s.ReadProperty("/video/iso"); !ok {
		t.Error("manual GET should be cached")
	}

	resp, err = s.Request(ctx, "PUT", "/video/iso", json.RawMessage(`{"iso":1600}`))
	if err != nil || resp.Status != 200 {
		t.Fatalf("PUT: %+v %v", resp, err)
	}

	if _, err := s.Request(ctx, "DELETE", "/video/iso", nil); err == nil {
		t.Error("DELETE should be rejected")
	}
}

func TestEditLockSurvivesRefresh(t *testing.T) {
	s, sim, _, proj := newTestSession(t)
	ctx := context.Background()
	cam := sim.AddCamera("cam.local")
	s.Connect(ctx, 0, "cam.local", false)

	display := NewDisplay()
	s.Refresh(ctx)
	display.Apply(proj.last())
	if display.Value(FieldISO) != "400" {
		t.Fatalf("initial ISO: %q", display.Value(FieldISO))
	}

	s.BeginEdit(FieldISO)
	display.Set(FieldISO, "32")

	cam.Set("/video/iso", `{"iso":3200}`)
	cam.Set("/video/gain", `{"gain":6}`)
	if err := s.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	display.Apply(proj.last())

	if got := display.Value(FieldISO); got != "32" {
		t.Errorf("locked ISO overwritten by refresh: %q", got)
	}
	if got := display.Value(FieldGain); got != "6" {
		t.Errorf("unlocked gain not refreshed: %q", got)
	}
	if cached, _ := s.ReadProperty("/video/iso"); string(cached) != `{"iso":3200}` {
		t.Errorf("cache should still track the camera: %s", cached)
	}

	// commit pushes the typed value and releases the lock
	if err := s.CommitValue(ctx, FieldISO, "3200"); err != nil {
		t.Fatal(err)
	}
	if s.IsLocked(FieldISO) {
		t.Error("commit should release the lock")
	}
	puts := sim.Puts()
	if len(puts) != 1 || puts[0].Path != "/video/iso" || string(puts[0].Body) != `{"iso":3200}` {
		t.Errorf("unexpected PUTs: %+v", puts)
	}
}

func TestCommitEditUnlocksBeforeCommit(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	s.BeginEdit(FieldGain)

	var lockedDuringCommit bool
	s.CommitEdit(context.Background(), FieldGain, func(context.Context) error {
		lockedDuringCommit = s.IsLocked(FieldGain)
		return nil
	})
	if lockedDuringCommit {
		t.Error("lock must be removed before commit runs")
	}
}

func TestScheduleRefresh(t *testing.T) {
	sim := cameratest.NewSimulator()
	sched := &cameratest.ManualScheduler{}
	proj := &recordingProjector{}
	s := NewSession(Options{Transport: sim, Projector: proj, Scheduler: sched,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	sim.AddCamera("cam.local")
	s.Connect(context.Background(), 0, "cam.local", false)
	sim.ResetCalls()

	s.ScheduleRefresh(750 * time.Millisecond)
	if len(sim.Calls()) != 0 {
		t.Fatal("refresh ran before its delay")
	}
	if d := sched.Delays(); len(d) != 1 || d[0] != 750*time.Millisecond {
		t.Errorf("delays: %v", d)
	}
	sched.RunPending()
	if len(sim.Calls()) == 0 {
		t.Error("scheduled refresh did not poll the camera")
	}
}

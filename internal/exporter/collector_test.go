package exporter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/camera/cameratest"
	"bm-camera-control/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCollectorGauges(t *testing.T) {
	ctx := context.Background()
	sim := cameratest.NewSimulator()
	sim.AddCamera("a.local")
	b := sim.AddCamera("b.local")
	b.Set("/video/shutter", `{"continuousShutterAutoExposure":false,"shutterAngle":18000}`)
	b.Set("/video/gain", `{"gain":12}`)

	s := camera.NewSession(camera.Options{Transport: sim, Logger: quiet})
	if err := s.Connect(ctx, 0, "a.local", false); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect(ctx, 2, "b.local", false); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(s, 0, quiet)

	expected := `
# HELP bmcc_gain_decibels Sensor gain in dB.
# TYPE bmcc_gain_decibels gauge
bmcc_gain_decibels{host="a.local",slot="1"} 0
bmcc_gain_decibels{host="b.local",slot="3"} 12
# HELP bmcc_shutter_angle_degrees Shutter angle in degrees.
# TYPE bmcc_shutter_angle_degrees gauge
bmcc_shutter_angle_degrees{host="b.local",slot="3"} 180
# HELP bmcc_shutter_speed Shutter speed as 1/x seconds.
# TYPE bmcc_shutter_speed gauge
bmcc_shutter_speed{host="a.local",slot="1"} 50
# HELP bmcc_cameras_connected Number of connected camera slots.
# TYPE bmcc_cameras_connected gauge
bmcc_cameras_connected 2
# HELP bmcc_up Was the last scrape of every connected camera successful.
# TYPE bmcc_up gauge
bmcc_up 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"bmcc_gain_decibels", "bmcc_shutter_angle_degrees", "bmcc_shutter_speed", "bmcc_cameras_connected", "bmcc_up"); err != nil {
		t.Error(err)
	}
}

func TestCollectorFailures(t *testing.T) {
	ctx := context.Background()
	sim := cameratest.NewSimulator()
	cam := sim.AddCamera("a.local")
	kv := store.NewMemory()

	s := camera.NewSession(camera.Options{Transport: sim, Store: kv, Logger: quiet})
	if err := s.Connect(ctx, 0, "a.local", false); err != nil {
		t.Fatal(err)
	}
	// remembered but never reachable
	if err := store.SaveCamera(ctx, kv, 5, "gone.local", false); err != nil {
		t.Fatal(err)
	}
	cam.Remove("/lens/zoom")
	cam.FailWith("/video/iso", http.StatusServiceUnavailable)

	c := NewCollector(s, 0, quiet)

	expected := `
# HELP bmcc_camera_up Whether the camera in a remembered slot answered.
# TYPE bmcc_camera_up gauge
bmcc_camera_up{host="a.local",slot="1"} 0
bmcc_camera_up{host="gone.local",slot="6"} 0
# HELP bmcc_up Was the last scrape of every connected camera successful.
# TYPE bmcc_up gauge
bmcc_up 0
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "bmcc_camera_up", "bmcc_up"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(c, "bmcc_zoom_focal_length_millimetres"); n != 0 {
		t.Errorf("unsupported property should emit nothing, got %d series", n)
	}
	if n := testutil.CollectAndCount(c, "bmcc_focus_normalised"); n != 1 {
		t.Errorf("focus series = %d", n)
	}
}

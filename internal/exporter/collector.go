// Package exporter exposes the live properties of every connected camera as
// Prometheus gauges.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bm-camera-control/internal/camera"
	"bm-camera-control/pkg/models"
)

var slotLabels = []string{"slot", "host"}

var (
	upDesc = prometheus.NewDesc(
		"bmcc_up", "Was the last scrape of every connected camera successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"bmcc_scrape_duration_seconds", "Time taken to scrape all cameras.", nil, nil,
	)
	connectedDesc = prometheus.NewDesc(
		"bmcc_cameras_connected", "Number of connected camera slots.", nil, nil,
	)
	cameraUpDesc = prometheus.NewDesc(
		"bmcc_camera_up", "Whether the camera in a remembered slot answered.", slotLabels, nil,
	)
)

// gauge reads one number out of a decoded endpoint record
type gauge struct {
	path  string
	desc  *prometheus.Desc
	value func(rec any) (float64, bool)
}

func newGauge(path, name, help string, value func(any) (float64, bool)) gauge {
	return gauge{path: path, desc: prometheus.NewDesc(name, help, slotLabels, nil), value: value}
}

var gauges = []gauge{
	newGauge(models.PathISO, "bmcc_iso", "Sensor ISO.", func(r any) (float64, bool) {
		return float64(r.(*models.ISO).ISO), true
	}),
	newGauge(models.PathGain, "bmcc_gain_decibels", "Sensor gain in dB.", func(r any) (float64, bool) {
		return float64(r.(*models.Gain).Gain), true
	}),
	newGauge(models.PathShutter, "bmcc_shutter_speed", "Shutter speed as 1/x seconds.", func(r any) (float64, bool) {
		s := r.(*models.Shutter)
		if s.ShutterSpeed == nil {
			return 0, false
		}
		return float64(*s.ShutterSpeed), true
	}),
	newGauge(models.PathShutter, "bmcc_shutter_angle_degrees", "Shutter angle in degrees.", func(r any) (float64, bool) {
		s := r.(*models.Shutter)
		if s.ShutterAngle == nil {
			return 0, false
		}
		return float64(*s.ShutterAngle) / 100, true
	}),
	newGauge(models.PathIris, "bmcc_iris_aperture_stop", "Lens aperture f-stop.", func(r any) (float64, bool) {
		return r.(*models.Iris).ApertureStop, true
	}),
	newGauge(models.PathFocus, "bmcc_focus_normalised", "Lens focus position, 0..1.", func(r any) (float64, bool) {
		return r.(*models.Focus).Normalised, true
	}),
	newGauge(models.PathZoom, "bmcc_zoom_focal_length_millimetres", "Lens focal length.", func(r any) (float64, bool) {
		return float64(r.(*models.Zoom).FocalLength), true
	}),
	newGauge(models.PathWhiteBalance, "bmcc_white_balance_kelvin", "White balance temperature.", func(r any) (float64, bool) {
		return float64(r.(*models.WhiteBalance).WhiteBalance), true
	}),
	newGauge(models.PathWhiteBalanceTint, "bmcc_white_balance_tint", "White balance tint.", func(r any) (float64, bool) {
		return float64(r.(*models.WhiteBalanceTint).WhiteBalanceTint), true
	}),
	newGauge(models.PathNDFilter, "bmcc_nd_filter_stops", "ND filter strength in stops.", func(r any) (float64, bool) {
		return r.(*models.NDFilter).Stop, true
	}),
}

// Session is the part of camera.Session the collector reads
type Session interface {
	Slot(index int) (camera.SlotView, bool)
	Remembered(ctx context.Context, index int) (string, bool, error)
	Connect(ctx context.Context, index int, hostname string, secure bool) error
	FetchAndCacheAt(ctx context.Context, index int, path string) (json.RawMessage, bool, error)
}

type Collector struct {
	session Session
	logger  *slog.Logger
	timeout time.Duration
	mu      sync.Mutex
}

func NewCollector(session Session, timeout time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{session: session, logger: logger, timeout: timeout}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- connectedDesc
	ch <- cameraUpDesc
	for _, g := range gauges {
		ch <- g.desc
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	success := 1.0
	connected := 0.0

	for i := 0; i < camera.Slots; i++ {
		slot, ok := c.session.Slot(i)
		if !ok {
			host, secure, err := c.session.Remembered(ctx, i)
			if err != nil || host == "" {
				continue
			}
			// a remembered camera that dropped off gets one reconnect per scrape
			if err := c.session.Connect(ctx, i, host, secure); err != nil {
				c.logger.Warn("exporter reconnect failed", "slot", i+1, "host", host, "error", err)
				ch <- prometheus.MustNewConstMetric(cameraUpDesc, prometheus.GaugeValue, 0, slotLabel(i), host)
				success = 0
				continue
			}
			slot, _ = c.session.Slot(i)
		}
		connected++

		if !c.collectSlot(ctx, ch, slot) {
			success = 0
		}
	}

	ch <- prometheus.MustNewConstMetric(connectedDesc, prometheus.GaugeValue, connected)
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, success)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

// collectSlot fetches each property once and emits every gauge built on it
func (c *Collector) collectSlot(ctx context.Context, ch chan<- prometheus.Metric, slot camera.SlotView) bool {
	labels := []string{slotLabel(slot.Index), slot.Hostname}
	records := make(map[string]any)
	ok := true

	for _, g := range gauges {
		rec, seen := records[g.path]
		if !seen {
			raw, available, err := c.session.FetchAndCacheAt(ctx, slot.Index, g.path)
			switch {
			case err != nil:
				c.logger.Warn("exporter read failed", "slot", slot.Index+1, "path", g.path, "error", err)
				ok = false
			case available:
				if rec, err = models.Decode(g.path, raw); err != nil {
					c.logger.Warn("exporter decode failed", "slot", slot.Index+1, "path", g.path, "error", err)
					rec = nil
				}
			}
			records[g.path] = rec
		}
		if rec == nil {
			continue
		}
		if v, has := g.value(rec); has {
			ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, v, labels...)
		}
	}

	up := 0.0
	if ok {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(cameraUpDesc, prometheus.GaugeValue, up, labels...)
	return ok
}

func slotLabel(i int) string {
	return fmt.Sprint(i + 1)
}

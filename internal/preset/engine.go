// Package preset captures camera settings into a Document and replays a
// Document onto a camera, one PUT per endpoint in a fixed order.
package preset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"bm-camera-control/internal/camera"
)

var (
	ErrNothingCaptured = errors.New("nothing to capture: no selected setting could be read")
	ErrEmptyClipboard  = errors.New("preset clipboard is empty")
)

// DefaultSettleDelay is how long apply waits before refreshing, giving the
// camera time to settle on the new values
const DefaultSettleDelay = 500 * time.Millisecond

// Camera is what the engine needs from a session
type Camera interface {
	Connected() bool
	FetchAndCache(ctx context.Context, path string) (json.RawMessage, bool, error)
	PushProperty(ctx context.Context, path string, body any) error
	ScheduleRefresh(delay time.Duration)
}

type Engine struct {
	cam       Camera
	selection Selection
	settle    time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	clipboard *Document
}

func NewEngine(cam Camera, selection Selection, settle time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Engine{
		cam:       cam,
		selection: selection,
		settle:    settle,
		logger:    logger,
	}
}

func (e *Engine) Selection() Selection {
	return e.selection
}

// Capture reads every selected key from the current camera. Compound keys are
// kept only when all their reads succeed. Keys that fail are logged and left
// out; a missing camera aborts the whole capture.
func (e *Engine) Capture(ctx context.Context) (*Document, error) {
	doc := &Document{}

	for _, ent := range entries {
		if !ent.included(e.selection) {
			continue
		}

		values := make([]json.RawMessage, 0, len(ent.paths))
		for _, path := range ent.paths {
			v, ok, err := e.cam.FetchAndCache(ctx, path)
			if errors.Is(err, camera.ErrNoActiveCamera) {
				return nil, err
			}
			if err != nil {
				e.logger.Warn("preset capture read failed", "key", ent.name, "path", path, "error", err)
				break
			}
			if !ok {
				e.logger.Debug("preset key unsupported by camera", "key", ent.name, "path", path)
				break
			}
			values = append(values, v)
		}
		if len(values) != len(ent.paths) {
			continue
		}

		if err := ent.set(doc, values); err != nil {
			e.logger.Warn("preset capture decode failed", "key", ent.name, "error", err)
			continue
		}
	}

	if len(doc.Keys()) == 0 {
		return nil, ErrNothingCaptured
	}
	return doc, nil
}

// Apply pushes every key that is both selected and present in doc. A
// cross-origin refusal is logged and skipped; any other failure stops the
// sequence and is returned. A refresh is scheduled once all keys are sent.
// With no camera in the current slot nothing is sent and ErrNoActiveCamera is
// returned, even when doc selects no keys.
func (e *Engine) Apply(ctx context.Context, doc *Document) error {
	if !e.cam.Connected() {
		return camera.ErrNoActiveCamera
	}
	for _, ent := range entries {
		if !ent.included(e.selection) {
			continue
		}
		values := ent.get(doc)
		if values == nil {
			continue
		}

		for i, path := range ent.paths {
			err := e.cam.PushProperty(ctx, path, values[i])
			if errors.Is(err, camera.ErrCrossOriginRestricted) {
				e.logger.Warn("preset value blocked by cross-origin policy", "key", ent.name, "path", path)
				continue
			}
			if err != nil {
				return fmt.Errorf("apply %s: %w", ent.name, err)
			}
		}
	}

	e.cam.ScheduleRefresh(e.settle)
	return nil
}

// ApplyFile parses a preset file and applies its settings. Nothing is sent if
// the file does not parse.
func (e *Engine) ApplyFile(ctx context.Context, r io.Reader) (*File, error) {
	f, err := ReadFile(r)
	if err != nil {
		return nil, err
	}
	return f, e.Apply(ctx, &f.Settings)
}

// Export captures the current camera and writes it as a preset file
func (e *Engine) Export(ctx context.Context, w io.Writer, name string) error {
	doc, err := e.Capture(ctx)
	if err != nil {
		return err
	}
	return WriteFile(w, name, doc, time.Now())
}

// Copy captures into the clipboard, replacing what was there
func (e *Engine) Copy(ctx context.Context) (*Document, error) {
	doc, err := e.Capture(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.clipboard = doc
	e.mu.Unlock()
	return doc, nil
}

func (e *Engine) Clipboard() (*Document, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clipboard, e.clipboard != nil
}

// Paste applies the clipboard to the current camera
func (e *Engine) Paste(ctx context.Context) error {
	doc, ok := e.Clipboard()
	if !ok {
		return ErrEmptyClipboard
	}
	return e.Apply(ctx, doc)
}

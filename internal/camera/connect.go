package camera

import (
	"context"
	"fmt"
	"net/http"

	"bm-camera-control/internal/store"
	"bm-camera-control/pkg/models"
)

// Connect probes hostname and, on success, installs a fresh handle at index.
// The previous handle and its cache are discarded. On failure the slot and the
// edit locks are left alone.
func (s *Session) Connect(ctx context.Context, index int, hostname string, secure bool) error {
	if hostname == "" {
		return ErrEmptyHostname
	}
	if !validIndex(index) {
		return ErrInvalidIndex
	}

	h := newHandle(hostname, secure)
	resp, err := s.transport.Do(ctx, http.MethodGet, h.URL(models.PathSystem), nil)
	if err != nil {
		s.logger.Warn("camera probe failed", "index", index, "host", hostname, "error", err)
		return &ConnectivityError{Host: hostname, Err: err}
	}
	if resp.IsError() {
		s.logger.Warn("camera probe rejected", "index", index, "host", hostname, "status", resp.Status)
		return &HTTPStatusError{Method: http.MethodGet, Path: models.PathSystem, Status: resp.Status, StatusText: resp.StatusText}
	}
	if resp.Body != nil {
		h.cache[models.PathSystem] = resp.Body
	}

	s.mu.Lock()
	s.registry.Install(index, h)
	s.locks.Remove(FieldHostname)
	s.mu.Unlock()

	if err := store.SaveCamera(ctx, s.store, index, hostname, secure); err != nil {
		s.logger.Warn("failed to remember camera", "index", index, "error", err)
	}

	s.logger.Info("camera connected", "index", index, "host", hostname, "secure", secure)
	s.project(ctx, false)
	return nil
}

// BulkResult summarises a multi-slot connect
type BulkResult struct {
	Connected int
	Attempted int
	Errors    map[int]error
}

func (r BulkResult) String() string {
	return fmt.Sprintf("%d/%d connected", r.Connected, Slots)
}

// BulkConnect tries camera1.local .. camera8.local on slots 0..7. Failures do
// not stop the sweep. The current slot is the same afterwards.
func (s *Session) BulkConnect(ctx context.Context, secure bool) BulkResult {
	hosts := make(map[int]string, Slots)
	for i := 0; i < Slots; i++ {
		hosts[i] = fmt.Sprintf("camera%d.local", i+1)
	}
	return s.connectAll(ctx, hosts, func(int) bool { return secure })
}

// ConnectRemembered reconnects every slot that has a persisted hostname
func (s *Session) ConnectRemembered(ctx context.Context) BulkResult {
	hosts := make(map[int]string, Slots)
	security := make(map[int]bool, Slots)
	for i := 0; i < Slots; i++ {
		host, secure, err := s.Remembered(ctx, i)
		if err != nil {
			s.logger.Warn("failed to load remembered camera", "index", i, "error", err)
			continue
		}
		if host != "" {
			hosts[i] = host
			security[i] = secure
		}
	}
	return s.connectAll(ctx, hosts, func(i int) bool { return security[i] })
}

func (s *Session) connectAll(ctx context.Context, hosts map[int]string, secure func(int) bool) BulkResult {
	prev := s.Current()
	res := BulkResult{Errors: make(map[int]error)}

	for i := 0; i < Slots; i++ {
		host, ok := hosts[i]
		if !ok {
			continue
		}
		res.Attempted++
		if err := s.Connect(ctx, i, host, secure(i)); err != nil {
			res.Errors[i] = err
			continue
		}
		res.Connected++
	}

	s.mu.Lock()
	s.registry.Switch(prev)
	s.mu.Unlock()

	s.logger.Info("bulk connect finished", "result", res.String())
	s.project(ctx, false)
	return res
}

// SwitchCurrent selects another slot, projects a reset view carrying the
// slot's remembered hostname, then refreshes the new camera's values.
func (s *Session) SwitchCurrent(ctx context.Context, index int) error {
	if !validIndex(index) {
		return ErrInvalidIndex
	}

	s.mu.Lock()
	s.registry.Switch(index)
	connected := s.registry.Current() != nil
	s.mu.Unlock()

	s.project(ctx, true)

	if !connected {
		return nil
	}
	return s.Refresh(ctx)
}

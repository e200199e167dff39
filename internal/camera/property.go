package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bm-camera-control/internal/client"
)

// ReadProperty looks path up in the current camera's cache. false means
// unavailable: skip the field, do not treat it as zero.
func (s *Session) ReadProperty(path string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.registry.Current()
	if h == nil {
		return nil, false
	}
	v, ok := h.cache[path]
	return v, ok
}

// FetchAndCache GETs path from the current camera and caches the result.
// A 404 means the model does not support the property: unavailable, no error.
func (s *Session) FetchAndCache(ctx context.Context, path string) (json.RawMessage, bool, error) {
	return s.FetchAndCacheAt(ctx, s.Current(), path)
}

// FetchAndCacheAt is FetchAndCache against an explicit slot
func (s *Session) FetchAndCacheAt(ctx context.Context, index int, path string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	h := s.registry.Get(index)
	s.mu.Unlock()
	if h == nil {
		return nil, false, ErrNoActiveCamera
	}

	resp, err := s.transport.Do(ctx, http.MethodGet, h.URL(path), nil)
	if err != nil {
		return nil, false, &ConnectivityError{Host: h.Hostname, Err: err}
	}
	if resp.Status == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, &HTTPStatusError{Method: http.MethodGet, Path: path, Status: resp.Status, StatusText: resp.StatusText}
	}
	// a success with no JSON body carries no value
	if len(resp.Body) == 0 {
		return nil, false, nil
	}

	s.mu.Lock()
	h.cache[path] = resp.Body
	s.mu.Unlock()

	return resp.Body, true, nil
}

// PushProperty PUTs body to path on the current camera. The cache is left as
// it is; the next poll reconciles it.
func (s *Session) PushProperty(ctx context.Context, path string, body any) error {
	s.mu.Lock()
	h := s.registry.Current()
	s.mu.Unlock()
	if h == nil {
		return ErrNoActiveCamera
	}

	resp, err := s.transport.Do(ctx, http.MethodPut, h.URL(path), body)
	if errors.Is(err, ErrCrossOriginRestricted) {
		s.logger.Warn("PUT blocked by cross-origin policy, value not applied", "host", h.Hostname, "path", path)
		return err
	}
	if err != nil {
		return &ConnectivityError{Host: h.Hostname, Err: err}
	}
	if resp.IsError() {
		s.logger.Warn("PUT rejected", "host", h.Hostname, "path", path, "status", resp.Status)
		return &HTTPStatusError{Method: http.MethodPut, Path: path, Status: resp.Status, StatusText: resp.StatusText}
	}

	s.logger.Debug("property pushed", "host", h.Hostname, "path", path)
	return nil
}

// Request is the manual API surface: any GET or PUT against the current
// camera, response handed back as-is. Successful GETs are cached.
func (s *Session) Request(ctx context.Context, method, path string, body json.RawMessage) (*client.Response, error) {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPut {
		return nil, fmt.Errorf("unsupported method %q", method)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	s.mu.Lock()
	h := s.registry.Current()
	s.mu.Unlock()
	if h == nil {
		return nil, ErrNoActiveCamera
	}

	var payload any
	if method == http.MethodPut && len(body) > 0 {
		payload = body
	}

	resp, err := s.transport.Do(ctx, method, h.URL(path), payload)
	if err != nil {
		if errors.Is(err, ErrCrossOriginRestricted) {
			return nil, err
		}
		return nil, &ConnectivityError{Host: h.Hostname, Err: err}
	}

	if method == http.MethodGet && !resp.IsError() && len(resp.Body) > 0 {
		s.mu.Lock()
		h.cache[path] = resp.Body
		s.mu.Unlock()
	}
	return resp, nil
}

// Refresh polls every display field of the current camera, then projects.
// Unsupported properties are skipped; other failures are joined and returned.
func (s *Session) Refresh(ctx context.Context) error {
	var errs []error
	for _, f := range Fields() {
		if f.Path() == "" {
			continue
		}
		if _, _, err := s.FetchAndCache(ctx, f.Path()); err != nil {
			if errors.Is(err, ErrNoActiveCamera) {
				break
			}
			errs = append(errs, err)
		}
	}
	s.project(ctx, false)
	return errors.Join(errs...)
}

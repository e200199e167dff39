// Package cameratest provides an in-memory camera fleet for tests.
package cameratest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"bm-camera-control/internal/client"
)

const apiPrefix = "/control/api/v1"

// Call is one request seen by the simulator
type Call struct {
	Method string
	Host   string
	Path   string
	Body   json.RawMessage
}

// Camera is the remote state of one simulated camera
type Camera struct {
	mu          sync.Mutex
	properties  map[string]json.RawMessage
	status      map[string]int
	crossOrigin map[string]bool
	unreachable bool
}

// Simulator implements camera.Transport over a set of simulated cameras
type Simulator struct {
	mu      sync.Mutex
	cameras map[string]*Camera
	calls   []Call
}

func NewSimulator() *Simulator {
	return &Simulator{cameras: make(map[string]*Camera)}
}

// DefaultProperties is a plausible full property set
func DefaultProperties() map[string]string {
	return map[string]string{
		"/system":                           `{"codecFormat":{"codec":"BRaw:Q0","container":"braw"}}`,
		"/lens/focus":                       `{"normalised":0.5}`,
		"/lens/autoFocus":                   `{}`,
		"/lens/iris":                        `{"continuousApertureAutoExposure":false,"apertureStop":2.8,"normalised":0.2,"apertureNumber":280}`,
		"/lens/zoom":                        `{"focalLength":35,"normalised":0.1}`,
		"/video/iso":                        `{"iso":400}`,
		"/video/gain":                       `{"gain":0}`,
		"/video/shutter":                    `{"continuousShutterAutoExposure":false,"shutterSpeed":50}`,
		"/video/whiteBalance":               `{"whiteBalance":5600}`,
		"/video/whiteBalanceTint":           `{"whiteBalanceTint":0}`,
		"/video/ndFilter":                   `{"stop":0}`,
		"/video/autoExposure":               `{"mode":"Off","type":""}`,
		"/colorCorrection/lift":             `{"red":0,"green":0,"blue":0,"luma":0}`,
		"/colorCorrection/gamma":            `{"red":0,"green":0,"blue":0,"luma":0}`,
		"/colorCorrection/gain":             `{"red":1,"green":1,"blue":1,"luma":1}`,
		"/colorCorrection/offset":           `{"red":0,"green":0,"blue":0,"luma":0}`,
		"/colorCorrection/contrast":         `{"pivot":0.5,"adjust":1}`,
		"/colorCorrection/color":            `{"hue":0,"saturation":1}`,
		"/colorCorrection/lumaContribution": `{"lumaContribution":1}`,
	}
}

// AddCamera registers host with DefaultProperties
func (s *Simulator) AddCamera(host string) *Camera {
	cam := &Camera{
		properties:  make(map[string]json.RawMessage),
		status:      make(map[string]int),
		crossOrigin: make(map[string]bool),
	}
	for path, body := range DefaultProperties() {
		cam.properties[path] = json.RawMessage(body)
	}

	s.mu.Lock()
	s.cameras[host] = cam
	s.mu.Unlock()
	return cam
}

func (s *Simulator) Camera(host string) *Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameras[host]
}

// Set replaces a property body
func (c *Camera) Set(path, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[path] = json.RawMessage(body)
}

// Get returns the current body of a property
func (c *Camera) Get(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.properties[path]
	return string(b), ok
}

// Remove makes the camera answer 404 for path
func (c *Camera) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.properties, path)
}

// FailWith makes every request to path answer with status
func (c *Camera) FailWith(path string, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[path] = status
}

// BlockCrossOrigin makes requests to path fail as a browser would
func (c *Camera) BlockCrossOrigin(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.crossOrigin[path] = true
}

func (c *Camera) SetUnreachable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unreachable = v
}

// Calls returns every request seen so far
func (s *Simulator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Puts returns only the PUT requests
func (s *Simulator) Puts() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == http.MethodPut {
			out = append(out, c)
		}
	}
	return out
}

func (s *Simulator) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Simulator) Do(_ context.Context, method, rawURL string, body any) (*client.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(u.Path, apiPrefix)

	var payload json.RawMessage
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Host: u.Host, Path: path, Body: payload})
	cam := s.cameras[u.Host]
	s.mu.Unlock()

	if cam == nil {
		return nil, fmt.Errorf("dial tcp: lookup %s: no such host", u.Host)
	}
	return cam.handle(method, path, payload)
}

func (c *Camera) handle(method, path string, payload json.RawMessage) (*client.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unreachable {
		return nil, errors.New("dial tcp: connect: connection refused")
	}
	if c.crossOrigin[path] {
		return nil, fmt.Errorf("%s %s: %w", method, path, client.ErrCrossOriginRestricted)
	}
	if code, ok := c.status[path]; ok {
		return &client.Response{Status: code, StatusText: http.StatusText(code)}, nil
	}

	current, ok := c.properties[path]
	if !ok {
		return &client.Response{Status: http.StatusNotFound, StatusText: http.StatusText(http.StatusNotFound)}, nil
	}

	switch method {
	case http.MethodGet:
		return &client.Response{Status: http.StatusOK, StatusText: "OK", Body: current}, nil
	case http.MethodPut:
		merged, err := merge(current, payload)
		if err != nil {
			return &client.Response{Status: http.StatusBadRequest, StatusText: http.StatusText(http.StatusBadRequest)}, nil
		}
		c.properties[path] = merged
		return &client.Response{Status: http.StatusOK, StatusText: "OK"}, nil
	}
	return &client.Response{Status: http.StatusMethodNotAllowed, StatusText: http.StatusText(http.StatusMethodNotAllowed)}, nil
}

// merge overlays the keys of patch onto base, the way the camera treats a
// partial PUT body
func merge(base, patch json.RawMessage) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &obj); err != nil {
			return nil, err
		}
	}
	if len(patch) == 0 {
		return json.Marshal(obj)
	}
	var upd map[string]json.RawMessage
	if err := json.Unmarshal(patch, &upd); err != nil {
		return nil, err
	}
	for k, v := range upd {
		obj[k] = v
	}
	return json.Marshal(obj)
}

// ManualScheduler records scheduled callbacks instead of running them
type ManualScheduler struct {
	mu      sync.Mutex
	delays  []time.Duration
	pending []func()
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, fn)
}

// Delays lists every delay requested so far
func (m *ManualScheduler) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

// RunPending fires the queued callbacks in order
func (m *ManualScheduler) RunPending() {
	m.mu.Lock()
	fns := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

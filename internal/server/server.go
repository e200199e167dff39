// Package server exposes the control panel over HTTP for browser clients:
// a JSON API for every panel operation and a websocket that streams the
// projected View.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/preset"
)

// Server holds the HTTP dependencies
type Server struct {
	Session *camera.Session
	Presets *preset.Engine
	Hub     *Hub
	Logger  *slog.Logger

	upgrader websocket.Upgrader
}

func New(session *camera.Session, presets *preset.Engine, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Session: session,
		Presets: presets,
		Hub:     hub,
		Logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.Hub.Len()})
	})
	r.Get("/ws", s.serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/cameras", s.getCameras)
		r.Post("/cameras/connect-all", s.connectAll)
		r.Post("/cameras/{slot}/connect", s.connect)
		r.Put("/current", s.switchCurrent)
		r.Post("/refresh", s.refresh)

		r.Get("/properties/*", s.getProperty)
		r.Put("/properties/*", s.putProperty)
		r.Post("/request", s.manualRequest)

		r.Post("/edits/{field}", s.beginEdit)
		r.Put("/edits/{field}", s.commitEdit)
		r.Delete("/edits/{field}", s.releaseEdit)

		r.Route("/presets", func(r chi.Router) {
			r.Post("/capture", s.capturePreset)
			r.Get("/export", s.exportPreset)
			r.Post("/apply", s.applyPreset)
			r.Post("/copy", s.copyPreset)
			r.Post("/paste", s.pastePreset)
		})
	})
	return r
}

// RefreshLoop polls the current camera every interval until ctx ends
func (s *Server) RefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur, connected := s.Session.Slot(s.Session.Current())
			if !connected {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, interval*4)
			if err := s.Session.Refresh(rctx); err != nil {
				s.Logger.Debug("poll failed", "slot", cur.Index+1, "error", err)
			}
			cancel()
		}
	}
}

// --- Camera handlers ---

func (s *Server) getCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Session.Snapshot(r.Context()))
}

type connectRequest struct {
	Hostname string `json:"hostname"`
	Secure   bool   `json:"secure"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	idx, err := slotParam(r)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	var req connectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if err := s.Session.Connect(r.Context(), idx, strings.TrimSpace(req.Hostname), req.Secure); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	slot, _ := s.Session.Slot(idx)
	writeJSON(w, http.StatusOK, slot)
}

type bulkResponse struct {
	Connected int               `json:"connected"`
	Attempted int               `json:"attempted"`
	Summary   string            `json:"summary"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func (s *Server) connectAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secure bool `json:"secure"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	res := s.Session.BulkConnect(r.Context(), req.Secure)

	out := bulkResponse{Connected: res.Connected, Attempted: res.Attempted, Summary: res.String()}
	for i, err := range res.Errors {
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[strconv.Itoa(i+1)] = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) switchCurrent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot int `json:"slot"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	// a refresh failure still leaves the slot selected
	if err := s.Session.SwitchCurrent(r.Context(), req.Slot-1); err != nil && s.Session.Current() != req.Slot-1 {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Session.Snapshot(r.Context()))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Refresh(r.Context()); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Session.Snapshot(r.Context()))
}

// --- Property handlers ---

type propertyResponse struct {
	Path      string          `json:"path"`
	Available bool            `json:"available"`
	Value     json.RawMessage `json:"value,omitempty"`
}

func (s *Server) getProperty(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")

	var (
		v         json.RawMessage
		available bool
		err       error
	)
	if r.URL.Query().Get("cached") == "true" {
		v, available = s.Session.ReadProperty(path)
	} else {
		v, available, err = s.Session.FetchAndCache(r.Context(), path)
	}
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, propertyResponse{Path: path, Available: available, Value: v})
}

func (s *Server) putProperty(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")

	var body json.RawMessage
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if len(body) == 0 {
		writeError(w, r, s.Logger, fmt.Errorf("empty property body: %w", errBadRequest))
		return
	}
	if err := s.Session.PushProperty(r.Context(), path, body); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type manualRequest struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type manualResponse struct {
	Status     int             `json:"status"`
	StatusText string          `json:"statusText"`
	Body       json.RawMessage `json:"body,omitempty"`
}

func (s *Server) manualRequest(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if req.Method == "" || req.Path == "" {
		writeError(w, r, s.Logger, fmt.Errorf("method and path are required: %w", errBadRequest))
		return
	}

	resp, err := s.Session.Request(r.Context(), req.Method, req.Path, req.Body)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, manualResponse{Status: resp.Status, StatusText: resp.StatusText, Body: resp.Body})
}

// --- Edit lock handlers ---

func (s *Server) beginEdit(w http.ResponseWriter, r *http.Request) {
	f, err := fieldParam(r)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.Session.BeginEdit(f)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) releaseEdit(w http.ResponseWriter, r *http.Request) {
	f, err := fieldParam(r)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	s.Session.Release(f)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) commitEdit(w http.ResponseWriter, r *http.Request) {
	f, err := fieldParam(r)
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	if err := s.Session.CommitValue(r.Context(), f, req.Value); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Preset handlers ---

func (s *Server) capturePreset(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Presets.Capture(r.Context())
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) exportPreset(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "preset"
	}
	doc, err := s.Presets.Capture(r.Context())
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", preset.FileName(name)))
	if err := preset.WriteFile(w, name, doc, time.Now()); err != nil {
		s.Logger.Warn("write preset download", "error", err)
	}
}

func (s *Server) applyPreset(w http.ResponseWriter, r *http.Request) {
	file, err := s.Presets.ApplyFile(r.Context(), http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": file.Name, "applied": file.Settings.Keys()})
}

func (s *Server) copyPreset(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Presets.Copy(r.Context())
	if err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) pastePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.Presets.Paste(r.Context()); err != nil {
		writeError(w, r, s.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- WebSocket ---

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	id := uuid.NewString()
	ch := s.Hub.Register(id)
	s.Logger.Info("panel connected", "client", id, "remote", r.RemoteAddr)

	// the read side only exists to notice the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.Hub.Unregister(id)
		conn.Close()
		s.Logger.Info("panel disconnected", "client", id)
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// --- helpers ---

func slotParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || n < 1 || n > camera.Slots {
		return 0, camera.ErrInvalidIndex
	}
	return n - 1, nil
}

func fieldParam(r *http.Request) (camera.Field, error) {
	f, err := camera.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, errBadRequest)
	}
	return f, nil
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %v: %w", err, errBadRequest)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %v: %w", err, errBadRequest)
	}
	return nil
}

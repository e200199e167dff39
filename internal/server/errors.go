package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"bm-camera-control/internal/camera"
	"bm-camera-control/internal/preset"
)

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Status    int    `json:"cameraStatus,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// classify maps an operation error onto an HTTP status and a short kind the
// browser panel can switch on
func classify(err error) (int, string) {
	var (
		conn      *camera.ConnectivityError
		httpErr   *camera.HTTPStatusError
		malformed *preset.MalformedFileError
	)
	switch {
	case errors.Is(err, camera.ErrCrossOriginRestricted):
		return http.StatusBadGateway, "cross_origin"
	case errors.As(err, &conn):
		return http.StatusBadGateway, "connectivity"
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, "camera_status"
	case errors.Is(err, camera.ErrNoActiveCamera):
		return http.StatusConflict, "no_active_camera"
	case errors.Is(err, preset.ErrEmptyClipboard):
		return http.StatusConflict, "empty_clipboard"
	case errors.Is(err, preset.ErrNothingCaptured):
		return http.StatusUnprocessableEntity, "nothing_captured"
	case errors.As(err, &malformed):
		return http.StatusBadRequest, "malformed_preset"
	case errors.Is(err, camera.ErrEmptyHostname),
		errors.Is(err, camera.ErrInvalidIndex),
		errors.Is(err, camera.ErrInvalidValue),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	}
	return http.StatusInternalServerError, "internal"
}

var errBadRequest = errors.New("bad request")

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, kind := classify(err)
	body := errorBody{Error: err.Error(), Kind: kind, RequestID: middleware.GetReqID(r.Context())}

	var httpErr *camera.HTTPStatusError
	if errors.As(err, &httpErr) {
		body.Status = httpErr.Status
	}

	if status >= http.StatusInternalServerError {
		logger.Warn("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

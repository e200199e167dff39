package camera

import (
	"errors"
	"fmt"

	"bm-camera-control/internal/client"
)

var (
	ErrNoActiveCamera = errors.New("no camera connected in the selected slot")
	ErrEmptyHostname  = errors.New("hostname is empty")
	ErrInvalidIndex   = fmt.Errorf("camera slot out of range (%d slots)", Slots)
	ErrInvalidValue   = errors.New("invalid field value")

	// ErrCrossOriginRestricted marks a request the browser policy refused; the
	// camera never saw it.
	ErrCrossOriginRestricted = client.ErrCrossOriginRestricted
)

// ConnectivityError is a transport failure: bad hostname, refused, timed out
type ConnectivityError struct {
	Host string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Host, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// HTTPStatusError is a response with status >= 300 (404 on GET excepted)
type HTTPStatusError struct {
	Method     string
	Path       string
	Status     int
	StatusText string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s failed: %d %s", e.Method, e.Path, e.Status, e.StatusText)
}

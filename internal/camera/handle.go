package camera

import (
	"encoding/json"
	"fmt"
)

// APIPrefix is where every camera mounts its REST API
const APIPrefix = "/control/api/v1"

// Handle is one connected camera and its last known property values
type Handle struct {
	Hostname string
	Secure   bool
	Active   bool

	cache map[string]json.RawMessage
}

func newHandle(hostname string, secure bool) *Handle {
	return &Handle{
		Hostname: hostname,
		Secure:   secure,
		cache:    make(map[string]json.RawMessage),
	}
}

// BaseURL is scheme://hostname/control/api/v1
func (h *Handle) BaseURL() string {
	scheme := "http"
	if h.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, h.Hostname, APIPrefix)
}

func (h *Handle) URL(path string) string {
	return h.BaseURL() + path
}

func (h *Handle) snapshot() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(h.cache))
	for k, v := range h.cache {
		out[k] = v
	}
	return out
}

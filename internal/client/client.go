package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrCrossOriginRestricted is returned when Origin enforcement is on and the
// camera's response does not allow that origin. A browser would have blocked
// the request, so callers must assume nothing took effect.
var ErrCrossOriginRestricted = errors.New("request blocked by cross-origin policy")

type CameraClient struct {
	HTTP   *resty.Client
	Config ClientConfig
}

type ClientConfig struct {
	Timeout time.Duration
	// Origin, when set, is sent with every request and the response must carry a
	// matching Access-Control-Allow-Origin header.
	Origin string
	// Cameras ship with self-signed certificates
	InsecureTLS bool
}

// Response is the transport-level result of one request
type Response struct {
	Status     int
	StatusText string
	Body       json.RawMessage
}

func (r *Response) IsError() bool {
	return r.Status >= 300
}

func New(cfg ClientConfig) *CameraClient {
	r := resty.New()
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")

	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}
	if cfg.InsecureTLS {
		r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.Origin != "" {
		r.SetHeader("Origin", cfg.Origin)
	}

	return &CameraClient{
		HTTP:   r,
		Config: cfg,
	}
}

// Do performs one blocking request against a full URL. A nil body sends none.
// Transport failures come back as errors; HTTP error statuses do not.
func (c *CameraClient) Do(ctx context.Context, method, url string, body any) (*Response, error) {
	req := c.HTTP.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}

	if c.Config.Origin != "" && !originAllowed(resp.Header().Get("Access-Control-Allow-Origin"), c.Config.Origin) {
		return nil, fmt.Errorf("%s %s: %w", method, url, ErrCrossOriginRestricted)
	}

	out := &Response{
		Status:     resp.StatusCode(),
		StatusText: statusText(resp),
	}

	raw := resp.Body()
	if len(raw) > 0 && json.Valid(raw) {
		out.Body = json.RawMessage(raw)
	}

	return out, nil
}

func originAllowed(allowed, origin string) bool {
	return allowed == "*" || strings.EqualFold(allowed, origin)
}

// statusText strips the numeric prefix resty keeps in Status()
func statusText(resp *resty.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status(), fmt.Sprint(resp.StatusCode())))
	if text == "" {
		text = http.StatusText(resp.StatusCode())
	}
	return text
}

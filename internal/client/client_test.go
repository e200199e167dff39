package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDo(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/control/api/v1/video/gain":
			if r.Method == http.MethodPut {
				b, _ := io.ReadAll(r.Body)
				gotBody = string(b)
				w.WriteHeader(http.StatusOK)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"gain":6}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api := New(ClientConfig{Timeout: 2 * time.Second})
	ctx := context.Background()

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantBody   string
	}{
		{"get known property", http.MethodGet, "/control/api/v1/video/gain", nil, 200, `{"gain":6}`},
		{"put property", http.MethodPut, "/control/api/v1/video/gain", map[string]int{"gain": 4}, 200, ""},
		{"unsupported property", http.MethodGet, "/control/api/v1/lens/iris", nil, 404, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := api.Do(ctx, tc.method, srv.URL+tc.path, tc.body)
			if err != nil {
				t.Fatalf("Do returned error: %v", err)
			}
			if resp.Status != tc.wantStatus {
				t.Errorf("status: got %d, want %d", resp.Status, tc.wantStatus)
			}
			if tc.wantBody != "" && string(resp.Body) != tc.wantBody {
				t.Errorf("body: got %s, want %s", resp.Body, tc.wantBody)
			}
			if resp.Status == 404 && resp.StatusText != "Not Found" {
				t.Errorf("status text: got %q", resp.StatusText)
			}
		})
	}

	var sent map[string]int
	if err := json.Unmarshal([]byte(gotBody), &sent); err != nil || sent["gain"] != 4 {
		t.Errorf("PUT body: got %q", gotBody)
	}
}

func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	api := New(ClientConfig{Timeout: time.Second})
	if _, err := api.Do(context.Background(), http.MethodGet, url+"/control/api/v1/system", nil); err == nil {
		t.Fatal("expected transport error from closed server")
	}
}

func TestDoCrossOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	api := New(ClientConfig{Origin: "http://panel.local"})
	ctx := context.Background()

	if _, err := api.Do(ctx, http.MethodPut, srv.URL+"/closed", map[string]int{"gain": 1}); !errors.Is(err, ErrCrossOriginRestricted) {
		t.Errorf("expected ErrCrossOriginRestricted, got %v", err)
	}
	if _, err := api.Do(ctx, http.MethodPut, srv.URL+"/open", map[string]int{"gain": 1}); err != nil {
		t.Errorf("wildcard origin should pass, got %v", err)
	}
}

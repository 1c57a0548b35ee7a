package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mcdev12/pollroom/go/internal/serverconfig"
)

func testConfig() serverconfig.Config {
	return serverconfig.Config{
		Port:         "0",
		ClientOrigin: "http://localhost:5173",
		LogLevel:     "error",
		NATS:         serverconfig.NATSConfig{Stream: "CLASSROOM_EVENTS", SubjectPrefix: "classroom.events"},
		WebSocket:    serverconfig.WebSocketConfig{MaxMessageSize: 4096, PingInterval: time.Second},
	}
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := testConfig()

	ctx, cancel := context.WithCancel(context.Background())
	services, err := setupServices(ctx, cfg)
	if err != nil {
		t.Fatalf("setup services: %v", err)
	}
	var wg sync.WaitGroup
	services.start(ctx, &wg)

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		wg.Wait()
	})
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := startTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/health", want: http.StatusOK},
		{method: http.MethodGet, path: "/poll-history", want: http.StatusOK},
		{method: http.MethodPost, path: "/teacher-login", want: http.StatusOK},
		{method: http.MethodGet, path: "/info", want: http.StatusOK},
		{method: http.MethodGet, path: "/ws/stats", want: http.StatusOK},
		{method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestServer_CORS(t *testing.T) {
	srv := startTestServer(t)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "AllowedOrigin", origin: "http://localhost:5173", want: "http://localhost:5173"},
		{name: "OtherOrigin", origin: "http://evil.test", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
			req.Header.Set("Origin", tt.origin)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			resp.Body.Close()
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("expected allow-origin %q, got %q", tt.want, got)
			}
		})
	}
}

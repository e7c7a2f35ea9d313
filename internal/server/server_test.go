package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"framestream-go/internal/config"
	"framestream-go/internal/metrics"
	"framestream-go/internal/types"
)

func newTestServer(live *config.Live) *Server {
	return New(Options{
		Live:   live,
		Status: func() map[string]any { return map[string]any{"run_id": "abc", "subscriber_detected": true} },
		Config: func() map[string]any {
			return map[string]any{"endpoint": "tcp://0.0.0.0:55556", "rgb_width": 512}
		},
		Metrics:   metrics.New().Handler(),
		PushEvery: 20 * time.Millisecond,
		Logger:    zerolog.Nop(),
	})
}

func TestHandleConfig(t *testing.T) {
	srv := newTestServer(config.NewLive(config.Frequencies{RGBHz: 15, DepthHz: 5}))

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["rgb_hz"].(float64) != 15 {
		t.Fatalf("unexpected rgb_hz: %v", payload["rgb_hz"])
	}
	if payload["depth_hz"].(float64) != 5 {
		t.Fatalf("unexpected depth_hz: %v", payload["depth_hz"])
	}
	if payload["endpoint"] != "tcp://0.0.0.0:55556" {
		t.Fatalf("unexpected endpoint: %v", payload["endpoint"])
	}
}

func TestHandleConfigUpdate(t *testing.T) {
	live := config.NewLive(config.Frequencies{RGBHz: 15, DepthHz: 5})
	srv := newTestServer(live)

	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
		want     config.Frequencies
	}{
		{"partial update", "POST", `{"depth_hz": 2}`, http.StatusOK, config.Frequencies{RGBHz: 15, DepthHz: 2}},
		{"pause rgb", "POST", `{"rgb_hz": 0}`, http.StatusOK, config.Frequencies{RGBHz: 0, DepthHz: 2}},
		{"unknown key", "POST", `{"fps": 9}`, http.StatusBadRequest, config.Frequencies{RGBHz: 0, DepthHz: 2}},
		{"not json", "POST", `rgb=3`, http.StatusBadRequest, config.Frequencies{RGBHz: 0, DepthHz: 2}},
		{"wrong method", "PUT", `{}`, http.StatusMethodNotAllowed, config.Frequencies{RGBHz: 0, DepthHz: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.handleConfig(rec, httptest.NewRequest(tt.method, "/config", strings.NewReader(tt.body)))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got := live.Snapshot(); got != tt.want {
				t.Fatalf("frequencies = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["run_id"] != "abc" || payload["ws_clients"].(float64) != 0 {
		t.Fatalf("unexpected status %v", payload)
	}
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(nil)
	h, err := srv.Handler()
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(h)
	defer ts.Close()

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "framestream_frames_dropped_total",
		"/":        "framestream publisher",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != 200 || !strings.Contains(string(body), want) {
			t.Fatalf("GET %s = %d, body missing %q", path, resp.StatusCode, want)
		}
	}
}

func TestWebsocketPushesStatus(t *testing.T) {
	srv := newTestServer(config.NewLive(config.Frequencies{RGBHz: 15, DepthHz: 5}))
	h, err := srv.Handler()
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, h) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve error: %v", err)
		}
	}()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first types.StatusMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read config message: %v", err)
	}
	if first.Type != "config" || first.Data["rgb_hz"].(float64) != 15 {
		t.Fatalf("unexpected first message %+v", first)
	}

	var push types.StatusMessage
	if err := conn.ReadJSON(&push); err != nil {
		t.Fatalf("read status push: %v", err)
	}
	if push.Type != "status" || push.Data["ws_clients"].(float64) != 1 {
		t.Fatalf("unexpected push %+v", push)
	}
}

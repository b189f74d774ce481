package httpserver

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

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/rtstream/internal/config"
	"github.com/rzbill/rtstream/internal/runtime"
	logpkg "github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream"
	"github.com/rzbill/rtstream/pkg/stream/streamtest"
)

func newRuntime(t *testing.T, reg prometheus.Registerer) (*runtime.Runtime, *streamtest.Transport) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.URL = "mem://feed"
	cfg.Kind = "duplex"
	cfg.Name = "feed"
	tr := streamtest.NewTransport()
	rt, err := runtime.Open(runtime.Options{Config: cfg, Transport: tr, Registerer: reg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt, tr
}

func testLogger() logpkg.Logger {
	logger, _ := logpkg.ApplyConfig(logpkg.Config{Level: "error", Format: "text", Output: "null"})
	return logger
}

func getHealth(t *testing.T, s *Server) (int, healthResp) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	var resp healthResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return w.Code, resp
}

func TestHealthHandler(t *testing.T) {
	rt, _ := newRuntime(t, nil)
	s := New(rt, nil, testLogger())

	code, resp := getHealth(t, s)
	if code != http.StatusServiceUnavailable || resp.State != "idle" || resp.Status != "not_serving" {
		t.Fatalf("idle health: %d %+v", code, resp)
	}

	rt.Client().Connect()
	deadline := time.Now().Add(2 * time.Second)
	for rt.Client().State() != stream.StateOpen {
		if time.Now().After(deadline) {
			t.Fatalf("client never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	code, resp = getHealth(t, s)
	if code != http.StatusOK || resp.State != "open" || resp.Endpoint != "feed" {
		t.Fatalf("open health: %d %+v", code, resp)
	}
	if resp.ClientID != rt.Client().ID() || resp.Recorded != nil {
		t.Fatalf("unexpected body %+v", resp)
	}
}

func TestHealthRejectsPost(t *testing.T) {
	rt, _ := newRuntime(t, nil)
	s := New(rt, nil, testLogger())
	req := httptest.NewRequest(http.MethodPost, "/v1/healthz", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt, _ := newRuntime(t, reg)
	s := New(rt, reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `rtstream_connection_state{endpoint="feed"} 0`) {
		t.Fatalf("missing state gauge:\n%s", w.Body.String())
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	rt, _ := newRuntime(t, nil)
	s := New(rt, nil, testLogger())
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	res, err := http.Get("http://" + l.Addr().String() + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", res.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("server did not shut down")
	}
}

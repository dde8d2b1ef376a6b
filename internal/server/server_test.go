package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"search-agent/internal/config"
)

type stubAgent struct{}

func (stubAgent) HandleAgentRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	io.WriteString(w, "data: {\"type\":\"RUN_FINISHED\"}\n\n")
}

func newTestServer(t *testing.T, logger *zap.Logger) (*Server, *prometheus.Registry) {
	t.Helper()
	cfg := config.Defaults()
	reg := prometheus.NewRegistry()
	s, err := New(&cfg, stubAgent{}, reg, logger)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, reg
}

func TestServer_Routes(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		method, path string
		status       int
		contains     string
	}{
		{http.MethodGet, EndpointHealth, http.StatusOK, "ok"},
		{http.MethodPost, EndpointSSE, http.StatusOK, "RUN_FINISHED"},
		{http.MethodGet, EndpointMetrics, http.StatusOK, "search_agent_http_requests_total"},
		{http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if !strings.Contains(rec.Body.String(), tc.contains) {
				t.Errorf("body %q does not contain %q", rec.Body.String(), tc.contains)
			}
		})
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, EndpointSSE, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("preflight should not reach the agent, body = %q", rec.Body.String())
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s, reg := newTestServer(t, zap.New(core))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d request log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/missing" || fields["status"] != int64(http.StatusNotFound) {
		t.Errorf("log fields = %v", fields)
	}

	if n := testutil.CollectAndCount(reg, "search_agent_http_requests_total"); n != 1 {
		t.Errorf("request counter series = %d, want 1", n)
	}
}

func TestServer_DuplicateRegistration(t *testing.T) {
	cfg := config.Defaults()
	reg := prometheus.NewRegistry()
	if _, err := New(&cfg, stubAgent{}, reg, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := New(&cfg, stubAgent{}, reg, nil); err == nil {
		t.Error("second server on the same registry should fail to register metrics")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + EndpointHealth)
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := <-done; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Serve() returned %v, want ErrServerClosed", err)
	}
}

package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"search-agent/internal/config"
)

const (
	// EndpointSSE is the AG-UI agent endpoint over Server-Sent Events
	EndpointSSE = "/sse"
	// EndpointHealth reports liveness
	EndpointHealth = "/healthz"
	// EndpointMetrics exposes Prometheus metrics
	EndpointMetrics = "/metrics"
)

// AgentHandler is the agent endpoint served under EndpointSSE.
type AgentHandler interface {
	HandleAgentRequest(w http.ResponseWriter, r *http.Request)
}

// Server represents the HTTP server hosting the agent
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// New creates a server for the agent handler. Metrics in reg are served
// under EndpointMetrics; the server registers its own request counter there.
func New(cfg *config.Config, h AgentHandler, reg *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_agent_http_requests_total",
			Help: "HTTP requests served by the agent host",
		},
		[]string{"path", "code"},
	)
	if err := reg.Register(requests); err != nil {
		return nil, fmt.Errorf("failed to register server metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(EndpointSSE, h.HandleAgentRequest)
	mux.HandleFunc(EndpointHealth, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "ok")
	})
	mux.Handle(EndpointMetrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           CORS(Logging(logger, requests, mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve serves on ln until shutdown. It returns http.ErrServerClosed after
// a graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("agent host listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("sse_endpoint", EndpointSSE),
	)
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

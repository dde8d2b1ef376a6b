// Package deploy makes a validated agent reachable as a long-running
// service and records what was deployed.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"gopkg.in/yaml.v3"

	"search-agent/internal/config"
	"search-agent/internal/handler"
	"search-agent/internal/server"
	"search-agent/internal/session"
	"search-agent/internal/stream"
)

// ManifestFile is the name of the manifest written under the staging location.
const ManifestFile = "deployment.yaml"

// ErrAlreadyDeployed is returned when a Host is asked to deploy twice.
var ErrAlreadyDeployed = errors.New("an agent is already deployed on this host")

// Spec describes what to deploy.
type Spec struct {
	DisplayName  string
	Requirements []string
}

// Deployment identifies a deployed agent.
type Deployment struct {
	ID           string    `yaml:"id"`
	DisplayName  string    `yaml:"display_name"`
	AgentName    string    `yaml:"agent_name"`
	Endpoint     string    `yaml:"endpoint"`
	Requirements []string  `yaml:"requirements"`
	CreatedAt    time.Time `yaml:"created_at"`
	// ManifestPath is where the manifest was written; empty when skipped.
	ManifestPath string `yaml:"-"`
}

// Deployer turns an agent into a running service.
type Deployer interface {
	Deploy(ctx context.Context, a agent.Agent, spec Spec) (*Deployment, error)
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithListener serves on ln instead of listening on the configured port.
func WithListener(ln net.Listener) HostOption {
	return func(h *Host) {
		h.listener = ln
	}
}

// Host deploys an agent by serving it over HTTP from this process.
type Host struct {
	cfg      *config.Config
	registry *prometheus.Registry
	logger   *zap.Logger
	listener net.Listener

	mu     sync.Mutex
	server *server.Server
	done   chan error
}

var _ Deployer = (*Host)(nil)

// NewHost creates a Host. Metrics in reg are exposed by the hosted server.
func NewHost(cfg *config.Config, reg *prometheus.Registry, logger *zap.Logger, opts ...HostOption) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		cfg:      cfg,
		registry: reg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Deploy starts serving a and records a manifest in the staging location.
func (h *Host) Deploy(ctx context.Context, a agent.Agent, spec Spec) (*Deployment, error) {
	if spec.DisplayName == "" {
		return nil, errors.New("deploy: display name is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server != nil {
		return nil, ErrAlreadyDeployed
	}

	sessions := session.NewManager(h.cfg.AppName, h.logger)
	streamer, err := stream.NewStreamer(a, sessions, h.cfg.Agent.Timeout, h.logger)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}

	// A listener passed through WithListener belongs to the caller until
	// serving starts.
	ln := h.listener
	owned := ln == nil
	if owned {
		var lc net.ListenConfig
		ln, err = lc.Listen(ctx, "tcp", ":"+h.cfg.Server.Port)
		if err != nil {
			return nil, fmt.Errorf("deploy: failed to listen on port %s: %w", h.cfg.Server.Port, err)
		}
	}
	release := func() {
		if owned {
			ln.Close()
		}
	}

	dep := &Deployment{
		ID:           uuid.NewString(),
		DisplayName:  spec.DisplayName,
		AgentName:    a.Name(),
		Endpoint:     "http://" + ln.Addr().String() + server.EndpointSSE,
		Requirements: spec.Requirements,
		CreatedAt:    time.Now().UTC(),
	}

	path, err := h.writeManifest(dep)
	if err != nil {
		release()
		return nil, err
	}
	dep.ManifestPath = path

	// Last fallible step: it registers the server metrics in h.registry.
	srv, err := server.New(h.cfg, handler.NewHandler(streamer, h.logger), h.registry, h.logger)
	if err != nil {
		release()
		return nil, fmt.Errorf("deploy: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
		close(done)
	}()
	h.server = srv
	h.done = done

	h.logger.Info("agent deployed",
		zap.String("deployment_id", dep.ID),
		zap.String("display_name", dep.DisplayName),
		zap.String("endpoint", dep.Endpoint),
		zap.Strings("requirements", dep.Requirements),
	)
	return dep, nil
}

// Done is closed after the hosted server stops; it carries the serve error,
// if any. It is nil before Deploy.
func (h *Host) Done() <-chan error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Shutdown stops serving the deployed agent.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	srv, done := h.server, h.done
	h.server = nil
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("deploy: shutdown: %w", err)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeManifest stores dep under <staging>/<display name>/. Object storage
// locations are not written to; they are logged and skipped.
func (h *Host) writeManifest(dep *Deployment) (string, error) {
	staging := h.cfg.StagingBucket
	switch {
	case staging == "":
		h.logger.Warn("no staging location configured, deployment manifest not written")
		return "", nil
	case strings.HasPrefix(staging, "gs://"):
		h.logger.Warn("object storage staging is not supported by the local host, deployment manifest not written",
			zap.String("staging_bucket", staging))
		return "", nil
	}

	dir := filepath.Join(strings.TrimPrefix(staging, "file://"), dep.DisplayName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("deploy: creating staging directory: %w", err)
	}

	data, err := yaml.Marshal(dep)
	if err != nil {
		return "", fmt.Errorf("deploy: encoding manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("deploy: writing manifest: %w", err)
	}
	return path, nil
}

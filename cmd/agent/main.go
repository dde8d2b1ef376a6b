package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	adkagent "google.golang.org/adk/agent"

	"search-agent/internal/agent"
	"search-agent/internal/config"
	"search-agent/internal/deploy"
	"search-agent/internal/search"
	"search-agent/internal/session"
	"search-agent/internal/stream"
	"search-agent/internal/tools"
	"search-agent/internal/validate"
)

const validationUserID = "validator"

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("agent failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("configuration loaded", zap.Any("config", cfg.Redacted()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Search tool
	searchClient := search.NewClient(cfg.Search, search.WithLogger(logger))
	reg.MustRegister(searchClient.Collectors()...)

	registry := tools.NewRegistry(logger)
	if err := registry.Register(tools.NewSearchTool(searchClient)); err != nil {
		return err
	}

	// Model and agent
	llm, err := agent.NewModel(ctx, cfg)
	if err != nil {
		return err
	}
	a, err := agent.New(cfg, llm, registry)
	if err != nil {
		return err
	}

	host, dep, err := validateAndDeploy(ctx, cfg, a, reg, logger, os.Stdout)
	if err != nil || host == nil {
		return err
	}
	fmt.Printf("Deployed %s (%s) at %s\n", dep.DisplayName, dep.ID, dep.Endpoint)

	// Wait for interrupt signal or host failure
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-host.Done():
		logger.Error("agent host stopped", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(serveErr, host.Shutdown(shutdownCtx))
}

// validateAndDeploy runs the validation query, echoing it and the agent's
// output to out, and deploys a when the answer passes the gate. It returns a
// nil host when the agent is not deployed.
func validateAndDeploy(ctx context.Context, cfg *config.Config, a adkagent.Agent, reg *prometheus.Registry, logger *zap.Logger, out io.Writer, opts ...deploy.HostOption) (*deploy.Host, *deploy.Deployment, error) {
	streamer, err := stream.NewStreamer(a, session.NewManager(cfg.AppName, logger), cfg.Agent.Timeout, logger)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintln(out, cfg.Agent.ValidationQuery)
	resp, err := streamer.Run(ctx, validationUserID, "", cfg.Agent.ValidationQuery, stream.WriterSink(out))
	fmt.Fprintln(out)
	if err != nil {
		return nil, nil, fmt.Errorf("validation query: %w", err)
	}

	gate := validate.NewGate(cfg.Agent.Refusals...)
	if err := gate.Check(resp.Output); err != nil {
		logger.Warn("Will not deploy",
			zap.String("reason", err.Error()),
			zap.Int("tool_calls", len(resp.ToolCalls)),
		)
		return nil, nil, nil
	}
	logger.Info("Model validated", zap.Int("tool_calls", len(resp.ToolCalls)))

	if !cfg.Agent.Deploy {
		logger.Info("deployment disabled, exiting")
		return nil, nil, nil
	}

	host := deploy.NewHost(cfg, reg, logger, opts...)
	dep, err := host.Deploy(ctx, a, deploy.Spec{
		DisplayName:  cfg.Agent.DisplayName,
		Requirements: cfg.Agent.Requirements,
	})
	if err != nil {
		return nil, nil, err
	}
	return host, dep, nil
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

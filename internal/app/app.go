package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vk/classweave/internal/artifact"
	"github.com/vk/classweave/internal/config"
	"github.com/vk/classweave/internal/metrics"
	"github.com/vk/classweave/internal/weaver"
)

// Loader resolves the pipeline configuration and the invocation manifest.
type Loader interface {
	config.Loader
	LoadInvocation(ctx context.Context, path string, outputs artifact.OutputProvider) (*artifact.Invocation, error)
}

// App encapsulates the dependencies and lifecycle of one classweave run.
type App struct {
	config   *Config
	logger   *slog.Logger
	loader   Loader
	weaver   weaver.Weaver
	registry *prometheus.Registry
	metrics  *metrics.Dispatch
	server   *http.Server
}

// NewApp builds an App that logs to outW. A nil weaver uses the verifying
// rewriter, which copies classes after checking them.
func NewApp(outW io.Writer, cfg *Config, loader Loader, w weaver.Weaver) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")
	if w == nil {
		w = weaver.NewRewriter(nil)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &App{
		config:   cfg,
		logger:   logger,
		loader:   loader,
		weaver:   w,
		registry: reg,
		metrics:  metrics.New(reg),
	}
}

// Registry returns the metrics registry. This is primarily for testing.
func (a *App) Registry() *prometheus.Registry { return a.registry }

package app

import (
	"context"
	"fmt"

	"github.com/vk/classweave/internal/ctxlog"
	"github.com/vk/classweave/internal/dispatch"
	"github.com/vk/classweave/internal/outputs"
)

// Run loads the manifest and configuration, then runs one transform. The
// manifest is read first because configuration expressions may depend on
// its variant.
func (a *App) Run(ctx context.Context) (*dispatch.Summary, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.MetricsPort > 0 {
		if _, err := a.startServer(a.config.MetricsPort); err != nil {
			return nil, err
		}
		defer a.stopServer(ctx)
	}

	provider := outputs.New(a.config.OutputDir)
	inv, err := a.loader.LoadInvocation(ctx, a.config.ManifestPath, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to load invocation: %w", err)
	}

	cfg, err := a.loader.LoadConfig(ctx, a.config.ConfigPath, a.config.PipelineName, inv.VariantName)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.logger.Debug("Configuration loaded.", "config", cfg.String())

	orch, err := dispatch.New(cfg, a.weaver, a.metrics)
	if err != nil {
		return nil, err
	}

	a.logger.Info("🚀 Starting transform...", "pipeline", cfg.Name, "variant", inv.VariantName)
	summary, err := orch.Transform(ctx, inv)
	if err != nil {
		return summary, fmt.Errorf("transform failed: %w", err)
	}
	a.logger.Info("🏁 Transform finished.", "run_id", summary.RunID, "skipped", summary.Skipped, "errors", len(summary.Errors))
	return summary, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// handler serves /health and the registry's /metrics.
func (a *App) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux
}

// startServer listens on port and serves in the background. It returns the
// bound address.
func (a *App) startServer(port int) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("metrics server: %w", err)
	}
	a.server = &http.Server{Handler: a.handler(), ReadHeaderTimeout: 5 * time.Second}
	addr := ln.Addr().String()

	go func() {
		a.logger.Info("📈 Metrics server starting", "address", "http://"+addr+"/metrics")
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed unexpectedly", "error", err)
		}
	}()
	return addr, nil
}

func (a *App) stopServer(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	a.logger.Debug("Shutting down metrics server.")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Metrics server shutdown failed", "error", err)
		return err
	}
	a.server = nil
	return nil
}

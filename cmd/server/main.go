package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/janisto/cloudrun-psitron/internal/config"
	"github.com/janisto/cloudrun-psitron/internal/http/routes"
	applog "github.com/janisto/cloudrun-psitron/internal/platform/logging"
	"github.com/janisto/cloudrun-psitron/internal/platform/metrics"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	ctx := context.Background()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		_ = applog.Sync()
		os.Exit(1)
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogWarn(ctx, "ignoring LOG_LEVEL", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	err = run(cfg, stop)
	if syncErr := applog.Sync(); syncErr != nil && err == nil {
		applog.LogError(ctx, "logger sync error", syncErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// run binds the listeners, serves until stop fires or a server fails, then
// shuts down within cfg.ShutdownTimeout. Bind errors are returned immediately.
func run(cfg *config.Config, stop <-chan os.Signal) error {
	ctx := context.Background()

	var collector *metrics.Collector
	if cfg.MetricsAddr() != "" {
		collector = metrics.NewCollector()
	}

	servers := []*http.Server{newServer(cfg.Addr(), routes.New(routes.Options{
		Environment: cfg.Environment,
		Version:     Version,
		Metrics:     collector,
	}))}
	if collector != nil {
		servers = append(servers, newServer(cfg.MetricsAddr(), metricsHandler(collector)))
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	serveErr := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, ln net.Listener) {
			applog.LogInfo(ctx, "server listening",
				zap.String("addr", srv.Addr),
				zap.String("environment", cfg.Environment),
				zap.String("version", Version),
			)
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv, listeners[i])
	}

	var runErr error
	select {
	case runErr = <-serveErr:
		applog.LogError(ctx, "server failed", runErr)
	case sig := <-stop:
		applog.LogInfo(ctx, "shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			applog.LogError(shutdownCtx, "server shutdown error", err, zap.String("addr", srv.Addr))
			runErr = errors.Join(runErr, err)
		}
	}
	applog.LogInfo(ctx, "server exited")
	return runErr
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}
}

func metricsHandler(c *metrics.Collector) http.Handler {
	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics", c.Handler())
	return router
}

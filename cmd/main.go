package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tallyops/clickerd/internal/adapters/ble"
	"github.com/tallyops/clickerd/internal/adapters/http/api"
	app "github.com/tallyops/clickerd/internal/app"
	"github.com/tallyops/clickerd/internal/config"
	"github.com/tallyops/clickerd/internal/simclicker"
	"github.com/tallyops/clickerd/pkg/logger"
	"github.com/tallyops/clickerd/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics;
	// the custom registry carries its own system metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	dialer, cleanup, err := buildDialer(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to build device transport: " + err.Error() + "\n")
		return
	}
	defer cleanup()

	svc := app.New(
		app.WithLogger(log),
		app.WithDialer(dialer),
		app.WithProjectsDir(cfg.ProjectsDir),
		app.WithQueueSize(cfg.AppendQueueSize),
		app.WithHubBufferSize(cfg.HubBufferSize),
		app.WithSessionTiming(
			time.Duration(cfg.SettleDelayMS)*time.Millisecond,
			time.Duration(cfg.HeartbeatIntervalMS)*time.Millisecond,
			time.Duration(cfg.ReconnectBackoffMS)*time.Millisecond,
		),
		app.WithCaptionTiming(cfg.BurstThresholdMS, cfg.CaptionHoldMS),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop(context.Background())

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildDialer selects the device transport. The platform GATT client
// plugs in behind the same boundary; without one, the simulated
// transport keeps the whole system operable.
func buildDialer(cfg *config.Config) (ble.Dialer, func(), error) {
	if !cfg.Simulate {
		return nil, func() {}, fmt.Errorf("%w: no platform transport compiled in; set simulate", config.ErrInvalidConfig)
	}

	opts := []simclicker.DialerOption{
		simclicker.WithAutoProvision(cfg.DeviceNamePrefix),
	}
	if cfg.SimClickIntervalMS > 0 {
		opts = append(opts, simclicker.WithAutoClicks(time.Duration(cfg.SimClickIntervalMS)*time.Millisecond))
	}
	dialer := simclicker.NewDialer(opts...)
	return dialer, dialer.Close, nil
}

// startSystemMetricsUpdater periodically refreshes system-level
// metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// internal/daemon/runner.go
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curvelaunch/internal/amm"
	"github.com/rovshanmuradov/curvelaunch/internal/config"
	"github.com/rovshanmuradov/curvelaunch/internal/dispatch"
	"github.com/rovshanmuradov/curvelaunch/internal/events"
	"github.com/rovshanmuradov/curvelaunch/internal/factory"
	"github.com/rovshanmuradov/curvelaunch/internal/logger"
	"github.com/rovshanmuradov/curvelaunch/internal/metrics"
	"github.com/rovshanmuradov/curvelaunch/internal/monitor"
	"github.com/rovshanmuradov/curvelaunch/internal/server"
	"github.com/rovshanmuradov/curvelaunch/internal/storage"
	"github.com/rovshanmuradov/curvelaunch/internal/storage/sqlite"
)

// Runner assembles the engine and serves it until a shutdown signal.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	store      storage.Storage
	bus        *events.Bus
	monitor    *monitor.GraduationMonitor
	srv        *server.Server
	shutdownCh chan os.Signal
}

// NewRunner loads configuration and wires the full engine stack.
func NewRunner(configPath string) (*Runner, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.Init(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := sqlite.NewStorage(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := store.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	venue := amm.NewLocal(log)
	bus := events.NewBus(log, 256)

	fac, err := factory.New(cfg, venue, store, collector, log, factory.WithEventBus(bus))
	if err != nil {
		return nil, fmt.Errorf("failed to build factory: %w", err)
	}

	// Audit log of everything the engine did, fed off the bus so the hot
	// path never waits on it.
	bus.SubscribeFunc(events.CurveGraduated, func(_ context.Context, ev events.Event) error {
		g := ev.(events.CurveGraduatedEvent)
		log.Info("graduation event",
			zap.String("mint", g.Mint.String()),
			zap.String("pool", g.Pool.String()),
			zap.String("strategy", g.Strategy))
		return nil
	})

	mon := monitor.New(fac, time.Duration(cfg.MonitorIntervalSeconds)*time.Second, log)
	srv := server.New(cfg.ListenAddr, dispatch.NewEngine(fac), log, registry)

	return &Runner{
		logger:     log,
		config:     cfg,
		store:      store,
		bus:        bus,
		monitor:    mon,
		srv:        srv,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Run serves until the context is cancelled or a signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return r.srv.Start(gCtx)
	})

	g.Go(func() error {
		return r.monitor.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("signal received", zap.String("signal", sig.String()))
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	err := g.Wait()
	r.shutdown()
	return err
}

func (r *Runner) shutdown() {
	r.logger.Info("shutting down")
	busCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.bus.Shutdown(busCtx); err != nil {
		r.logger.Warn("event bus did not drain", zap.Error(err))
	}
	if err := r.store.Close(); err != nil {
		r.logger.Error("failed to close storage", zap.Error(err))
	}
	if err := r.logger.Sync(); err != nil {
		if !os.IsNotExist(err) &&
			err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
		}
	}
}

// internal/monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/factory"
	"github.com/rovshanmuradov/curvelaunch/internal/token"
)

// DefaultInterval is how often the sweep runs when not configured.
const DefaultInterval = 30 * time.Second

// GraduationMonitor periodically sweeps the registry and graduates curves
// whose criteria hold. Trades trigger graduation on their own; the sweep
// covers curves that crossed a time-based criterion with no trade to carry
// them over.
type GraduationMonitor struct {
	factory  *factory.Factory
	interval time.Duration
	logger   *zap.Logger
}

// New creates a monitor over the given factory.
func New(f *factory.Factory, interval time.Duration, logger *zap.Logger) *GraduationMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &GraduationMonitor{
		factory:  f,
		interval: interval,
		logger:   logger.Named("monitor"),
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (m *GraduationMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("graduation monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("graduation monitor stopped")
			return nil
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep attempts graduation on every token still trading. Criteria misses
// are the common case and are not logged; real failures are.
func (m *GraduationMonitor) Sweep(ctx context.Context) int {
	graduated := 0
	for _, tok := range m.factory.List() {
		if tok.IsGraduated() {
			continue
		}
		_, err := m.factory.Graduate(ctx, tok.Mint())
		switch {
		case err == nil:
			graduated++
			m.logger.Info("curve graduated by sweep", zap.String("mint", tok.Mint().String()))
		case errors.Is(err, token.ErrGraduationCriteriaNotMet),
			errors.Is(err, token.ErrAlreadyGraduated):
			// Not ready, or a trade beat the sweep to it.
		default:
			m.logger.Warn("sweep graduation attempt failed",
				zap.String("mint", tok.Mint().String()),
				zap.Error(err))
		}
		if ctx.Err() != nil {
			return graduated
		}
	}
	return graduated
}

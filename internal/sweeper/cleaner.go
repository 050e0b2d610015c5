package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/torua-coordination/ringlock/internal/telemetry"
)

// Sweepable is anything that can garbage-collect its own expired state as of
// a given instant. lockapi.Manager and ephemeral.Manager both implement it.
type Sweepable interface {
	Sweep(now time.Time) error
}

// Cleaner is a single periodic worker driving one or more Sweepables on a
// shared interval, mirroring HealthMonitor's ticker-plus-context-cancellation
// shape. Unlike the source's three separate cleaner scripts, one Cleaner can
// drive any number of registries.
type Cleaner struct {
	interval time.Duration
	targets  []Sweepable
	now      func() time.Time
	logger   *zap.SugaredLogger
	metrics  *telemetry.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Cleaner that sweeps every target on each tick of interval.
// logger and metrics may be nil.
func New(interval time.Duration, logger *zap.SugaredLogger, metrics *telemetry.Metrics, targets ...Sweepable) *Cleaner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cleaner{
		interval: interval,
		targets:  targets,
		now:      time.Now,
		logger:   logger,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// WithClock overrides the cleaner's time source, for deterministic tests.
func (c *Cleaner) WithClock(now func() time.Time) *Cleaner {
	c.now = now
	return c
}

// Start begins the sweep loop in the current goroutine. It blocks until ctx
// (or the Cleaner's own internal context, canceled by Stop) is done. Pass
// nil to rely solely on Stop for shutdown.
func (c *Cleaner) Start(ctx context.Context) {
	c.wg.Add(1)
	defer c.wg.Done()

	if ctx == nil {
		ctx = c.ctx
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if c.logger != nil {
		c.logger.Infow("sweeper started", "interval", c.interval, "targets", len(c.targets))
	}

	for {
		select {
		case <-ticker.C:
			c.sweepAll()
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		}
	}
}

// Stop cancels the sweep loop and waits for it to exit.
func (c *Cleaner) Stop() {
	c.cancel()
	c.wg.Wait()
}

// sweepAll runs one sweep pass over every target, logging but not aborting
// on a target's error so one bad registry can't starve the others.
func (c *Cleaner) sweepAll() {
	now := c.now()
	for _, target := range c.targets {
		if err := target.Sweep(now); err != nil {
			if c.logger != nil {
				c.logger.Errorw("sweep failed", "error", err)
			}
			if c.metrics != nil {
				c.metrics.SweeperErrors.Inc()
			}
			continue
		}
		if c.metrics != nil {
			c.metrics.SweeperTicks.Inc()
		}
	}
}

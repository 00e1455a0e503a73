package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/portalauth/internal/auth/store"
)

const (
	DefaultCleanupInterval  = time.Hour
	DefaultCleanupRetention = 24 * time.Hour
	defaultSweepTimeout     = time.Minute
)

// CleanupScheduler periodically evicts revocation records whose credential
// expired more than Retention ago. It is the only code that removes records.
type CleanupScheduler struct {
	Store     store.Revocations
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	// Timeout bounds one sweep.
	Timeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCleanupScheduler applies defaults for non-positive interval and retention.
func NewCleanupScheduler(s store.Revocations, logger *slog.Logger, interval, retention time.Duration) *CleanupScheduler {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if retention <= 0 {
		retention = DefaultCleanupRetention
	}
	return &CleanupScheduler{
		Store:     s,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		Timeout:   defaultSweepTimeout,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the worker. It sweeps once immediately, then every
// Interval. Calling Start more than once has no effect.
func (c *CleanupScheduler) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true

	go c.run()
	c.Logger.Info("revocation cleanup started", "interval", c.Interval, "retention", c.Retention)
}

// Stop ends the worker and waits for an in-flight sweep. Safe to call more
// than once, and before Start.
func (c *CleanupScheduler) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	close(c.stopCh)
	c.mu.Unlock()

	if started {
		<-c.doneCh
	}
	c.Logger.Info("revocation cleanup stopped")
}

func (c *CleanupScheduler) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	c.tick()
	for {
		select {
		case <-ticker.C:
			c.tick()
		case <-c.stopCh:
			return
		}
	}
}

// tick runs one sweep. Failures are logged and retried on the next tick.
func (c *CleanupScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	start := time.Now()
	n, err := c.Sweep(ctx)
	if err != nil {
		c.Logger.Error("revocation cleanup failed", "error", err)
		return
	}
	c.Logger.Info("revocation cleanup completed",
		"evicted", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Sweep evicts records past Now-Retention once and reports how many went. A
// panicking store is turned into an error.
func (c *CleanupScheduler) Sweep(ctx context.Context) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("cleanup panic: %v", r)
		}
	}()
	return c.Store.EvictExpired(ctx, c.Now(), c.Retention)
}

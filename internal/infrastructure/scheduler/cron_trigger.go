package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appreconciliation "github.com/erp/syncengine/internal/application/reconciliation"
	"github.com/erp/syncengine/internal/domain/reconciliation"
)

// ErrInvalidConfig wraps every SyncCronTriggerConfig validation failure
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// SyncRunner runs every registered synchronizer once
type SyncRunner interface {
	RunScheduled(ctx context.Context, trigger reconciliation.TriggerSource) ([]*appreconciliation.RunReport, error)
}

// SyncCronTriggerConfig holds configuration for the sync cron trigger
type SyncCronTriggerConfig struct {
	// Interval is the time between two ticks
	Interval time.Duration

	// RunTimeout bounds one complete pass over all synchronizers
	RunTimeout time.Duration

	// RunOnStart triggers a pass as soon as the trigger starts
	RunOnStart bool
}

// DefaultSyncCronTriggerConfig returns default configuration
func DefaultSyncCronTriggerConfig() SyncCronTriggerConfig {
	return SyncCronTriggerConfig{
		Interval:   10 * time.Minute,
		RunTimeout: 30 * time.Minute,
	}
}

// Validate checks the configuration
func (c SyncCronTriggerConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// SyncCronTrigger runs the scheduled synchronization at a fixed interval.
// Passes never overlap: a tick that arrives while a pass is still running is dropped.
type SyncCronTrigger struct {
	config SyncCronTriggerConfig
	runner SyncRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  atomic.Bool
}

// NewSyncCronTrigger creates a new sync cron trigger
func NewSyncCronTrigger(config SyncCronTriggerConfig, runner SyncRunner, logger *zap.Logger) (*SyncCronTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SyncCronTrigger{
		config: config,
		runner: runner,
		logger: logger.Named("sync_cron"),
	}, nil
}

// Start starts the cron trigger
func (c *SyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Sync cron trigger started",
		zap.Duration("interval", c.config.Interval),
		zap.Duration("run_timeout", c.config.RunTimeout),
	)

	return nil
}

// Stop stops the cron trigger and waits for a running pass to finish
func (c *SyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InProgress reports whether a pass is running
func (c *SyncCronTrigger) InProgress() bool {
	return c.inFlight.Load()
}

func (c *SyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	if c.config.RunOnStart {
		c.fire(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fire(ctx)
		}
	}
}

// fire starts a pass in the background. It returns false when a pass was already running.
func (c *SyncCronTrigger) fire(ctx context.Context) bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Info("Previous sync pass still running, skipping tick")
		return false
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inFlight.Store(false)
		c.runOnce(ctx)
	}()
	return true
}

func (c *SyncCronTrigger) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, c.config.RunTimeout)
	defer cancel()

	start := time.Now()
	reports, err := c.runner.RunScheduled(runCtx, reconciliation.TriggerCron)

	fields := []zap.Field{
		zap.Int("synchronizers", len(reports)),
		zap.Duration("elapsed", time.Since(start)),
	}
	for _, report := range reports {
		if report == nil || report.Run == nil {
			continue
		}
		c.logger.Debug("Sync run finished",
			zap.String("object_type", report.Run.Type.String()),
			zap.String("status", report.Run.Status.String()),
			zap.Int("total", report.Run.Total),
			zap.Int("failed", report.Run.Failed),
			zap.Bool("disabled", report.Run.Disabled),
		)
	}
	if err != nil {
		c.logger.Error("Scheduled sync pass finished with errors", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Info("Scheduled sync pass completed", fields...)
}

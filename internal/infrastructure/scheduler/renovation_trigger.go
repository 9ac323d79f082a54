package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs one renovation scan over the order base
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// RenovationTriggerConfig holds the renovation trigger settings
type RenovationTriggerConfig struct {
	// DailySweepHour is the hour of day (24h) the sweep runs
	DailySweepHour   int
	DailySweepMinute int

	// CheckInterval is how often to check whether it is time to run
	CheckInterval time.Duration
}

// DefaultRenovationTriggerConfig returns the default trigger settings
func DefaultRenovationTriggerConfig() RenovationTriggerConfig {
	return RenovationTriggerConfig{
		DailySweepHour:   5,
		DailySweepMinute: 0,
		CheckInterval:    time.Minute,
	}
}

// RenovationTrigger runs the renovation monitor sweep once a day
type RenovationTrigger struct {
	config  RenovationTriggerConfig
	monitor Sweeper
	logger  *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// NewRenovationTrigger creates a renovation trigger
func NewRenovationTrigger(config RenovationTriggerConfig, monitor Sweeper, logger *zap.Logger) *RenovationTrigger {
	return &RenovationTrigger{
		config:  config,
		monitor: monitor,
		logger:  logger,
	}
}

// Start begins the periodic time check
func (t *RenovationTrigger) Start(ctx context.Context) {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = true
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx)

	t.logger.Info("Renovation trigger started",
		zap.Int("hour", t.config.DailySweepHour),
		zap.Int("minute", t.config.DailySweepMinute),
	)
}

// Stop halts the trigger and waits for an in-flight sweep to finish
func (t *RenovationTrigger) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info("Renovation trigger stopped")
}

func (t *RenovationTrigger) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.maybeSweep(ctx, now)
		}
	}
}

// maybeSweep runs the sweep when the scheduled time of day has been reached
// and no sweep ran today yet
func (t *RenovationTrigger) maybeSweep(ctx context.Context, now time.Time) {
	today := now.Format("2006-01-02")

	t.mu.Lock()
	alreadyRan := t.lastRunDate == today
	t.mu.Unlock()
	if alreadyRan {
		return
	}

	scheduled := time.Date(now.Year(), now.Month(), now.Day(),
		t.config.DailySweepHour, t.config.DailySweepMinute, 0, 0, now.Location())
	if now.Before(scheduled) {
		return
	}

	t.mu.Lock()
	t.lastRunDate = today
	t.mu.Unlock()

	if err := t.monitor.Sweep(ctx); err != nil {
		t.logger.Error("Renovation sweep failed", zap.Error(err))
	}
}

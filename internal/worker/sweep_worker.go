package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayokunle/totopool/internal/deposit"
	"github.com/ayokunle/totopool/internal/observability"
	"github.com/ayokunle/totopool/internal/slip"
	"go.uber.org/zap"
)

// SweepWorker reaps dead in-memory sessions: slips whose game deadline
// has passed and deposit monitors that settled longer ago than the
// retention period.
type SweepWorker struct {
	slips     *slip.Registry
	deposits  *deposit.Registry
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewSweepWorker constructs a worker with default timing.
func NewSweepWorker(slips *slip.Registry, deposits *deposit.Registry) *SweepWorker {
	return &SweepWorker{
		slips:     slips,
		deposits:  deposits,
		interval:  5 * time.Minute,
		retention: 30 * time.Minute,
		stopCh:    make(chan struct{}),
	}
}

// WithInterval updates the sweep interval.
func (w *SweepWorker) WithInterval(interval time.Duration) *SweepWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithRetention updates how long settled deposit sessions are kept for reads.
func (w *SweepWorker) WithRetention(retention time.Duration) *SweepWorker {
	if retention > 0 {
		w.retention = retention
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *SweepWorker) Start(ctx context.Context) {
	zap.L().Info("sweep worker starting",
		zap.Duration("interval", w.interval), zap.Duration("retention", w.retention))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("sweep worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("sweep worker stop signal received")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// Stop stops the running worker loop.
func (w *SweepWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *SweepWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *SweepWorker) sweep() {
	now := time.Now()
	expiredSlips := w.slips.SweepExpired(now)
	settledDeposits := w.deposits.SweepSettled(now, w.retention)
	observability.SetActiveMonitors(w.deposits.Len())
	observability.IncrementWorkerRun("sweep", "success")
	if expiredSlips > 0 || settledDeposits > 0 {
		zap.L().Info("session sweep",
			zap.Int("expired_slips", expiredSlips),
			zap.Int("settled_deposits", settledDeposits))
	}
}

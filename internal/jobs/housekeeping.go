package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HousekeepingStore is what the sweep needs from storage
type HousekeepingStore interface {
	CloseIdleSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	ExpireStaleReservations(ctx context.Context, cutoff time.Time) (int64, error)
}

// HousekeepingJob periodically closes idle sessions, deletes expired ones
// and marks no-show reservations as expired
type HousekeepingJob struct {
	store    HousekeepingStore
	interval time.Duration
	hold     time.Duration
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	stop      chan struct{}
	done      chan struct{}
}

// NewHousekeepingJob creates the sweep. Reservation slots are stored as local
// wall-clock strings, so the cutoff is computed in location.
func NewHousekeepingJob(store HousekeepingStore, interval, hold time.Duration, location *time.Location, logger *zap.Logger) *HousekeepingJob {
	if location == nil {
		location = time.UTC
	}
	return &HousekeepingJob{
		store:    store,
		interval: interval,
		hold:     hold,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// Start runs the sweep on a ticker until Stop
func (h *HousekeepingJob) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isRunning {
		h.logger.Warn("housekeeping already running")
		return
	}
	h.isRunning = true
	h.stop = make(chan struct{})
	h.done = make(chan struct{})

	go h.loop(h.stop, h.done)
	h.logger.Info("housekeeping started", zap.Duration("interval", h.interval))
}

// Stop halts the sweep and waits for an in-flight run to finish
func (h *HousekeepingJob) Stop() {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = false
	close(h.stop)
	done := h.done
	h.mu.Unlock()

	<-done
	h.logger.Info("housekeeping stopped")
}

func (h *HousekeepingJob) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.interval)
			h.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce performs a single sweep. Each step is independent: a failing step
// is logged and the rest still run.
func (h *HousekeepingJob) RunOnce(ctx context.Context) {
	now := h.now()

	if n, err := h.store.CloseIdleSessions(ctx, now); err != nil {
		h.logger.Error("failed to close idle sessions", zap.Error(err))
	} else if n > 0 {
		h.logger.Info("closed idle sessions", zap.Int64("count", n))
	}

	if n, err := h.store.DeleteExpiredSessions(ctx, now); err != nil {
		h.logger.Error("failed to delete expired sessions", zap.Error(err))
	} else if n > 0 {
		h.logger.Info("deleted expired sessions", zap.Int64("count", n))
	}

	cutoff := now.In(h.location).Add(-h.hold)
	if n, err := h.store.ExpireStaleReservations(ctx, cutoff); err != nil {
		h.logger.Error("failed to expire stale reservations", zap.Error(err))
	} else if n > 0 {
		h.logger.Info("expired no-show reservations", zap.Int64("count", n))
	}
}

package app

import (
	"context"
	"time"

	"quiz-battle-service/pkg/logger"
)

const (
	defaultRetention    = 24 * time.Hour
	defaultReapInterval = time.Hour
)

// Reaper evicts sessions older than the retention window so abandoned
// rooms do not accumulate in memory. Age is measured from the start
// time, or creation time for rooms that never started, so a live room
// cannot be reaped out from under its players.
type Reaper struct {
	store     SessionStore
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewReaper(store SessionStore, retention, interval time.Duration) *Reaper {
	return NewReaperWithClock(store, retention, interval, time.Now)
}

// NewReaperWithClock is test-only for deterministic sweeps.
func NewReaperWithClock(store SessionStore, retention, interval time.Duration, now func() time.Time) *Reaper {
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultReapInterval
	}
	return &Reaper{store: store, retention: retention, interval: interval, now: now}
}

// Run sweeps on a fixed interval until the context is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep deletes every session past the retention window and returns
// how many were removed. Deletion also clears the participant index.
func (r *Reaper) Sweep() int {
	cutoff := r.now().Add(-r.retention)
	reaped := 0
	for _, session := range r.store.All() {
		if session.AgeBasis().Before(cutoff) {
			r.store.Delete(session.ID())
			reaped++
			logger.Info("reaped expired session", "sessionId", session.ID(), "roomCode", session.Code())
		}
	}
	return reaped
}

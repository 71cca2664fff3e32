// Package sweeper runs the periodic purge of expired OTP records. Sweeping is
// best-effort housekeeping: verify filters by expiry on its own, so a failed
// run costs storage, not correctness.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

type expiredDeleter interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper schedules SweepExpired on a fixed interval.
type Sweeper struct {
	otp      expiredDeleter
	interval time.Duration
	cron     *cron.Cron
	running  atomic.Bool
}

func New(otp expiredDeleter, interval time.Duration) *Sweeper {
	return &Sweeper{
		otp:      otp,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start registers the job and starts the scheduler. The returned error only
// covers registration; run failures are logged and swallowed.
func (s *Sweeper) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	slog.Info("otp sweeper started", "interval", s.interval)
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run(ctx context.Context) {
	// Skip if the previous run is still going.
	if !s.running.CompareAndSwap(false, true) {
		slog.Info("otp sweep skipped: still running")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	n, err := s.otp.SweepExpired(ctx)
	if err != nil {
		slog.Error("otp sweep failed", "deleted", n, "err", err)
		return
	}
	slog.Info("otp sweep finished", "deleted", n, "duration", time.Since(start))
}

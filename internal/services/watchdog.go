package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RingExpirer moves unanswered calls to missed. *CallService implements it.
type RingExpirer interface {
	ExpireRinging(ctx context.Context, olderThan time.Duration) (int, error)
}

// Purger deletes expired rows. *NotificationService implements it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeFunc adapts a function to Purger.
type PurgeFunc func(ctx context.Context) (int64, error)

// PurgeExpired calls f.
func (f PurgeFunc) PurgeExpired(ctx context.Context) (int64, error) { return f(ctx) }

// CallWatchdog periodically expires calls nobody answered and, less often,
// runs the configured purgers. The call manager never schedules itself; the
// server starts one watchdog.
type CallWatchdog struct {
	Calls       RingExpirer
	RingTimeout time.Duration
	Interval    time.Duration

	// Purgers run every PurgeEvery; zero means once per hour.
	Purgers    map[string]Purger
	PurgeEvery time.Duration
}

// Run blocks until ctx is done.
func (w *CallWatchdog) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	purgeEvery := w.PurgeEvery
	if purgeEvery <= 0 {
		purgeEvery = time.Hour
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	lastPurge := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			w.Sweep(ctx)
			if now.Sub(lastPurge) >= purgeEvery {
				w.Purge(ctx)
				lastPurge = now
			}
		}
	}
}

// Sweep runs one expiry pass.
func (w *CallWatchdog) Sweep(ctx context.Context) int {
	if w.Calls == nil {
		return 0
	}
	timeout := w.RingTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	n, err := w.Calls.ExpireRinging(ctx, timeout)
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("expire ringing calls failed")
	}
	if n > 0 {
		log.Info().Int("calls", n).Msg("unanswered calls marked missed")
	}
	return n
}

// Purge runs every purger once.
func (w *CallWatchdog) Purge(ctx context.Context) {
	for name, p := range w.Purgers {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			log.Warn().Err(err).Str("purger", name).Msg("purge failed")
			continue
		}
		if n > 0 {
			log.Debug().Str("purger", name).Int64("rows", n).Msg("expired rows purged")
		}
	}
}

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/metrics"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
)

// DefaultInterval is the tick interval between automatic advance attempts.
const DefaultInterval = 60 * time.Second

// tickTimeout bounds one advance attempt so a stalled store cannot wedge the
// loop; the next sleep starts only after the attempt finishes.
const tickTimeout = 10 * time.Second

// Advancer performs one automatic advance attempt for a counter. Implemented
// by the queue engine.
type Advancer interface {
	AutoAdvance(ctx context.Context, tenantID, counterID int64) (models.Ticket, bool, error)
}

// Loop is the long-lived scheduling task for one (counter, tenant) pair.
// It sleeps up to the tick interval or until its reset signal fires; a reset
// only re-arms the timer, it never triggers an advance by itself.
type Loop struct {
	key      Key
	engine   Advancer
	signal   <-chan struct{}
	interval time.Duration
	logger   *slog.Logger
}

func NewLoop(key Key, engine Advancer, signal <-chan struct{}, interval time.Duration, logger *slog.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		key:      key,
		engine:   engine,
		signal:   signal,
		interval: interval,
		logger:   logger.With(slog.Int64("counter_id", key.CounterID), slog.Int64("tenxa_id", key.TenantID)),
	}
}

// Run blocks until ctx is cancelled. Errors from advance attempts are logged
// and swallowed; a failed tick never terminates the loop.
func (l *Loop) Run(ctx context.Context) {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.signal:
			// Manual action or seat change: re-arm without advancing.
			metrics.SchedulerReset()
			l.logger.Debug("auto-call timer reset")
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(l.interval)
		case <-timer.C:
			metrics.SchedulerTick()
			l.tick(ctx)
			timer.Reset(l.interval)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	ticket, called, err := l.engine.AutoAdvance(tickCtx, l.key.TenantID, l.key.CounterID)
	if err != nil {
		metrics.SchedulerError()
		l.logger.Error("auto-call advance failed", "error", err)
		return
	}
	if called {
		l.logger.Info("auto-call ticket called", slog.Int("number", ticket.Number))
	}
}

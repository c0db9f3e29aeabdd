package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

// PairLister enumerates the (counter, tenant) pairs eligible for auto-call.
type PairLister interface {
	ListAutoCallCounters(ctx context.Context) ([]store.CounterRef, error)
}

// Supervisor spawns one Loop per auto-call pair at startup and tears them
// all down at shutdown. Pairs enabled after startup are not picked up; that
// requires a process restart.
type Supervisor struct {
	pairs    PairLister
	engine   Advancer
	registry *Registry
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSupervisor(pairs PairLister, engine Advancer, registry *Registry, interval time.Duration, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		pairs:    pairs,
		engine:   engine,
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// Start discovers auto-call pairs and launches their loops. The loops run
// until Stop is called or ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	pairs, err := s.pairs.ListAutoCallCounters(ctx)
	if err != nil {
		return fmt.Errorf("list auto-call counters: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, pair := range pairs {
		key := Key{CounterID: pair.CounterID, TenantID: pair.TenantID}
		signal := s.registry.Register(key)
		loop := NewLoop(key, s.engine, signal, s.interval, s.logger)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			loop.Run(runCtx)
		}()
	}

	s.logger.Info("auto-call supervisor started", slog.Int("loops", len(pairs)), slog.Duration("interval", s.interval))
	return nil
}

// Stop cancels every loop and waits for them to exit. Loops observe
// cancellation while sleeping, so Stop returns promptly; an in-flight
// advance attempt is allowed to finish first.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("auto-call supervisor stopped")
}

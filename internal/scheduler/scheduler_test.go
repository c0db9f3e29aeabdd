package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

type fakeAdvancer struct {
	calls atomic.Int64
	call  bool
}

func (f *fakeAdvancer) AutoAdvance(ctx context.Context, tenantID, counterID int64) (models.Ticket, bool, error) {
	f.calls.Add(1)
	if !f.call {
		return models.Ticket{}, false, nil
	}
	return models.Ticket{Number: 1, TenantID: tenantID, CounterID: counterID}, true, nil
}

type fakePairs struct {
	refs []store.CounterRef
}

func (f *fakePairs) ListAutoCallCounters(context.Context) ([]store.CounterRef, error) {
	return f.refs, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	key := Key{CounterID: 1, TenantID: 2}

	first := r.Register(key)
	second := r.Register(key)
	if first != second {
		t.Fatal("re-registering a pair returned a different channel")
	}
}

func TestRegistryResetCoalesces(t *testing.T) {
	r := NewRegistry()
	key := Key{CounterID: 1, TenantID: 2}
	signal := r.Register(key)

	for i := 0; i < 5; i++ {
		if !r.Reset(key) {
			t.Fatal("Reset returned false for registered pair")
		}
	}

	<-signal
	select {
	case <-signal:
		t.Fatal("five resets produced more than one pending wake")
	default:
	}
}

func TestRegistryResetUnregistered(t *testing.T) {
	r := NewRegistry()
	if r.Reset(Key{CounterID: 9, TenantID: 9}) {
		t.Fatal("Reset reported success for a pair with no loop")
	}
}

func TestLoopAdvancesOnTimeout(t *testing.T) {
	r := NewRegistry()
	key := Key{CounterID: 1, TenantID: 0}
	engine := &fakeAdvancer{call: true}
	loop := NewLoop(key, engine, r.Register(key), 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for engine.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("loop never attempted an advance")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}

func TestLoopResetDoesNotAdvance(t *testing.T) {
	r := NewRegistry()
	key := Key{CounterID: 1, TenantID: 0}
	engine := &fakeAdvancer{}
	loop := NewLoop(key, engine, r.Register(key), time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// Fire resets well before the hour-long interval elapses. None of them
	// should trigger an advance; they only re-arm the timer.
	for i := 0; i < 3; i++ {
		r.Reset(key)
		time.Sleep(10 * time.Millisecond)
	}

	if got := engine.calls.Load(); got != 0 {
		t.Fatalf("resets caused %d advance attempts, want 0", got)
	}
}

func TestSupervisorStartsLoopPerPair(t *testing.T) {
	r := NewRegistry()
	pairs := &fakePairs{refs: []store.CounterRef{
		{CounterID: 1, TenantID: 0},
		{CounterID: 2, TenantID: 0},
		{CounterID: 7, TenantID: 3},
	}}
	engine := &fakeAdvancer{call: true}
	sup := NewSupervisor(pairs, engine, r, 5*time.Millisecond, testLogger())

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop()

	if got := len(r.Keys()); got != 3 {
		t.Fatalf("registered %d pairs, want 3", got)
	}

	deadline := time.After(2 * time.Second)
	for engine.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d advance attempts before deadline", engine.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSupervisorStopWaitsForLoops(t *testing.T) {
	r := NewRegistry()
	pairs := &fakePairs{refs: []store.CounterRef{{CounterID: 1, TenantID: 0}}}
	sup := NewSupervisor(pairs, &fakeAdvancer{}, r, time.Hour, testLogger())

	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

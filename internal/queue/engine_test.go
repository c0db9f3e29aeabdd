package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/hub"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/scheduler"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store/memory"
)

const (
	testTenant  int64 = 1
	testCounter int64 = 10
)

type fixture struct {
	engine *Engine
	store  *memory.Store
	regs   *scheduler.Registry
	signal <-chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.NewStore()
	st.AddTenant(models.Tenant{ID: testTenant, Name: "Tan Binh", Slug: "tan-binh", AutoCall: true})
	st.AddCounter(models.Counter{ID: testCounter, TenantID: testTenant, Name: "Counter 1"})

	regs := scheduler.NewRegistry()
	signal := regs.Register(scheduler.Key{CounterID: testCounter, TenantID: testTenant})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(st, hub.New(logger), regs, logger)
	return &fixture{engine: engine, store: st, regs: regs, signal: signal}
}

func (f *fixture) drainSignal() {
	select {
	case <-f.signal:
	default:
	}
}

func (f *fixture) signalPending() bool {
	select {
	case <-f.signal:
		return true
	default:
		return false
	}
}

func TestDrawAssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		ticket, err := f.engine.Draw(ctx, testTenant, testCounter)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if ticket.Number != want {
			t.Fatalf("ticket number = %d, want %d", ticket.Number, want)
		}
		if ticket.Status != models.StatusWaiting {
			t.Fatalf("new ticket status = %q, want waiting", ticket.Status)
		}
	}
}

func TestDrawUnknownCounter(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Draw(context.Background(), testTenant, 999)
	if !errors.Is(err, store.ErrCounterNotFound) {
		t.Fatalf("err = %v, want ErrCounterNotFound", err)
	}
}

func TestCallNextCallsOldestWaiting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.engine.Draw(ctx, testTenant, testCounter)
	f.engine.SetClock(func() time.Time { return time.Now().UTC().Add(time.Second) })
	second, _ := f.engine.Draw(ctx, testTenant, testCounter)

	called, err := f.engine.CallNext(ctx, testTenant, testCounter)
	if err != nil {
		t.Fatalf("CallNext: %v", err)
	}
	if called.Number != first.Number {
		t.Fatalf("called ticket %d, want oldest %d", called.Number, first.Number)
	}
	if called.Status != models.StatusCalled || called.CalledAt == nil {
		t.Fatalf("called ticket not marked: status=%q calledAt=%v", called.Status, called.CalledAt)
	}
	_ = second
}

func TestCallNextClosesPreviousCalled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Now().UTC()
	f.engine.SetClock(func() time.Time { return base })
	if _, err := f.engine.Draw(ctx, testTenant, testCounter); err != nil {
		t.Fatal(err)
	}
	f.engine.SetClock(func() time.Time { return base.Add(time.Second) })
	if _, err := f.engine.Draw(ctx, testTenant, testCounter); err != nil {
		t.Fatal(err)
	}

	if _, err := f.engine.CallNext(ctx, testTenant, testCounter); err != nil {
		t.Fatalf("first CallNext: %v", err)
	}
	second, err := f.engine.CallNext(ctx, testTenant, testCounter)
	if err != nil {
		t.Fatalf("second CallNext: %v", err)
	}
	if second.Number != 2 {
		t.Fatalf("second call number = %d, want 2", second.Number)
	}

	done, err := f.store.ListCalledTickets(ctx, testTenant, nil, base.Add(2*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].Number != 2 {
		t.Fatalf("called set = %+v, want only ticket 2", done)
	}
}

func TestCallNextNoTicket(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CallNext(context.Background(), testTenant, testCounter)
	if !errors.Is(err, store.ErrNoTicket) {
		t.Fatalf("err = %v, want ErrNoTicket", err)
	}
	if f.signalPending() {
		t.Fatal("failed call fired a reset signal")
	}
}

func TestCallNextFiresReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Draw(ctx, testTenant, testCounter); err != nil {
		t.Fatal(err)
	}
	f.drainSignal()

	if _, err := f.engine.CallNext(ctx, testTenant, testCounter); err != nil {
		t.Fatalf("CallNext: %v", err)
	}
	if !f.signalPending() {
		t.Fatal("successful manual call did not fire the reset signal")
	}
}

func TestCallNextPausedCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Draw(ctx, testTenant, testCounter); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Pause(ctx, testTenant, testCounter, "lunch break"); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	_, err := f.engine.CallNext(ctx, testTenant, testCounter)
	if !errors.Is(err, store.ErrNoTicket) {
		t.Fatalf("paused counter err = %v, want ErrNoTicket", err)
	}

	waiting, _ := f.store.ListWaitingTickets(ctx, testTenant, nil, time.Now().UTC())
	if len(waiting) != 1 {
		t.Fatalf("paused counter mutated tickets: waiting=%d, want 1", len(waiting))
	}
}

func TestPauseResumeLogLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	log, err := f.engine.Pause(ctx, testTenant, testCounter, "meeting")
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if log.Reason != "meeting" || log.EndTime != nil {
		t.Fatalf("pause log = %+v, want open entry with reason", log)
	}

	counter, err := f.engine.Resume(ctx, testTenant, testCounter)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if counter.Status != models.CounterActive || counter.Reason != nil {
		t.Fatalf("resumed counter = %+v, want active with no reason", counter)
	}

	logs := f.store.PauseLogs()
	if len(logs) != 1 || logs[0].EndTime == nil {
		t.Fatalf("pause logs = %+v, want one closed entry", logs)
	}
}

func TestResumeWithoutOpenLog(t *testing.T) {
	f := newFixture(t)
	counter, err := f.engine.Resume(context.Background(), testTenant, testCounter)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if counter.Status != models.CounterActive {
		t.Fatalf("counter status = %q, want active", counter.Status)
	}
}

func TestAutoAdvanceSeatGate(t *testing.T) {
	tests := []struct {
		name     string
		officer  bool
		client   bool
		wantCall bool
	}{
		{name: "officer present client empty", officer: true, client: false, wantCall: true},
		{name: "officer absent", officer: false, client: false, wantCall: false},
		{name: "client occupied", officer: true, client: true, wantCall: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.store.AddSeat(models.Seat{ID: 1, CounterID: testCounter, TenantID: testTenant, Type: models.SeatOfficer, Occupied: tt.officer})
			f.store.AddSeat(models.Seat{ID: 2, CounterID: testCounter, TenantID: testTenant, Type: models.SeatClient, Occupied: tt.client})

			if _, err := f.engine.Draw(ctx, testTenant, testCounter); err != nil {
				t.Fatal(err)
			}

			_, called, err := f.engine.AutoAdvance(ctx, testTenant, testCounter)
			if err != nil {
				t.Fatalf("AutoAdvance: %v", err)
			}
			if called != tt.wantCall {
				t.Fatalf("called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}

func TestAutoAdvanceMissingSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.engine.Draw(ctx, testTenant, testCounter); err != nil {
		t.Fatal(err)
	}

	_, called, err := f.engine.AutoAdvance(ctx, testTenant, testCounter)
	if err != nil {
		t.Fatalf("AutoAdvance: %v", err)
	}
	if called {
		t.Fatal("counter without seats should not auto-call")
	}
}

func TestSetSeatOccupancyResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddSeat(models.Seat{ID: 2, CounterID: testCounter, TenantID: testTenant, Type: models.SeatClient, Occupied: false})

	// Genuine change on the client seat fires the reset.
	if _, err := f.engine.SetSeatOccupancy(ctx, testTenant, 2, true); err != nil {
		t.Fatalf("SetSeatOccupancy: %v", err)
	}
	if !f.signalPending() {
		t.Fatal("client seat change did not fire reset")
	}

	// Writing the same value again is logged but fires nothing.
	if _, err := f.engine.SetSeatOccupancy(ctx, testTenant, 2, true); err != nil {
		t.Fatal(err)
	}
	if f.signalPending() {
		t.Fatal("unchanged occupancy fired a reset")
	}

	if logs := f.store.SeatLogs(); len(logs) != 2 {
		t.Fatalf("seat log entries = %d, want 2 (audit is append-only, even unchanged)", len(logs))
	}
}

func TestSetSeatOccupancyOfficerSeatNoReset(t *testing.T) {
	f := newFixture(t)
	f.store.AddSeat(models.Seat{ID: 1, CounterID: testCounter, TenantID: testTenant, Type: models.SeatOfficer, Occupied: false})

	if _, err := f.engine.SetSeatOccupancy(context.Background(), testTenant, 1, true); err != nil {
		t.Fatal(err)
	}
	if f.signalPending() {
		t.Fatal("officer seat change fired a reset")
	}
}

func TestSetSeatOccupancyStampsLastEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddSeat(models.Seat{ID: 2, CounterID: testCounter, TenantID: testTenant, Type: models.SeatClient, Occupied: true})

	seat, err := f.engine.SetSeatOccupancy(ctx, testTenant, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if seat.LastEmptyAt == nil {
		t.Fatal("occupied->empty transition did not stamp LastEmptyAt")
	}
}

func TestUpdateStatusSameDayOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loc := daywindow.Location()
	yesterday := time.Date(2025, 3, 13, 10, 0, 0, 0, loc)
	today := time.Date(2025, 3, 14, 10, 0, 0, 0, loc)

	f.engine.SetClock(func() time.Time { return yesterday })
	ticket, err := f.engine.Draw(ctx, testTenant, testCounter)
	if err != nil {
		t.Fatal(err)
	}

	f.engine.SetClock(func() time.Time { return today })
	_, err = f.engine.UpdateStatus(ctx, testTenant, ticket.Number, models.StatusDone)
	if !errors.Is(err, store.ErrInvalidWindow) {
		t.Fatalf("cross-day update err = %v, want ErrInvalidWindow", err)
	}
}

func TestUpdateStatusDoneStampsFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.engine.Draw(ctx, testTenant, testCounter)
	if err != nil {
		t.Fatal(err)
	}
	updated, err := f.engine.UpdateStatus(ctx, testTenant, ticket.Number, models.StatusDone)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.StatusDone || updated.FinishedAt == nil {
		t.Fatalf("updated = %+v, want done with FinishedAt", updated)
	}
}

func TestUpdateStatusUnknownNumber(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.UpdateStatus(context.Background(), testTenant, 42, models.StatusDone)
	if !errors.Is(err, store.ErrTicketNotFound) {
		t.Fatalf("err = %v, want ErrTicketNotFound", err)
	}
}

func TestShiftTenantNumberingRollsOverAtRollover(t *testing.T) {
	st := memory.NewStore()
	st.AddTenant(models.Tenant{ID: 0, Name: "Trung tam", Slug: "trung-tam"})
	st.AddCounter(models.Counter{ID: 1, TenantID: 0, Name: "Counter 1"})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(st, hub.New(logger), scheduler.NewRegistry(), logger)
	ctx := context.Background()

	loc := daywindow.Location()
	beforeRollover := time.Date(2025, 3, 14, 17, 0, 0, 0, loc)
	afterRollover := time.Date(2025, 3, 14, 18, 0, 0, 0, loc)

	engine.SetClock(func() time.Time { return beforeRollover })
	first, err := engine.Draw(ctx, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Number != 1 {
		t.Fatalf("first number = %d, want 1", first.Number)
	}

	engine.SetClock(func() time.Time { return afterRollover })
	second, err := engine.Draw(ctx, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.Number != 1 {
		t.Fatalf("number after 17:30 rollover = %d, want fresh 1", second.Number)
	}
}

// Package queue coordinates ticket state transitions with the notification
// fan-out and the scheduler reset signals. Every advance, manual or
// automatic, goes through the same store transaction so the two paths cannot
// diverge.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/hub"
	"github.com/nguyenthanhak8-hue/LSTD/internal/metrics"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/scheduler"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

type Engine struct {
	store  store.Store
	hub    *hub.Hub
	resets *scheduler.Registry
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(st store.Store, h *hub.Hub, resets *scheduler.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		hub:    h,
		resets: resets,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the engine's time source. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Draw creates the next numbered ticket for the tenant's current operating
// day and announces it to connected displays.
func (e *Engine) Draw(ctx context.Context, tenantID, counterID int64) (models.Ticket, error) {
	now := e.now()
	ticket, err := e.store.CreateTicket(ctx, store.CreateTicketInput{
		TenantID:  tenantID,
		CounterID: counterID,
		CreatedAt: now,
	})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}

	slug := e.tenantSlug(ctx, tenantID)
	metrics.TicketIssued(slug)
	e.hub.Broadcast(hub.Event{
		Event:        hub.EventNewTicket,
		TicketNumber: ticket.Number,
		CounterID:    ticket.CounterID,
		Tenxa:        slug,
		Timestamp:    daywindow.Timestamp(now),
	})
	return ticket, nil
}

// CallNext is the manual advance path. On success it fires the counter's
// reset signal so the next automatic tick starts a full interval away. When
// no waiting ticket exists it returns store.ErrNoTicket, which the caller
// surfaces to the operator.
func (e *Engine) CallNext(ctx context.Context, tenantID, counterID int64) (models.Ticket, error) {
	result, called, err := e.advance(ctx, tenantID, counterID, "manual")
	if err != nil {
		return models.Ticket{}, err
	}
	if !called {
		return models.Ticket{}, store.ErrNoTicket
	}
	e.resets.Reset(scheduler.Key{CounterID: counterID, TenantID: tenantID})
	return result.Ticket, nil
}

// AutoAdvance is the scheduler tick path. It only advances when the counter's
// seats signal readiness: the officer seat occupied and the client seat
// empty. The manual path has no such gate.
func (e *Engine) AutoAdvance(ctx context.Context, tenantID, counterID int64) (models.Ticket, bool, error) {
	ready, err := e.seatsReady(ctx, tenantID, counterID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if !ready {
		return models.Ticket{}, false, nil
	}

	result, called, err := e.advance(ctx, tenantID, counterID, "auto")
	if err != nil {
		return models.Ticket{}, false, err
	}
	return result.Ticket, called, nil
}

func (e *Engine) advance(ctx context.Context, tenantID, counterID int64, trigger string) (store.AdvanceResult, bool, error) {
	now := e.now()
	result, called, err := e.store.Advance(ctx, tenantID, counterID, now)
	if err != nil {
		return store.AdvanceResult{}, false, fmt.Errorf("advance counter %d: %w", counterID, err)
	}
	if !called {
		return store.AdvanceResult{}, false, nil
	}

	metrics.TicketCalled(trigger)
	e.hub.Broadcast(hub.Event{
		Event:        hub.EventTicketCalled,
		TicketNumber: result.Ticket.Number,
		CounterID:    counterID,
		CounterName:  result.CounterName,
		Tenxa:        e.tenantSlug(ctx, tenantID),
		Timestamp:    daywindow.Timestamp(now),
	})
	return result, true, nil
}

func (e *Engine) seatsReady(ctx context.Context, tenantID, counterID int64) (bool, error) {
	seats, err := e.store.ListCounterSeats(ctx, tenantID, counterID)
	if err != nil {
		return false, fmt.Errorf("list counter seats: %w", err)
	}

	var officer, client *models.Seat
	for i := range seats {
		switch seats[i].Type {
		case models.SeatOfficer:
			officer = &seats[i]
		case models.SeatClient:
			client = &seats[i]
		}
	}
	if officer == nil || client == nil {
		return false, nil
	}
	return officer.Occupied && !client.Occupied, nil
}

// UpdateStatus edits a same-day ticket. The store enforces the calendar-day
// guard and stamps finished_at on done.
func (e *Engine) UpdateStatus(ctx context.Context, tenantID int64, number int, status models.TicketStatus) (models.Ticket, error) {
	return e.store.UpdateTicketStatus(ctx, tenantID, number, status, e.now())
}

// Pause takes the counter out of rotation and opens a pause log entry.
func (e *Engine) Pause(ctx context.Context, tenantID, counterID int64, reason string) (models.CounterPauseLog, error) {
	return e.store.PauseCounter(ctx, tenantID, counterID, reason, e.now())
}

// Resume reactivates the counter and closes its open pause log, if any.
func (e *Engine) Resume(ctx context.Context, tenantID, counterID int64) (models.Counter, error) {
	return e.store.ResumeCounter(ctx, tenantID, counterID, e.now())
}

// SetSeatOccupancy records the occupancy update and its audit log entry.
// A genuine change on a client seat re-arms the counter's auto-call timer
// so the scheduler does not fire right after a human acted.
func (e *Engine) SetSeatOccupancy(ctx context.Context, tenantID, seatID int64, occupied bool) (models.Seat, error) {
	seat, changed, err := e.store.SetSeatOccupancy(ctx, tenantID, seatID, occupied, e.now())
	if err != nil {
		return models.Seat{}, err
	}
	if changed && seat.Type == models.SeatClient {
		if e.resets.Reset(scheduler.Key{CounterID: seat.CounterID, TenantID: tenantID}) {
			e.logger.Debug("auto-call reset after seat change",
				slog.Int64("counter_id", seat.CounterID), slog.Int64("seat_id", seatID))
		}
	}
	return seat, nil
}

func (e *Engine) tenantSlug(ctx context.Context, tenantID int64) string {
	slug, err := e.store.TenantSlug(ctx, tenantID)
	if err != nil {
		e.logger.Warn("tenant slug lookup failed", slog.Int64("tenxa_id", tenantID), "error", err)
		return ""
	}
	return slug
}

package store

import (
	"context"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
)

type CreateTicketInput struct {
	TenantID  int64
	CounterID int64
	CreatedAt time.Time
}

// AdvanceResult carries the newly called ticket together with the counter
// identity needed by the broadcast event.
type AdvanceResult struct {
	Ticket      models.Ticket
	CounterName string
}

// CounterRef identifies one (counter, tenant) pair eligible for auto-call.
type CounterRef struct {
	CounterID int64
	TenantID  int64
}

type CounterCount struct {
	CounterID int64 `json:"counter_id"`
	Total     int64 `json:"total_tickets"`
}

type CounterAverage struct {
	CounterID  int64   `json:"counter_id"`
	AvgSeconds float64 `json:"avg_waiting_time_seconds"`
}

type AttendedCount struct {
	CounterID int64 `json:"counter_id"`
	Attended  int64 `json:"attended_tickets"`
}

type HandlingAverage struct {
	CounterID  int64   `json:"counter_id"`
	AvgSeconds float64 `json:"avg_handling_time_seconds"`
}

// CounterCheckin is the first occupied seat-log entry per counter on a day.
type CounterCheckin struct {
	CounterID    int64
	FirstCheckin time.Time
}

// FieldCounter is one row of the counter_field mapping, joined with the
// counter name for display.
type FieldCounter struct {
	FieldID     int64
	CounterID   int64
	CounterName string
}

// SeatOccupancyLog is a seat-log entry joined with its seat's counter,
// ordered by (seat, timestamp) for absence folding.
type SeatOccupancyLog struct {
	SeatID    int64
	CounterID int64
	Occupied  bool
	Timestamp time.Time
}

// Store is the system of record for tenants, counters, seats, and tickets.
// CreateTicket and Advance execute as single atomic transactions; concurrent
// Advance calls for the same counter are serialized by a row lock on the
// counter, which is what upholds the at-most-one-called invariant.
type Store interface {
	TenantIDBySlug(ctx context.Context, slug string) (int64, error)
	TenantSlug(ctx context.Context, tenantID int64) (string, error)
	ListAutoCallCounters(ctx context.Context) ([]CounterRef, error)

	// CreateTicket assigns the next tenant-wide number within the tenant's
	// current operating-day window and inserts the ticket as waiting.
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)

	// Advance closes the counter's currently called ticket (if any) and calls
	// the oldest waiting ticket created inside the current window. It returns
	// false with no error when the counter is paused or no waiting ticket
	// exists; closing the previous ticket still happens in that second case.
	Advance(ctx context.Context, tenantID, counterID int64, now time.Time) (AdvanceResult, bool, error)

	// UpdateTicketStatus edits the most recent ticket with the given number.
	// Tickets created outside the current calendar day are rejected with
	// ErrInvalidWindow. Setting the status to done also stamps finished_at.
	UpdateTicketStatus(ctx context.Context, tenantID int64, number int, status models.TicketStatus, now time.Time) (models.Ticket, error)

	ListWaitingTickets(ctx context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error)
	ListCalledTickets(ctx context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error)

	GetCounter(ctx context.Context, tenantID, counterID int64) (models.Counter, error)
	ListCounters(ctx context.Context, tenantID int64) ([]models.Counter, error)
	PauseCounter(ctx context.Context, tenantID, counterID int64, reason string, now time.Time) (models.CounterPauseLog, error)
	ResumeCounter(ctx context.Context, tenantID, counterID int64, now time.Time) (models.Counter, error)

	GetSeat(ctx context.Context, tenantID, seatID int64) (models.Seat, error)
	ListSeats(ctx context.Context, tenantID int64) ([]models.Seat, error)
	ListCounterSeats(ctx context.Context, tenantID, counterID int64) ([]models.Seat, error)
	// SetSeatOccupancy appends a SeatLog entry and reports whether the
	// occupancy actually changed.
	SetSeatOccupancy(ctx context.Context, tenantID, seatID int64, occupied bool, now time.Time) (models.Seat, bool, error)

	ListProcedures(ctx context.Context, tenantID int64) ([]models.Procedure, error)
	// ListFieldCounters returns the counter_field mapping for the tenant,
	// used to resolve which counters serve a procedure's field.
	ListFieldCounters(ctx context.Context, tenantID int64) ([]FieldCounter, error)

	GetFooter(ctx context.Context, tenantID int64) (models.Footer, error)
	UpsertFooter(ctx context.Context, tenantID int64, workTime, hotline string) (models.Footer, error)

	TicketsPerCounter(ctx context.Context, tenantID int64, from, to time.Time) ([]CounterCount, error)
	AverageWaitSeconds(ctx context.Context, tenantID int64, from, to time.Time) ([]CounterAverage, error)
	// AttendedTickets counts tickets that were both called and finished.
	AttendedTickets(ctx context.Context, tenantID int64, from, to time.Time) ([]AttendedCount, error)
	AverageHandlingSeconds(ctx context.Context, tenantID int64, from, to time.Time) ([]HandlingAverage, error)
	// FirstCheckins returns, per counter, the earliest seat-log entry that
	// switched a seat to occupied inside [from, to).
	FirstCheckins(ctx context.Context, tenantID int64, from, to time.Time) ([]CounterCheckin, error)
	// ListSeatOccupancyLogs returns seat-log entries joined with their
	// counter, ordered by seat then timestamp.
	ListSeatOccupancyLogs(ctx context.Context, tenantID int64, from, to time.Time) ([]SeatOccupancyLog, error)
}

package models

import (
	"fmt"
	"time"
)

type TicketStatus string

const (
	StatusWaiting TicketStatus = "waiting"
	StatusCalled  TicketStatus = "called"
	StatusDone    TicketStatus = "done"
)

func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch TicketStatus(raw) {
	case StatusWaiting, StatusCalled, StatusDone:
		return TicketStatus(raw), nil
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

type SeatType string

const (
	SeatOfficer SeatType = "officer"
	SeatClient  SeatType = "client"
)

func ParseSeatType(raw string) (SeatType, error) {
	switch SeatType(raw) {
	case SeatOfficer, SeatClient:
		return SeatType(raw), nil
	}
	return "", fmt.Errorf("unknown seat type %q", raw)
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleLeader  Role = "leader"
	RoleOfficer Role = "officer"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleLeader, RoleOfficer:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

type CounterStatus string

const (
	CounterActive CounterStatus = "active"
	CounterPaused CounterStatus = "paused"
)

// Tenant is the isolation boundary; every other entity is scoped by TenantID.
type Tenant struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	AutoCall bool   `json:"auto_call"`
}

type Counter struct {
	ID       int64         `json:"id"`
	TenantID int64         `json:"tenant_id"`
	Name     string        `json:"name"`
	Status   CounterStatus `json:"status"`
	Reason   *string       `json:"reason,omitempty"`
}

type Seat struct {
	ID          int64      `json:"id"`
	CounterID   int64      `json:"counter_id"`
	TenantID    int64      `json:"tenant_id"`
	Name        string     `json:"name"`
	Type        SeatType   `json:"type"`
	Occupied    bool       `json:"occupied"`
	LastEmptyAt *time.Time `json:"last_empty_at,omitempty"`
}

// SeatLog entries are append-only; they are never updated after creation.
type SeatLog struct {
	ID        int64     `json:"id"`
	SeatID    int64     `json:"seat_id"`
	TenantID  int64     `json:"tenant_id"`
	OldStatus bool      `json:"old_status"`
	NewStatus bool      `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticket numbers are sequential per tenant per operating-day window, not
// globally unique. Numbering restarts at 1 when a new window begins.
type Ticket struct {
	ID         int64        `json:"id"`
	Number     int          `json:"number"`
	CounterID  int64        `json:"counter_id"`
	TenantID   int64        `json:"tenant_id"`
	Status     TicketStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	CalledAt   *time.Time   `json:"called_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// Procedure is an administrative procedure customers look up on the kiosk.
// FieldID groups procedures into service fields; the counter_field mapping
// says which counters serve a field.
type Procedure struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FieldID  int64  `json:"field_id"`
	TenantID int64  `json:"tenant_id"`
}

// Footer is per-tenant display configuration shown at the bottom of the
// kiosk screen. One row per tenant.
type Footer struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenant_id"`
	WorkTime string `json:"work_time"`
	Hotline  string `json:"hotline"`
}

type CounterPauseLog struct {
	ID        int64      `json:"id"`
	CounterID int64      `json:"counter_id"`
	TenantID  int64      `json:"tenant_id"`
	Reason    string     `json:"reason"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

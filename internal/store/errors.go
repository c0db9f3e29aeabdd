package store

import "errors"

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrCounterNotFound = errors.New("counter not found")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrNoTicket        = errors.New("no ticket available")
	ErrInvalidWindow   = errors.New("ticket outside editable window")
	ErrFooterNotFound  = errors.New("footer not configured")
)

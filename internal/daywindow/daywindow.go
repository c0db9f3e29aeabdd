// Package daywindow computes the tenant-specific operating-day boundaries
// used to scope ticket numbering and waiting-ticket queries.
package daywindow

import (
	"sync"
	"time"
)

// shiftTenantID is the 24x7 shift-based tenant whose day rolls over at 17:30
// instead of midnight.
const shiftTenantID = 0

const referenceTimezone = "Asia/Ho_Chi_Minh"

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the reference timezone all windows are computed in.
func Location() *time.Location {
	locOnce.Do(func() {
		var err error
		loc, err = time.LoadLocation(referenceTimezone)
		if err != nil {
			loc = time.FixedZone("+07", 7*3600)
		}
	})
	return loc
}

// WindowFor returns the half-open interval [start, end) bounding the tenant's
// current operating day at the given instant. Tenant 0 rolls over at 17:30
// local time; every other tenant uses the local calendar day.
func WindowFor(tenantID int64, now time.Time) (time.Time, time.Time) {
	local := now.In(Location())
	if tenantID == shiftTenantID {
		rollover := time.Date(local.Year(), local.Month(), local.Day(), 17, 30, 0, 0, Location())
		if local.Before(rollover) {
			return rollover.AddDate(0, 0, -1), rollover
		}
		return rollover, rollover.AddDate(0, 0, 1)
	}
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
	return start, start.AddDate(0, 0, 1)
}

// Contains reports whether t falls inside [start, end).
func Contains(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// SameLocalDay reports whether a and b fall on the same calendar day in the
// reference timezone. Status edits are only allowed on same-day tickets,
// regardless of the tenant's numbering window.
func SameLocalDay(a, b time.Time) bool {
	al, bl := a.In(Location()), b.In(Location())
	return al.Year() == bl.Year() && al.Month() == bl.Month() && al.Day() == bl.Day()
}

// Timestamp formats t as ISO-8601 in the reference timezone, the format
// broadcast to displays and terminals.
func Timestamp(t time.Time) string {
	return t.In(Location()).Format(time.RFC3339)
}

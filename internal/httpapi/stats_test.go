package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

func TestAttendedTickets(t *testing.T) {
	e := newEnv(t)
	token := signToken(t, "admin", 1, 0)

	e.do(t, http.MethodPost, "/api/tickets?tenxa=tan-binh", `{"counter_id":10}`, "")
	e.do(t, http.MethodPost, "/api/tickets?tenxa=tan-binh", `{"counter_id":11}`, "")
	e.do(t, http.MethodPost, "/api/counters/10/call-next?tenxa=tan-binh", "", token)
	e.do(t, http.MethodPut, "/api/tickets/status?tenxa=tan-binh", `{"number":1,"status":"done"}`, "")

	rec := e.do(t, http.MethodGet, "/api/stats/attended-tickets?tenxa=tan-binh", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var counts []store.AttendedCount
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatal(err)
	}
	// the ticket on counter 11 was never called, so only counter 10 reports
	if len(counts) != 1 || counts[0].CounterID != 10 || counts[0].Attended != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestAverageHandlingTime(t *testing.T) {
	e := newEnv(t)
	token := signToken(t, "admin", 1, 0)

	e.do(t, http.MethodPost, "/api/tickets?tenxa=tan-binh", `{"counter_id":10}`, "")
	e.do(t, http.MethodPost, "/api/counters/10/call-next?tenxa=tan-binh", "", token)
	e.do(t, http.MethodPut, "/api/tickets/status?tenxa=tan-binh", `{"number":1,"status":"done"}`, "")

	rec := e.do(t, http.MethodGet, "/api/stats/average-handling-time?tenxa=tan-binh", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var averages []store.HandlingAverage
	if err := json.Unmarshal(rec.Body.Bytes(), &averages); err != nil {
		t.Fatal(err)
	}
	if len(averages) != 1 || averages[0].CounterID != 10 || averages[0].AvgSeconds < 0 {
		t.Fatalf("averages = %+v", averages)
	}
}

func TestAverageHandlingTimeBadRange(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/stats/average-handling-time?tenxa=tan-binh&from=14-03-2025", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWorkingTimeCheck(t *testing.T) {
	e := newEnv(t)
	e.store.AddSeat(models.Seat{ID: 102, CounterID: 11, TenantID: 1, Name: "Officer 2", Type: models.SeatOfficer})

	ctx := context.Background()
	loc := daywindow.Location()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	if _, _, err := e.store.SetSeatOccupancy(ctx, 1, 100, true, day.Add(7*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.store.SetSeatOccupancy(ctx, 1, 102, true, day.Add(8*time.Hour)); err != nil {
		t.Fatal(err)
	}

	rec := e.do(t, http.MethodGet, "/api/stats/working-time-check?tenxa=tan-binh&date=2025-03-14", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var checks []workingTimeCheck
	if err := json.Unmarshal(rec.Body.Bytes(), &checks); err != nil {
		t.Fatal(err)
	}
	if len(checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(checks))
	}
	if checks[0].CounterID != 10 || checks[0].IsLate {
		t.Fatalf("counter 10 check = %+v, want on time", checks[0])
	}
	if checks[1].CounterID != 11 || !checks[1].IsLate {
		t.Fatalf("counter 11 check = %+v, want late", checks[1])
	}
}

func TestWorkingTimeCheckBadDate(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/stats/working-time-check?tenxa=tan-binh&date=14-03-2025", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAfkDurationEndpoint(t *testing.T) {
	e := newEnv(t)

	ctx := context.Background()
	loc := daywindow.Location()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	steps := []struct {
		occupied bool
		at       time.Duration
	}{
		{true, 8 * time.Hour},
		{false, 9 * time.Hour},
		{true, 9*time.Hour + 30*time.Minute},
	}
	for _, step := range steps {
		if _, _, err := e.store.SetSeatOccupancy(ctx, 1, 100, step.occupied, day.Add(step.at)); err != nil {
			t.Fatal(err)
		}
	}

	rec := e.do(t, http.MethodGet, "/api/stats/afk-duration?tenxa=tan-binh&from=2025-03-14&to=2025-03-14", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var durations []afkDuration
	if err := json.Unmarshal(rec.Body.Bytes(), &durations); err != nil {
		t.Fatal(err)
	}
	if len(durations) != 1 || durations[0].CounterID != 10 || durations[0].TotalAbsentMinutes != 30 {
		t.Fatalf("durations = %+v", durations)
	}
}

func TestAfkDurationsFolding(t *testing.T) {
	loc := daywindow.Location()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	logs := []store.SeatOccupancyLog{
		// 07:00-08:00 absence clipped to the 07:30 work start
		{SeatID: 100, CounterID: 10, Occupied: false, Timestamp: at(7, 0)},
		{SeatID: 100, CounterID: 10, Occupied: true, Timestamp: at(8, 0)},
		// 10:00-10:15 inside working hours
		{SeatID: 100, CounterID: 10, Occupied: false, Timestamp: at(10, 0)},
		{SeatID: 100, CounterID: 10, Occupied: true, Timestamp: at(10, 15)},
		// open span on another seat, never reoccupied
		{SeatID: 102, CounterID: 11, Occupied: false, Timestamp: at(11, 0)},
	}

	durations := afkDurations(logs)
	if len(durations) != 1 {
		t.Fatalf("durations = %+v, want a single counter", durations)
	}
	if durations[0].CounterID != 10 || durations[0].TotalAbsentMinutes != 45 {
		t.Fatalf("durations = %+v, want 45 minutes on counter 10", durations)
	}
}

func TestAfkDurationsClipToWorkEnd(t *testing.T) {
	loc := daywindow.Location()
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)

	logs := []store.SeatOccupancyLog{
		{SeatID: 100, CounterID: 10, Occupied: false, Timestamp: day.Add(17 * time.Hour)},
		{SeatID: 100, CounterID: 10, Occupied: true, Timestamp: day.Add(18 * time.Hour)},
	}

	durations := afkDurations(logs)
	if len(durations) != 1 || durations[0].TotalAbsentMinutes != 30 {
		t.Fatalf("durations = %+v, want 30 minutes ending at 17:30", durations)
	}
}

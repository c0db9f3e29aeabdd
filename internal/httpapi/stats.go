package httpapi

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

// Working hours in the reference timezone. A first check-in after the start
// counts as late; absences are only accumulated inside this span.
const (
	workStartHour   = 7
	workStartMinute = 30
	workEndHour     = 17
	workEndMinute   = 30
)

type workingTimeCheck struct {
	CounterID    int64     `json:"counter_id"`
	IsLate       bool      `json:"is_late"`
	FirstCheckin time.Time `json:"first_checkin"`
}

type afkDuration struct {
	CounterID          int64   `json:"counter_id"`
	TotalAbsentMinutes float64 `json:"total_absent_minutes"`
}

func (h *Handler) handleAttendedTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	from, to, err := statsRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	counts, err := h.store.AttendedTickets(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if counts == nil {
		counts = []store.AttendedCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) handleAverageHandlingTime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	from, to, err := statsRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	averages, err := h.store.AverageHandlingSeconds(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if averages == nil {
		averages = []store.HandlingAverage{}
	}
	writeJSON(w, http.StatusOK, averages)
}

func (h *Handler) handleWorkingTimeCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	loc := daywindow.Location()
	day := time.Now().In(loc)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	checkins, err := h.store.FirstCheckins(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	threshold := time.Date(day.Year(), day.Month(), day.Day(), workStartHour, workStartMinute, 0, 0, loc)
	results := []workingTimeCheck{}
	for _, checkin := range checkins {
		results = append(results, workingTimeCheck{
			CounterID:    checkin.CounterID,
			IsLate:       checkin.FirstCheckin.In(loc).After(threshold),
			FirstCheckin: checkin.FirstCheckin.In(loc),
		})
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleAfkDuration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	from, to, err := statsRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	logs, err := h.store.ListSeatOccupancyLogs(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, afkDurations(logs))
}

// afkDurations folds ordered seat-log entries into per-counter absence
// totals. An absence is the span between an empty entry and the next
// occupied entry on the same seat, clipped to working hours (07:30-17:30
// local); spans open at either end of the range are not counted.
func afkDurations(logs []store.SeatOccupancyLog) []afkDuration {
	loc := daywindow.Location()
	totals := make(map[int64]float64)

	var prev *store.SeatOccupancyLog
	for i := range logs {
		log := logs[i]
		if prev != nil && prev.SeatID == log.SeatID && !prev.Occupied && log.Occupied {
			start := prev.Timestamp.In(loc)
			end := log.Timestamp.In(loc)

			workStart := time.Date(start.Year(), start.Month(), start.Day(), workStartHour, workStartMinute, 0, 0, loc)
			workEnd := time.Date(end.Year(), end.Month(), end.Day(), workEndHour, workEndMinute, 0, 0, loc)
			if start.Before(workStart) {
				start = workStart
			}
			if end.After(workEnd) {
				end = workEnd
			}
			if start.Before(end) {
				totals[log.CounterID] += end.Sub(start).Minutes()
			}
		}
		prev = &logs[i]
	}

	results := []afkDuration{}
	for counterID, minutes := range totals {
		results = append(results, afkDuration{CounterID: counterID, TotalAbsentMinutes: minutes})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CounterID < results[j].CounterID })
	return results
}

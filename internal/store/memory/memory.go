// Package memory provides an in-memory Store used by unit tests and local
// development. It mirrors the transactional semantics of the postgres store
// under a single mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

type fieldCounter struct {
	tenantID  int64
	fieldID   int64
	counterID int64
}

type Store struct {
	mu            sync.Mutex
	tenants       map[int64]models.Tenant
	counters      map[int64]models.Counter
	seats         map[int64]models.Seat
	procedures    map[int64]models.Procedure
	footers       map[int64]models.Footer
	fieldCounters []fieldCounter
	seatLogs      []models.SeatLog
	tickets       []*models.Ticket
	pauseLogs     []*models.CounterPauseLog
	nextTicket    int64
	nextLog       int64
	nextFooter    int64
}

func NewStore() *Store {
	return &Store{
		tenants:    make(map[int64]models.Tenant),
		counters:   make(map[int64]models.Counter),
		seats:      make(map[int64]models.Seat),
		procedures: make(map[int64]models.Procedure),
		footers:    make(map[int64]models.Footer),
		nextTicket: 1,
		nextLog:    1,
		nextFooter: 1,
	}
}

func (s *Store) AddTenant(tenant models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant.ID] = tenant
}

func (s *Store) AddCounter(counter models.Counter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if counter.Status == "" {
		counter.Status = models.CounterActive
	}
	s.counters[counter.ID] = counter
}

func (s *Store) AddSeat(seat models.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[seat.ID] = seat
}

func (s *Store) AddProcedure(procedure models.Procedure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procedures[procedure.ID] = procedure
}

func (s *Store) AddFieldCounter(tenantID, fieldID, counterID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fieldCounters = append(s.fieldCounters, fieldCounter{
		tenantID:  tenantID,
		fieldID:   fieldID,
		counterID: counterID,
	})
}

// SeatLogs returns a copy of the audit trail, oldest first.
func (s *Store) SeatLogs() []models.SeatLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := make([]models.SeatLog, len(s.seatLogs))
	copy(logs, s.seatLogs)
	return logs
}

// PauseLogs returns a copy of all pause log entries, oldest first.
func (s *Store) PauseLogs() []models.CounterPauseLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	logs := make([]models.CounterPauseLog, 0, len(s.pauseLogs))
	for _, log := range s.pauseLogs {
		logs = append(logs, *log)
	}
	return logs
}

func (s *Store) TenantIDBySlug(_ context.Context, slug string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tenant := range s.tenants {
		if tenant.Slug == slug {
			return tenant.ID, nil
		}
	}
	return 0, store.ErrTenantNotFound
}

func (s *Store) TenantSlug(_ context.Context, tenantID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return "", store.ErrTenantNotFound
	}
	return tenant.Slug, nil
}

func (s *Store) ListAutoCallCounters(_ context.Context) ([]store.CounterRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var refs []store.CounterRef
	for _, counter := range s.counters {
		tenant, ok := s.tenants[counter.TenantID]
		if !ok || !tenant.AutoCall {
			continue
		}
		refs = append(refs, store.CounterRef{CounterID: counter.ID, TenantID: counter.TenantID})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].TenantID != refs[j].TenantID {
			return refs[i].TenantID < refs[j].TenantID
		}
		return refs[i].CounterID < refs[j].CounterID
	})
	return refs, nil
}

func (s *Store) CreateTicket(_ context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[input.TenantID]; !ok {
		return models.Ticket{}, store.ErrTenantNotFound
	}
	counter, ok := s.counters[input.CounterID]
	if !ok || counter.TenantID != input.TenantID {
		return models.Ticket{}, store.ErrCounterNotFound
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	windowStart, windowEnd := daywindow.WindowFor(input.TenantID, createdAt)
	last := 0
	for _, ticket := range s.tickets {
		if ticket.TenantID != input.TenantID {
			continue
		}
		if !daywindow.Contains(windowStart, windowEnd, ticket.CreatedAt) {
			continue
		}
		if ticket.Number > last {
			last = ticket.Number
		}
	}

	ticket := &models.Ticket{
		ID:        s.nextTicket,
		Number:    last + 1,
		CounterID: input.CounterID,
		TenantID:  input.TenantID,
		Status:    models.StatusWaiting,
		CreatedAt: createdAt,
	}
	s.nextTicket++
	s.tickets = append(s.tickets, ticket)
	return *ticket, nil
}

func (s *Store) Advance(_ context.Context, tenantID, counterID int64, now time.Time) (store.AdvanceResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[counterID]
	if !ok || counter.TenantID != tenantID {
		return store.AdvanceResult{}, false, store.ErrCounterNotFound
	}
	if counter.Status != models.CounterActive {
		return store.AdvanceResult{}, false, nil
	}

	var current *models.Ticket
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.CounterID != counterID || ticket.Status != models.StatusCalled {
			continue
		}
		if current == nil || (ticket.CalledAt != nil && current.CalledAt != nil && ticket.CalledAt.After(*current.CalledAt)) {
			current = ticket
		}
	}
	if current != nil {
		finished := now
		current.Status = models.StatusDone
		current.FinishedAt = &finished
	}

	windowStart, windowEnd := daywindow.WindowFor(tenantID, now)
	var next *models.Ticket
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.CounterID != counterID || ticket.Status != models.StatusWaiting {
			continue
		}
		if !daywindow.Contains(windowStart, windowEnd, ticket.CreatedAt) {
			continue
		}
		if next == nil || ticket.CreatedAt.Before(next.CreatedAt) {
			next = ticket
		}
	}
	if next == nil {
		return store.AdvanceResult{}, false, nil
	}

	called := now
	next.Status = models.StatusCalled
	next.CalledAt = &called
	return store.AdvanceResult{Ticket: *next, CounterName: counter.Name}, true, nil
}

func (s *Store) UpdateTicketStatus(_ context.Context, tenantID int64, number int, status models.TicketStatus, now time.Time) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *models.Ticket
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.Number != number {
			continue
		}
		if found == nil || ticket.CreatedAt.After(found.CreatedAt) {
			found = ticket
		}
	}
	if found == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !daywindow.SameLocalDay(found.CreatedAt, now) {
		return models.Ticket{}, store.ErrInvalidWindow
	}

	found.Status = status
	if status == models.StatusDone {
		finished := now
		found.FinishedAt = &finished
	}
	return *found, nil
}

func (s *Store) ListWaitingTickets(_ context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error) {
	return s.listByStatus(tenantID, counterID, models.StatusWaiting, now), nil
}

func (s *Store) ListCalledTickets(_ context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error) {
	return s.listByStatus(tenantID, counterID, models.StatusCalled, now), nil
}

func (s *Store) listByStatus(tenantID int64, counterID *int64, status models.TicketStatus, now time.Time) []models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	windowStart, windowEnd := daywindow.WindowFor(tenantID, now)
	var tickets []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.Status != status {
			continue
		}
		if counterID != nil && ticket.CounterID != *counterID {
			continue
		}
		if !daywindow.Contains(windowStart, windowEnd, ticket.CreatedAt) {
			continue
		}
		tickets = append(tickets, *ticket)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.Before(tickets[j].CreatedAt) })
	return tickets
}

func (s *Store) GetCounter(_ context.Context, tenantID, counterID int64) (models.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counter, ok := s.counters[counterID]
	if !ok || counter.TenantID != tenantID {
		return models.Counter{}, store.ErrCounterNotFound
	}
	return counter, nil
}

func (s *Store) ListCounters(_ context.Context, tenantID int64) ([]models.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var counters []models.Counter
	for _, counter := range s.counters {
		if counter.TenantID == tenantID {
			counters = append(counters, counter)
		}
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].ID < counters[j].ID })
	return counters, nil
}

func (s *Store) PauseCounter(_ context.Context, tenantID, counterID int64, reason string, now time.Time) (models.CounterPauseLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counter, ok := s.counters[counterID]
	if !ok || counter.TenantID != tenantID {
		return models.CounterPauseLog{}, store.ErrCounterNotFound
	}
	counter.Status = models.CounterPaused
	counter.Reason = &reason
	s.counters[counterID] = counter

	log := &models.CounterPauseLog{
		ID:        s.nextLog,
		CounterID: counterID,
		TenantID:  tenantID,
		Reason:    reason,
		StartTime: now,
	}
	s.nextLog++
	s.pauseLogs = append(s.pauseLogs, log)
	return *log, nil
}

func (s *Store) ResumeCounter(_ context.Context, tenantID, counterID int64, now time.Time) (models.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counter, ok := s.counters[counterID]
	if !ok || counter.TenantID != tenantID {
		return models.Counter{}, store.ErrCounterNotFound
	}
	counter.Status = models.CounterActive
	counter.Reason = nil
	s.counters[counterID] = counter

	var open *models.CounterPauseLog
	for _, log := range s.pauseLogs {
		if log.CounterID != counterID || log.TenantID != tenantID || log.EndTime != nil {
			continue
		}
		if open == nil || log.StartTime.After(open.StartTime) {
			open = log
		}
	}
	if open != nil {
		end := now
		open.EndTime = &end
	}
	return counter, nil
}

func (s *Store) GetSeat(_ context.Context, tenantID, seatID int64) (models.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok || seat.TenantID != tenantID {
		return models.Seat{}, store.ErrSeatNotFound
	}
	return seat, nil
}

func (s *Store) ListSeats(_ context.Context, tenantID int64) ([]models.Seat, error) {
	return s.listSeats(tenantID, nil), nil
}

func (s *Store) ListCounterSeats(_ context.Context, tenantID, counterID int64) ([]models.Seat, error) {
	return s.listSeats(tenantID, &counterID), nil
}

func (s *Store) listSeats(tenantID int64, counterID *int64) []models.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	var seats []models.Seat
	for _, seat := range s.seats {
		if seat.TenantID != tenantID {
			continue
		}
		if counterID != nil && seat.CounterID != *counterID {
			continue
		}
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].ID < seats[j].ID })
	return seats
}

func (s *Store) SetSeatOccupancy(_ context.Context, tenantID, seatID int64, occupied bool, now time.Time) (models.Seat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok || seat.TenantID != tenantID {
		return models.Seat{}, false, store.ErrSeatNotFound
	}

	changed := seat.Occupied != occupied
	s.seatLogs = append(s.seatLogs, models.SeatLog{
		ID:        s.nextLog,
		SeatID:    seatID,
		TenantID:  tenantID,
		OldStatus: seat.Occupied,
		NewStatus: occupied,
		Timestamp: now,
	})
	s.nextLog++

	if seat.Occupied && !occupied {
		empty := now
		seat.LastEmptyAt = &empty
	}
	seat.Occupied = occupied
	s.seats[seatID] = seat
	return seat, changed, nil
}

func (s *Store) TicketsPerCounter(_ context.Context, tenantID int64, from, to time.Time) ([]store.CounterCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[int64]int64)
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.CreatedAt.Before(from) || !ticket.CreatedAt.Before(to) {
			continue
		}
		totals[ticket.CounterID]++
	}
	return sortedCounts(totals), nil
}

func (s *Store) AverageWaitSeconds(_ context.Context, tenantID int64, from, to time.Time) ([]store.CounterAverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := make(map[int64]float64)
	counts := make(map[int64]float64)
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.CalledAt == nil {
			continue
		}
		if ticket.CreatedAt.Before(from) || !ticket.CreatedAt.Before(to) {
			continue
		}
		sums[ticket.CounterID] += ticket.CalledAt.Sub(ticket.CreatedAt).Seconds()
		counts[ticket.CounterID]++
	}
	var averages []store.CounterAverage
	for counterID, sum := range sums {
		averages = append(averages, store.CounterAverage{CounterID: counterID, AvgSeconds: sum / counts[counterID]})
	}
	sort.Slice(averages, func(i, j int) bool { return averages[i].CounterID < averages[j].CounterID })
	return averages, nil
}

func (s *Store) ListProcedures(_ context.Context, tenantID int64) ([]models.Procedure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var procedures []models.Procedure
	for _, procedure := range s.procedures {
		if procedure.TenantID == tenantID {
			procedures = append(procedures, procedure)
		}
	}
	sort.Slice(procedures, func(i, j int) bool { return procedures[i].ID < procedures[j].ID })
	return procedures, nil
}

func (s *Store) ListFieldCounters(_ context.Context, tenantID int64) ([]store.FieldCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mappings []store.FieldCounter
	for _, fc := range s.fieldCounters {
		if fc.tenantID != tenantID {
			continue
		}
		name := ""
		if counter, ok := s.counters[fc.counterID]; ok {
			name = counter.Name
		}
		mappings = append(mappings, store.FieldCounter{
			FieldID:     fc.fieldID,
			CounterID:   fc.counterID,
			CounterName: name,
		})
	}
	sort.Slice(mappings, func(i, j int) bool {
		if mappings[i].FieldID != mappings[j].FieldID {
			return mappings[i].FieldID < mappings[j].FieldID
		}
		return mappings[i].CounterID < mappings[j].CounterID
	})
	return mappings, nil
}

func (s *Store) GetFooter(_ context.Context, tenantID int64) (models.Footer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	footer, ok := s.footers[tenantID]
	if !ok {
		return models.Footer{}, store.ErrFooterNotFound
	}
	return footer, nil
}

func (s *Store) UpsertFooter(_ context.Context, tenantID int64, workTime, hotline string) (models.Footer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	footer, ok := s.footers[tenantID]
	if !ok {
		footer = models.Footer{ID: s.nextFooter, TenantID: tenantID}
		s.nextFooter++
	}
	footer.WorkTime = workTime
	footer.Hotline = hotline
	s.footers[tenantID] = footer
	return footer, nil
}

func (s *Store) AttendedTickets(_ context.Context, tenantID int64, from, to time.Time) ([]store.AttendedCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[int64]int64)
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.CalledAt == nil || ticket.FinishedAt == nil {
			continue
		}
		if ticket.CreatedAt.Before(from) || !ticket.CreatedAt.Before(to) {
			continue
		}
		totals[ticket.CounterID]++
	}
	var counts []store.AttendedCount
	for counterID, total := range totals {
		counts = append(counts, store.AttendedCount{CounterID: counterID, Attended: total})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].CounterID < counts[j].CounterID })
	return counts, nil
}

func (s *Store) AverageHandlingSeconds(_ context.Context, tenantID int64, from, to time.Time) ([]store.HandlingAverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := make(map[int64]float64)
	counts := make(map[int64]float64)
	for _, ticket := range s.tickets {
		if ticket.TenantID != tenantID || ticket.CalledAt == nil || ticket.FinishedAt == nil {
			continue
		}
		if ticket.CreatedAt.Before(from) || !ticket.CreatedAt.Before(to) {
			continue
		}
		sums[ticket.CounterID] += ticket.FinishedAt.Sub(*ticket.CalledAt).Seconds()
		counts[ticket.CounterID]++
	}
	var averages []store.HandlingAverage
	for counterID, sum := range sums {
		averages = append(averages, store.HandlingAverage{CounterID: counterID, AvgSeconds: sum / counts[counterID]})
	}
	sort.Slice(averages, func(i, j int) bool { return averages[i].CounterID < averages[j].CounterID })
	return averages, nil
}

func (s *Store) FirstCheckins(_ context.Context, tenantID int64, from, to time.Time) ([]store.CounterCheckin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := make(map[int64]time.Time)
	for _, log := range s.seatLogs {
		if log.TenantID != tenantID || !log.NewStatus {
			continue
		}
		if log.Timestamp.Before(from) || !log.Timestamp.Before(to) {
			continue
		}
		seat, ok := s.seats[log.SeatID]
		if !ok {
			continue
		}
		if current, ok := first[seat.CounterID]; !ok || log.Timestamp.Before(current) {
			first[seat.CounterID] = log.Timestamp
		}
	}
	var checkins []store.CounterCheckin
	for counterID, ts := range first {
		checkins = append(checkins, store.CounterCheckin{CounterID: counterID, FirstCheckin: ts})
	}
	sort.Slice(checkins, func(i, j int) bool { return checkins[i].CounterID < checkins[j].CounterID })
	return checkins, nil
}

func (s *Store) ListSeatOccupancyLogs(_ context.Context, tenantID int64, from, to time.Time) ([]store.SeatOccupancyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var logs []store.SeatOccupancyLog
	for _, log := range s.seatLogs {
		if log.TenantID != tenantID {
			continue
		}
		if log.Timestamp.Before(from) || !log.Timestamp.Before(to) {
			continue
		}
		seat, ok := s.seats[log.SeatID]
		if !ok {
			continue
		}
		logs = append(logs, store.SeatOccupancyLog{
			SeatID:    log.SeatID,
			CounterID: seat.CounterID,
			Occupied:  log.NewStatus,
			Timestamp: log.Timestamp,
		})
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].SeatID != logs[j].SeatID {
			return logs[i].SeatID < logs[j].SeatID
		}
		return logs[i].Timestamp.Before(logs[j].Timestamp)
	})
	return logs, nil
}

func sortedCounts(totals map[int64]int64) []store.CounterCount {
	var counts []store.CounterCount
	for counterID, total := range totals {
		counts = append(counts, store.CounterCount{CounterID: counterID, Total: total})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].CounterID < counts[j].CounterID })
	return counts
}

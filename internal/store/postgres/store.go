package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) TenantIDBySlug(ctx context.Context, slug string) (int64, error) {
	var id int64
	row := s.pool.QueryRow(ctx, `SELECT id FROM tenxa WHERE slug = $1`, slug)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, store.ErrTenantNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *Store) TenantSlug(ctx context.Context, tenantID int64) (string, error) {
	var slug string
	row := s.pool.QueryRow(ctx, `SELECT slug FROM tenxa WHERE id = $1`, tenantID)
	if err := row.Scan(&slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrTenantNotFound
		}
		return "", err
	}
	return slug, nil
}

func (s *Store) ListAutoCallCounters(ctx context.Context) ([]store.CounterRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.tenxa_id
		FROM counters c
		JOIN tenxa t ON t.id = c.tenxa_id
		WHERE t.auto_call = TRUE
		ORDER BY c.tenxa_id, c.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []store.CounterRef
	for rows.Next() {
		var ref store.CounterRef
		if err := rows.Scan(&ref.CounterID, &ref.TenantID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// Serialize numbering per tenant: the tenant row lock prevents two
	// concurrent draws from reading the same MAX(number).
	var tenantID int64
	row := tx.QueryRow(ctx, `SELECT id FROM tenxa WHERE id = $1 FOR UPDATE`, input.TenantID)
	if err = row.Scan(&tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTenantNotFound
		}
		return models.Ticket{}, err
	}

	var exists bool
	row = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM counters WHERE id = $1 AND tenxa_id = $2)
	`, input.CounterID, input.TenantID)
	if err = row.Scan(&exists); err != nil {
		return models.Ticket{}, err
	}
	if !exists {
		err = store.ErrCounterNotFound
		return models.Ticket{}, err
	}

	// Numbering is tenant-wide across all counters, scoped to the window.
	windowStart, windowEnd := daywindow.WindowFor(input.TenantID, createdAt)
	var lastNumber int
	row = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(number), 0)
		FROM tickets
		WHERE tenxa_id = $1 AND created_at >= $2 AND created_at < $3
	`, input.TenantID, windowStart, windowEnd)
	if err = row.Scan(&lastNumber); err != nil {
		return models.Ticket{}, err
	}

	var ticket models.Ticket
	row = tx.QueryRow(ctx, `
		INSERT INTO tickets (number, counter_id, tenxa_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, number, counter_id, tenxa_id, status, created_at
	`, lastNumber+1, input.CounterID, input.TenantID, models.StatusWaiting, createdAt)
	if err = row.Scan(&ticket.ID, &ticket.Number, &ticket.CounterID, &ticket.TenantID, &ticket.Status, &ticket.CreatedAt); err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) Advance(ctx context.Context, tenantID, counterID int64, now time.Time) (store.AdvanceResult, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.AdvanceResult{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// The counter row lock is the per-counter mutual exclusion: a manual
	// call-next and a scheduler tick racing on the same counter serialize
	// here, keeping at most one called ticket per counter.
	var counterName string
	var counterStatus string
	row := tx.QueryRow(ctx, `
		SELECT name, status
		FROM counters
		WHERE id = $1 AND tenxa_id = $2
		FOR UPDATE
	`, counterID, tenantID)
	if err = row.Scan(&counterName, &counterStatus); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCounterNotFound
		}
		return store.AdvanceResult{}, false, err
	}
	if models.CounterStatus(counterStatus) != models.CounterActive {
		if err = tx.Commit(ctx); err != nil {
			return store.AdvanceResult{}, false, err
		}
		return store.AdvanceResult{}, false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE tickets
		SET status = $1, finished_at = $2
		WHERE id IN (
			SELECT id FROM tickets
			WHERE status = $3 AND counter_id = $4 AND tenxa_id = $5
			ORDER BY called_at DESC
			LIMIT 1
		)
	`, models.StatusDone, now, models.StatusCalled, counterID, tenantID)
	if err != nil {
		return store.AdvanceResult{}, false, err
	}

	windowStart, windowEnd := daywindow.WindowFor(tenantID, now)
	var ticket models.Ticket
	var calledAt sql.NullTime
	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1, called_at = $2
		WHERE id = (
			SELECT id FROM tickets
			WHERE status = $3 AND counter_id = $4 AND tenxa_id = $5
				AND created_at >= $6 AND created_at < $7
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING id, number, counter_id, tenxa_id, status, created_at, called_at
	`, models.StatusCalled, now, models.StatusWaiting, counterID, tenantID, windowStart, windowEnd)
	if err = row.Scan(&ticket.ID, &ticket.Number, &ticket.CounterID, &ticket.TenantID, &ticket.Status, &ticket.CreatedAt, &calledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = tx.Commit(ctx)
			return store.AdvanceResult{}, false, err
		}
		return store.AdvanceResult{}, false, err
	}
	ticket.CalledAt = nullTimePtr(calledAt)

	if err = tx.Commit(ctx); err != nil {
		return store.AdvanceResult{}, false, err
	}
	return store.AdvanceResult{Ticket: ticket, CounterName: counterName}, true, nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, tenantID int64, number int, status models.TicketStatus, now time.Time) (models.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var ticket models.Ticket
	var calledAt, finishedAt sql.NullTime
	row := tx.QueryRow(ctx, `
		SELECT id, number, counter_id, tenxa_id, status, created_at, called_at, finished_at
		FROM tickets
		WHERE tenxa_id = $1 AND number = $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`, tenantID, number)
	if err = row.Scan(&ticket.ID, &ticket.Number, &ticket.CounterID, &ticket.TenantID, &ticket.Status, &ticket.CreatedAt, &calledAt, &finishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	ticket.CalledAt = nullTimePtr(calledAt)
	ticket.FinishedAt = nullTimePtr(finishedAt)

	if !daywindow.SameLocalDay(ticket.CreatedAt, now) {
		err = store.ErrInvalidWindow
		return models.Ticket{}, err
	}

	ticket.Status = status
	if status == models.StatusDone {
		ticket.FinishedAt = &now
		_, err = tx.Exec(ctx, `UPDATE tickets SET status = $1, finished_at = $2 WHERE id = $3`, status, now, ticket.ID)
	} else {
		_, err = tx.Exec(ctx, `UPDATE tickets SET status = $1 WHERE id = $2`, status, ticket.ID)
	}
	if err != nil {
		return models.Ticket{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListWaitingTickets(ctx context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error) {
	return s.listByStatus(ctx, tenantID, counterID, models.StatusWaiting, now)
}

func (s *Store) ListCalledTickets(ctx context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error) {
	return s.listByStatus(ctx, tenantID, counterID, models.StatusCalled, now)
}

func (s *Store) listByStatus(ctx context.Context, tenantID int64, counterID *int64, status models.TicketStatus, now time.Time) ([]models.Ticket, error) {
	windowStart, windowEnd := daywindow.WindowFor(tenantID, now)
	query := `
		SELECT id, number, counter_id, tenxa_id, status, created_at, called_at, finished_at
		FROM tickets
		WHERE tenxa_id = $1 AND status = $2 AND created_at >= $3 AND created_at < $4
	`
	args := []interface{}{tenantID, status, windowStart, windowEnd}
	if counterID != nil {
		query += " AND counter_id = $5"
		args = append(args, *counterID)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		var calledAt, finishedAt sql.NullTime
		if err := rows.Scan(&ticket.ID, &ticket.Number, &ticket.CounterID, &ticket.TenantID, &ticket.Status, &ticket.CreatedAt, &calledAt, &finishedAt); err != nil {
			return nil, err
		}
		ticket.CalledAt = nullTimePtr(calledAt)
		ticket.FinishedAt = nullTimePtr(finishedAt)
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetCounter(ctx context.Context, tenantID, counterID int64) (models.Counter, error) {
	var counter models.Counter
	var reason sql.NullString
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenxa_id, name, status, reason
		FROM counters
		WHERE id = $1 AND tenxa_id = $2
	`, counterID, tenantID)
	if err := row.Scan(&counter.ID, &counter.TenantID, &counter.Name, &counter.Status, &reason); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Counter{}, store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}
	counter.Reason = nullStringPtr(reason)
	return counter, nil
}

func (s *Store) ListCounters(ctx context.Context, tenantID int64) ([]models.Counter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenxa_id, name, status, reason
		FROM counters
		WHERE tenxa_id = $1
		ORDER BY id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []models.Counter
	for rows.Next() {
		var counter models.Counter
		var reason sql.NullString
		if err := rows.Scan(&counter.ID, &counter.TenantID, &counter.Name, &counter.Status, &reason); err != nil {
			return nil, err
		}
		counter.Reason = nullStringPtr(reason)
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *Store) PauseCounter(ctx context.Context, tenantID, counterID int64, reason string, now time.Time) (models.CounterPauseLog, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.CounterPauseLog{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE counters SET status = $1, reason = $2 WHERE id = $3 AND tenxa_id = $4
	`, models.CounterPaused, reason, counterID, tenantID)
	if err != nil {
		return models.CounterPauseLog{}, err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrCounterNotFound
		return models.CounterPauseLog{}, err
	}

	var log models.CounterPauseLog
	row := tx.QueryRow(ctx, `
		INSERT INTO counter_pause_logs (counter_id, tenxa_id, reason, start_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, counter_id, tenxa_id, reason, start_time
	`, counterID, tenantID, reason, now)
	if err = row.Scan(&log.ID, &log.CounterID, &log.TenantID, &log.Reason, &log.StartTime); err != nil {
		return models.CounterPauseLog{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.CounterPauseLog{}, err
	}
	return log, nil
}

func (s *Store) ResumeCounter(ctx context.Context, tenantID, counterID int64, now time.Time) (models.Counter, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Counter{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var counter models.Counter
	row := tx.QueryRow(ctx, `
		UPDATE counters SET status = $1, reason = NULL
		WHERE id = $2 AND tenxa_id = $3
		RETURNING id, tenxa_id, name, status
	`, models.CounterActive, counterID, tenantID)
	if err = row.Scan(&counter.ID, &counter.TenantID, &counter.Name, &counter.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}

	// Resume with no open pause log is still a successful reactivation.
	_, err = tx.Exec(ctx, `
		UPDATE counter_pause_logs SET end_time = $1
		WHERE id = (
			SELECT id FROM counter_pause_logs
			WHERE counter_id = $2 AND tenxa_id = $3 AND end_time IS NULL
			ORDER BY start_time DESC
			LIMIT 1
		)
	`, now, counterID, tenantID)
	if err != nil {
		return models.Counter{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Counter{}, err
	}
	return counter, nil
}

// scanSeat reads one seat row, rejecting rows whose type column is outside
// the closed officer|client set.
func scanSeat(scan func(dest ...interface{}) error) (models.Seat, error) {
	var seat models.Seat
	var rawType string
	var lastEmpty sql.NullTime
	if err := scan(&seat.ID, &seat.CounterID, &seat.TenantID, &seat.Name, &rawType, &seat.Occupied, &lastEmpty); err != nil {
		return models.Seat{}, err
	}
	seatType, err := models.ParseSeatType(rawType)
	if err != nil {
		return models.Seat{}, fmt.Errorf("seat %d: %w", seat.ID, err)
	}
	seat.Type = seatType
	seat.LastEmptyAt = nullTimePtr(lastEmpty)
	return seat, nil
}

func (s *Store) GetSeat(ctx context.Context, tenantID, seatID int64) (models.Seat, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, counter_id, tenxa_id, name, type, status, last_empty_time
		FROM seats
		WHERE id = $1 AND tenxa_id = $2
	`, seatID, tenantID)
	seat, err := scanSeat(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Seat{}, store.ErrSeatNotFound
		}
		return models.Seat{}, err
	}
	return seat, nil
}

func (s *Store) ListSeats(ctx context.Context, tenantID int64) ([]models.Seat, error) {
	return s.listSeats(ctx, tenantID, nil)
}

func (s *Store) ListCounterSeats(ctx context.Context, tenantID, counterID int64) ([]models.Seat, error) {
	return s.listSeats(ctx, tenantID, &counterID)
}

func (s *Store) listSeats(ctx context.Context, tenantID int64, counterID *int64) ([]models.Seat, error) {
	query := `
		SELECT id, counter_id, tenxa_id, name, type, status, last_empty_time
		FROM seats
		WHERE tenxa_id = $1
	`
	args := []interface{}{tenantID}
	if counterID != nil {
		query += " AND counter_id = $2"
		args = append(args, *counterID)
	}
	query += " ORDER BY id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []models.Seat
	for rows.Next() {
		seat, err := scanSeat(rows.Scan)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

func (s *Store) SetSeatOccupancy(ctx context.Context, tenantID, seatID int64, occupied bool, now time.Time) (models.Seat, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Seat{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT id, counter_id, tenxa_id, name, type, status, last_empty_time
		FROM seats
		WHERE id = $1 AND tenxa_id = $2
		FOR UPDATE
	`, seatID, tenantID)
	var seat models.Seat
	if seat, err = scanSeat(row.Scan); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrSeatNotFound
		}
		return models.Seat{}, false, err
	}

	changed := seat.Occupied != occupied
	if seat.Occupied && !occupied {
		seat.LastEmptyAt = &now
		_, err = tx.Exec(ctx, `UPDATE seats SET status = $1, last_empty_time = $2 WHERE id = $3`, occupied, now, seatID)
	} else {
		_, err = tx.Exec(ctx, `UPDATE seats SET status = $1 WHERE id = $2`, occupied, seatID)
	}
	if err != nil {
		return models.Seat{}, false, err
	}

	// The seat log is an append-only audit trail, written on every update
	// even when the occupancy did not change.
	_, err = tx.Exec(ctx, `
		INSERT INTO seat_logs (seat_id, tenxa_id, old_status, new_status, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, seatID, tenantID, seat.Occupied, occupied, now)
	if err != nil {
		return models.Seat{}, false, err
	}
	seat.Occupied = occupied

	if err = tx.Commit(ctx); err != nil {
		return models.Seat{}, false, err
	}
	return seat, changed, nil
}

func (s *Store) TicketsPerCounter(ctx context.Context, tenantID int64, from, to time.Time) ([]store.CounterCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT counter_id, COUNT(*)
		FROM tickets
		WHERE tenxa_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY counter_id
		ORDER BY counter_id ASC
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []store.CounterCount
	for rows.Next() {
		var count store.CounterCount
		if err := rows.Scan(&count.CounterID, &count.Total); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) AverageWaitSeconds(ctx context.Context, tenantID int64, from, to time.Time) ([]store.CounterAverage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT counter_id, AVG(EXTRACT(EPOCH FROM (called_at - created_at)))
		FROM tickets
		WHERE tenxa_id = $1 AND called_at IS NOT NULL
			AND created_at >= $2 AND created_at < $3
		GROUP BY counter_id
		ORDER BY counter_id ASC
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var averages []store.CounterAverage
	for rows.Next() {
		var avg store.CounterAverage
		if err := rows.Scan(&avg.CounterID, &avg.AvgSeconds); err != nil {
			return nil, err
		}
		averages = append(averages, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return averages, nil
}

func (s *Store) ListProcedures(ctx context.Context, tenantID int64) ([]models.Procedure, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, field_id, tenxa_id
		FROM procedures
		WHERE tenxa_id = $1
		ORDER BY id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var procedures []models.Procedure
	for rows.Next() {
		var procedure models.Procedure
		if err := rows.Scan(&procedure.ID, &procedure.Name, &procedure.FieldID, &procedure.TenantID); err != nil {
			return nil, err
		}
		procedures = append(procedures, procedure)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return procedures, nil
}

func (s *Store) ListFieldCounters(ctx context.Context, tenantID int64) ([]store.FieldCounter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cf.field_id, cf.counter_id, c.name
		FROM counter_field cf
		JOIN counters c ON c.id = cf.counter_id
		WHERE cf.tenxa_id = $1
		ORDER BY cf.field_id, cf.counter_id
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []store.FieldCounter
	for rows.Next() {
		var mapping store.FieldCounter
		if err := rows.Scan(&mapping.FieldID, &mapping.CounterID, &mapping.CounterName); err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (s *Store) GetFooter(ctx context.Context, tenantID int64) (models.Footer, error) {
	var footer models.Footer
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenxa_id, work_time, hotline
		FROM footers
		WHERE tenxa_id = $1
	`, tenantID)
	if err := row.Scan(&footer.ID, &footer.TenantID, &footer.WorkTime, &footer.Hotline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Footer{}, store.ErrFooterNotFound
		}
		return models.Footer{}, err
	}
	return footer, nil
}

func (s *Store) UpsertFooter(ctx context.Context, tenantID int64, workTime, hotline string) (models.Footer, error) {
	var footer models.Footer
	row := s.pool.QueryRow(ctx, `
		INSERT INTO footers (tenxa_id, work_time, hotline)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenxa_id) DO UPDATE SET work_time = EXCLUDED.work_time, hotline = EXCLUDED.hotline
		RETURNING id, tenxa_id, work_time, hotline
	`, tenantID, workTime, hotline)
	if err := row.Scan(&footer.ID, &footer.TenantID, &footer.WorkTime, &footer.Hotline); err != nil {
		return models.Footer{}, err
	}
	return footer, nil
}

func (s *Store) AttendedTickets(ctx context.Context, tenantID int64, from, to time.Time) ([]store.AttendedCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT counter_id, COUNT(*)
		FROM tickets
		WHERE tenxa_id = $1 AND called_at IS NOT NULL AND finished_at IS NOT NULL
			AND created_at >= $2 AND created_at < $3
		GROUP BY counter_id
		ORDER BY counter_id ASC
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []store.AttendedCount
	for rows.Next() {
		var count store.AttendedCount
		if err := rows.Scan(&count.CounterID, &count.Attended); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Store) AverageHandlingSeconds(ctx context.Context, tenantID int64, from, to time.Time) ([]store.HandlingAverage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT counter_id, AVG(EXTRACT(EPOCH FROM (finished_at - called_at)))
		FROM tickets
		WHERE tenxa_id = $1 AND called_at IS NOT NULL AND finished_at IS NOT NULL
			AND created_at >= $2 AND created_at < $3
		GROUP BY counter_id
		ORDER BY counter_id ASC
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var averages []store.HandlingAverage
	for rows.Next() {
		var avg store.HandlingAverage
		if err := rows.Scan(&avg.CounterID, &avg.AvgSeconds); err != nil {
			return nil, err
		}
		averages = append(averages, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return averages, nil
}

func (s *Store) FirstCheckins(ctx context.Context, tenantID int64, from, to time.Time) ([]store.CounterCheckin, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.counter_id, MIN(l.timestamp)
		FROM seat_logs l
		JOIN seats s ON s.id = l.seat_id
		WHERE l.tenxa_id = $1 AND l.new_status = TRUE
			AND l.timestamp >= $2 AND l.timestamp < $3
		GROUP BY s.counter_id
		ORDER BY s.counter_id ASC
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkins []store.CounterCheckin
	for rows.Next() {
		var checkin store.CounterCheckin
		if err := rows.Scan(&checkin.CounterID, &checkin.FirstCheckin); err != nil {
			return nil, err
		}
		checkins = append(checkins, checkin)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return checkins, nil
}

func (s *Store) ListSeatOccupancyLogs(ctx context.Context, tenantID int64, from, to time.Time) ([]store.SeatOccupancyLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.seat_id, s.counter_id, l.new_status, l.timestamp
		FROM seat_logs l
		JOIN seats s ON s.id = l.seat_id
		WHERE l.tenxa_id = $1 AND l.timestamp >= $2 AND l.timestamp < $3
		ORDER BY l.seat_id, l.timestamp
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []store.SeatOccupancyLog
	for rows.Next() {
		var log store.SeatOccupancyLog
		if err := rows.Scan(&log.SeatID, &log.CounterID, &log.Occupied, &log.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

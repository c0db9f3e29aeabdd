package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nguyenthanhak8-hue/LSTD/internal/cache"
	"github.com/nguyenthanhak8-hue/LSTD/internal/daywindow"
	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/queue"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

type Handler struct {
	engine   *queue.Engine
	store    store.Store
	tenants  *cache.Tenants
	verifier *TokenVerifier
}

func NewHandler(engine *queue.Engine, st store.Store, tenants *cache.Tenants, verifier *TokenVerifier) *Handler {
	return &Handler{engine: engine, store: st, tenants: tenants, verifier: verifier}
}

type createTicketRequest struct {
	CounterID int64 `json:"counter_id"`
}

type updateStatusRequest struct {
	Number int    `json:"number"`
	Status string `json:"status"`
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

type updateSeatRequest struct {
	Occupied bool `json:"occupied"`
}

type calledTicketResponse struct {
	Number      int    `json:"number"`
	CounterName string `json:"counter_name"`
	Tenxa       string `json:"tenxa"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleCreateTicket)
	mux.HandleFunc("/api/tickets/waiting", h.handleWaitingTickets)
	mux.HandleFunc("/api/tickets/called", h.handleCalledTickets)
	mux.HandleFunc("/api/tickets/status", h.handleUpdateStatus)
	mux.HandleFunc("/api/counters", h.handleListCounters)
	mux.HandleFunc("/api/counters/", h.handleCounter)
	mux.HandleFunc("/api/seats", h.handleListSeats)
	mux.HandleFunc("/api/seats/", h.handleSeat)
	mux.HandleFunc("/api/procedures", h.handleListProcedures)
	mux.HandleFunc("/api/procedures/search-extended", h.handleSearchProcedures)
	mux.HandleFunc("/api/footer", h.handleFooter)
	mux.HandleFunc("/api/stats/tickets-per-counter", h.handleTicketsPerCounter)
	mux.HandleFunc("/api/stats/average-wait", h.handleAverageWait)
	mux.HandleFunc("/api/stats/attended-tickets", h.handleAttendedTickets)
	mux.HandleFunc("/api/stats/average-handling-time", h.handleAverageHandlingTime)
	mux.HandleFunc("/api/stats/working-time-check", h.handleWorkingTimeCheck)
	mux.HandleFunc("/api/stats/afk-duration", h.handleAfkDuration)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	var req createTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.CounterID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter_id is required")
		return
	}

	ticket, err := h.engine.Draw(r.Context(), tenantID, req.CounterID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleWaitingTickets(w http.ResponseWriter, r *http.Request) {
	h.handleTicketList(w, r, h.store.ListWaitingTickets)
}

func (h *Handler) handleCalledTickets(w http.ResponseWriter, r *http.Request) {
	h.handleTicketList(w, r, h.store.ListCalledTickets)
}

func (h *Handler) handleTicketList(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, tenantID int64, counterID *int64, now time.Time) ([]models.Ticket, error)) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	var counterID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("counter_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "counter_id must be an integer")
			return
		}
		counterID = &id
	}

	tickets, err := list(r.Context(), tenantID, counterID, time.Now().UTC())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	status, err := models.ParseTicketStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "status must be waiting, called, or done")
		return
	}

	ticket, err := h.engine.UpdateStatus(r.Context(), tenantID, req.Number, status)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleListCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	counters, err := h.store.ListCounters(r.Context(), tenantID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if counters == nil {
		counters = []models.Counter{}
	}
	writeJSON(w, http.StatusOK, counters)
}

// handleCounter dispatches /api/counters/{id} and /api/counters/{id}/{action}.
func (h *Handler) handleCounter(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/counters/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	counterID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || counterID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "counter id must be an integer")
		return
	}

	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		counter, err := h.store.GetCounter(r.Context(), tenantID, counterID)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counter)
		return
	}

	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	r, claims, err := h.requireAuth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid bearer token required")
		return
	}
	if !canOperateCounter(claims, tenantID, counterID) {
		writeError(w, http.StatusForbidden, "forbidden", "not your counter to operate")
		return
	}

	switch parts[1] {
	case "call-next":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.callNext(w, r, tenantID, counterID)
	case "pause":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.pauseCounter(w, r, tenantID, counterID)
	case "resume":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.resumeCounter(w, r, tenantID, counterID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) callNext(w http.ResponseWriter, r *http.Request, tenantID, counterID int64) {
	ticket, err := h.engine.CallNext(r.Context(), tenantID, counterID)
	if err != nil {
		if errors.Is(err, store.ErrNoTicket) {
			writeError(w, http.StatusNotFound, "no_ticket", "no more tickets to call")
			return
		}
		h.writeStoreError(w, err)
		return
	}

	slug, _ := h.store.TenantSlug(r.Context(), tenantID)
	counter, err := h.store.GetCounter(r.Context(), tenantID, counterID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calledTicketResponse{
		Number:      ticket.Number,
		CounterName: counter.Name,
		Tenxa:       slug,
	})
}

func (h *Handler) pauseCounter(w http.ResponseWriter, r *http.Request, tenantID, counterID int64) {
	var req pauseRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "reason is required")
		return
	}

	log, err := h.engine.Pause(r.Context(), tenantID, counterID, req.Reason)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) resumeCounter(w http.ResponseWriter, r *http.Request, tenantID, counterID int64) {
	counter, err := h.engine.Resume(r.Context(), tenantID, counterID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counter)
}

func (h *Handler) handleListSeats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	seats, err := h.store.ListSeats(r.Context(), tenantID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if seats == nil {
		seats = []models.Seat{}
	}
	writeJSON(w, http.StatusOK, seats)
}

func (h *Handler) handleSeat(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/seats/"), "/")
	seatID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seatID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "seat id must be an integer")
		return
	}

	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		seat, err := h.store.GetSeat(r.Context(), tenantID, seatID)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, seat)
	case http.MethodPut:
		var req updateSeatRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		seat, err := h.engine.SetSeatOccupancy(r.Context(), tenantID, seatID, req.Occupied)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, seat)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleTicketsPerCounter(w http.ResponseWriter, r *http.Request) {
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
	counts, err := h.store.TicketsPerCounter(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if counts == nil {
		counts = []store.CounterCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) handleAverageWait(w http.ResponseWriter, r *http.Request) {
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
	averages, err := h.store.AverageWaitSeconds(r.Context(), tenantID, from, to)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if averages == nil {
		averages = []store.CounterAverage{}
	}
	writeJSON(w, http.StatusOK, averages)
}

// statsRange parses optional from/to date query params (YYYY-MM-DD in the
// reference timezone), defaulting to today.
func statsRange(r *http.Request) (time.Time, time.Time, error) {
	loc := daywindow.Location()
	now := time.Now().In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func (h *Handler) resolveTenant(w http.ResponseWriter, r *http.Request) (int64, bool) {
	slug := strings.TrimSpace(r.URL.Query().Get("tenxa"))
	if slug == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "tenxa query parameter is required")
		return 0, false
	}
	tenantID, err := h.tenants.ResolveSlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			writeError(w, http.StatusNotFound, "tenant_not_found", "unknown tenxa")
			return 0, false
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "tenant lookup failed")
		return 0, false
	}
	return tenantID, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrCounterNotFound):
		writeError(w, http.StatusNotFound, "counter_not_found", "counter not found")
	case errors.Is(err, store.ErrSeatNotFound):
		writeError(w, http.StatusNotFound, "seat_not_found", "seat not found")
	case errors.Is(err, store.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, "ticket_not_found", "ticket not found")
	case errors.Is(err, store.ErrTenantNotFound):
		writeError(w, http.StatusNotFound, "tenant_not_found", "unknown tenxa")
	case errors.Is(err, store.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", "ticket can only be updated on its creation day")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

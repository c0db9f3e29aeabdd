package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticketsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lstd_tickets_issued_total",
		Help: "Tickets drawn, by tenant slug",
	}, []string{"tenxa"})

	ticketsCalled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lstd_tickets_called_total",
		Help: "Tickets advanced to called, by trigger (auto or manual)",
	}, []string{"trigger"})

	schedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lstd_scheduler_ticks_total",
		Help: "Scheduler loop timer expirations across all counters",
	})

	schedulerResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lstd_scheduler_resets_total",
		Help: "Early wakes consumed by scheduler loops",
	})

	schedulerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lstd_scheduler_errors_total",
		Help: "Advance attempts that failed inside scheduler loops",
	})

	broadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lstd_broadcast_dropped_total",
		Help: "Events dropped because an observer could not keep up",
	})

	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lstd_realtime_clients",
		Help: "Currently connected realtime observers",
	})
)

func TicketIssued(tenxa string)     { ticketsIssued.WithLabelValues(tenxa).Inc() }
func TicketCalled(trigger string)   { ticketsCalled.WithLabelValues(trigger).Inc() }
func SchedulerTick()                { schedulerTicks.Inc() }
func SchedulerReset()               { schedulerResets.Inc() }
func SchedulerError()               { schedulerErrors.Inc() }
func BroadcastDropped()             { broadcastDrops.Inc() }
func SetConnectedClients(count int) { connectedClients.Set(float64(count)) }

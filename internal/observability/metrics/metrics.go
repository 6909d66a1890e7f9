package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/histograms for the scheduling flows.
type SchedulerMetrics struct {
	turnsTotal         *prometheus.CounterVec
	oracleTotal        *prometheus.CounterVec
	bookingsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	turnLatency        *prometheus.HistogramVec
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Total dialogue turns by intent and outcome",
		}, []string{"intent", "outcome"}),
		oracleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "agent",
			Name:      "oracle_consultations_total",
			Help:      "Total oracle consultations by status",
		}, []string{"status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Total booking attempts by result",
		}, []string{"result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicdesk",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total notification deliveries by channel and status",
		}, []string{"channel", "status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicdesk",
			Subsystem: "agent",
			Name:      "turn_latency_seconds",
			Help:      "Latency of dialogue turn handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.oracleTotal, m.bookingsTotal, m.notificationsTotal, m.turnLatency)
	return m
}

func (m *SchedulerMetrics) ObserveTurn(intent, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *SchedulerMetrics) ObserveOracle(status string) {
	if m == nil {
		return
	}
	m.oracleTotal.WithLabelValues(status).Inc()
}

func (m *SchedulerMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulerMetrics) ObserveNotification(channel string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}

func (m *SchedulerMetrics) ObserveTurnLatency(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

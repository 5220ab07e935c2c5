package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the scheduling flows.
type BookingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	slotConflicts     prometheus.Counter
	statusTransitions *prometheus.CounterVec
	bookingLatency    prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"outcome"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "scheduling",
			Name:      "slot_conflicts_total",
			Help:      "Bookings rejected because the slot was already taken",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions, including cancellations",
		}, []string{"status"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinicbook",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "Latency of booking requests",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotConflicts, m.statusTransitions, m.bookingLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *BookingMetrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

// RecoveryMetrics counts password-reset activity.
type RecoveryMetrics struct {
	codesIssued   prometheus.Counter
	resetOutcomes *prometheus.CounterVec
}

func NewRecoveryMetrics(reg prometheus.Registerer) *RecoveryMetrics {
	m := &RecoveryMetrics{
		codesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "recovery",
			Name:      "codes_issued_total",
			Help:      "One-time reset codes issued",
		}),
		resetOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "recovery",
			Name:      "confirmations_total",
			Help:      "Password reset confirmation outcomes",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.codesIssued, m.resetOutcomes)
	return m
}

func (m *RecoveryMetrics) ObserveCodeIssued() {
	if m == nil {
		return
	}
	m.codesIssued.Inc()
}

func (m *RecoveryMetrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.resetOutcomes.WithLabelValues(outcome).Inc()
}

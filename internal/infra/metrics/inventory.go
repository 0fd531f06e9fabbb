package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	codesImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_imported_total",
			Help: "Codes imported per plan, split by inserted/duplicate.",
		},
		[]string{"plan", "result"},
	)

	codesAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_allocated_total",
			Help: "Codes allocated to purchases, by allocation path (sale/manual).",
		},
		[]string{"path"},
	)

	codesExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "codes_expired_total",
			Help: "Available codes flipped to expired by the expiry sweep.",
		},
	)

	salesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_total",
			Help: "Sale attempts by outcome (approved/pending_code_delivery/rejected).",
		},
		[]string{"outcome"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Expiry reminders dispatched per stage.",
		},
		[]string{"stage"},
	)

	remindersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_failed_total",
			Help: "Reminder dispatch failures per stage.",
		},
		[]string{"stage"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_sweep_duration_seconds",
			Help:    "Duration of one full reminder sweep.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func init() {
	register(codesImported, codesAllocated, codesExpired, salesTotal, remindersSent, remindersFailed, sweepDuration)
}

func IncCodesImported(plan string, inserted, duplicates int) {
	codesImported.WithLabelValues(plan, "inserted").Add(float64(inserted))
	codesImported.WithLabelValues(plan, "duplicate").Add(float64(duplicates))
}

func IncCodesAllocated(path string) { codesAllocated.WithLabelValues(path).Inc() }

func IncCodesExpired(n int) { codesExpired.Add(float64(n)) }

func IncSale(outcome string) { salesTotal.WithLabelValues(outcome).Inc() }

func IncReminderSent(stage string) { remindersSent.WithLabelValues(stage).Inc() }

func IncReminderFailed(stage string) { remindersFailed.WithLabelValues(stage).Inc() }

func ObserveSweepDuration(d time.Duration) { sweepDuration.Observe(d.Seconds()) }

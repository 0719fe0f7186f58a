// Package metrics counts reminder and persistence outcomes. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/urgency"
)

const namespace = "rightontime"

type Metrics struct {
	scheduled           prometheus.Counter
	cancelled           prometheus.Counter
	fired               prometheus.Counter
	persistenceFailures prometheus.Counter
	schedulingFailures  prometheus.Counter
	records             prometheus.Gauge
	recordsByTier       *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_scheduled_total",
			Help:      "Reminder alarms created on the notification port.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_cancelled_total",
			Help:      "Reminder alarms cancelled on the notification port.",
		}),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Reminder alarms delivered as notifications.",
		}),
		persistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Record list writes that failed and were rolled back.",
		}),
		schedulingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduling_failures_total",
			Help:      "Failed create or cancel calls on the notification port.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_tracked",
			Help:      "Records currently tracked.",
		}),
		recordsByTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_by_tier",
			Help:      "Records per urgency tier.",
		}, []string{"tier"}),
	}
	for _, c := range []prometheus.Collector{
		m.scheduled, m.cancelled, m.fired, m.persistenceFailures,
		m.schedulingFailures, m.records, m.recordsByTier,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Scheduled(n int) {
	if m != nil && n > 0 {
		m.scheduled.Add(float64(n))
	}
}

func (m *Metrics) Cancelled(n int) {
	if m != nil && n > 0 {
		m.cancelled.Add(float64(n))
	}
}

func (m *Metrics) Fired() {
	if m != nil {
		m.fired.Inc()
	}
}

func (m *Metrics) PersistenceFailed() {
	if m != nil {
		m.persistenceFailures.Inc()
	}
}

func (m *Metrics) SchedulingFailed(n int) {
	if m != nil && n > 0 {
		m.schedulingFailures.Add(float64(n))
	}
}

// ObserveRecords sets the record gauges from the current list.
func (m *Metrics) ObserveRecords(list []model.TrackedRecord, now time.Time) {
	if m == nil {
		return
	}
	m.records.Set(float64(len(list)))
	counts := map[urgency.Tier]int{urgency.TierHigh: 0, urgency.TierMedium: 0, urgency.TierLow: 0}
	for _, rec := range list {
		counts[urgency.TierOf(rec.ExpiryDate, now)]++
	}
	for tier, n := range counts {
		m.recordsByTier.WithLabelValues(string(tier)).Set(float64(n))
	}
}

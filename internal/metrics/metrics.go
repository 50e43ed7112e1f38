package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes recorded per run.
const (
	OutcomeSent      = "sent"
	OutcomeCancelled = "cancelled"
)

// Dispatch holds the delivery pipeline metrics. A nil *Dispatch is valid and
// records nothing.
type Dispatch struct {
	Runs       *prometheus.CounterVec
	Deliveries *prometheus.CounterVec
	Duration   prometheus.Histogram
}

// NewDispatch creates the dispatch metrics and registers them on reg
// (the default registerer when reg is nil).
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Dispatch{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brief",
			Name:      "dispatch_runs_total",
			Help:      "Send runs finished by the dispatcher, by outcome",
		}, []string{"outcome"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brief",
			Name:      "deliveries_total",
			Help:      "Delivery events recorded, by event type",
		}, []string{"event_type"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brief",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of one dispatch pass",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		}),
	}
}

// RunFinished counts a completed or cancelled run.
func (d *Dispatch) RunFinished(outcome string) {
	if d == nil {
		return
	}
	d.Runs.WithLabelValues(outcome).Inc()
}

// Delivered counts one delivery event.
func (d *Dispatch) Delivered(eventType string) {
	if d == nil {
		return
	}
	d.Deliveries.WithLabelValues(eventType).Inc()
}

// ObservePass records the duration of a dispatch pass.
func (d *Dispatch) ObservePass(elapsed time.Duration) {
	if d == nil {
		return
	}
	d.Duration.Observe(elapsed.Seconds())
}

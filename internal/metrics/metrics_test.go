package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDispatchCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatch(reg)

	m.RunFinished(OutcomeSent)
	m.RunFinished(OutcomeSent)
	m.RunFinished(OutcomeCancelled)
	m.Delivered("DELIVERED")
	m.Delivered("BOUNCED")
	m.ObservePass(250 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues(OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues(OutcomeCancelled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("BOUNCED")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestNilDispatchIsNoop(t *testing.T) {
	var m *Dispatch
	assert.NotPanics(t, func() {
		m.RunFinished(OutcomeSent)
		m.Delivered("DELIVERED")
		m.ObservePass(time.Second)
	})
}

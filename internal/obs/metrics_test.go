package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdata/internal/model/enum"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncDispatched(enum.OperationUpdate)
	m.ObserveResolved(time.Millisecond)
	m.IncRollback()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.IncDispatched(enum.OperationUpdate)
	m.IncDispatched(enum.OperationUpdate)
	m.IncHandled(enum.OperationDelete)
	m.ObserveResolved(2 * time.Millisecond)
	m.ObserveResolved(4 * time.Millisecond)
	m.IncTimeout()
	m.IncLateResponse()
	m.ObserveCommit(time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.Dispatched[enum.OperationUpdate])
	assert.Equal(t, uint64(1), s.Handled[enum.OperationDelete])
	assert.Equal(t, uint64(2), s.Resolved)
	assert.Equal(t, uint64(1), s.Timeouts)
	assert.Equal(t, uint64(1), s.LateResponses)
	assert.Equal(t, uint64(1), s.Commits)
	assert.Equal(t, 2*time.Millisecond, s.RoundTripLatency.Min)
	assert.Equal(t, 4*time.Millisecond, s.RoundTripLatency.Max)
	assert.Equal(t, 3*time.Millisecond, s.RoundTripLatency.Avg)
}

func TestCollectorGather(t *testing.T) {
	m := NewMetrics()
	m.IncDispatched(enum.OperationQueryBatch)
	m.IncRollback()

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(m)))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				byName[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, byName["marketdata_gateway_dispatched_total"])
	assert.Equal(t, 1.0, byName["marketdata_engine_rollbacks_total"])
	assert.Equal(t, 0.0, byName["marketdata_engine_commits_total"])
}

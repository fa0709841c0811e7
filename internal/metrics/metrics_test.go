package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/errcat"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(prometheus.NewRegistry())
}

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestRecordWebhook_IncrementsBySource(t *testing.T) {
	m := testRegistry(t)
	m.RecordWebhook("saty-phase")
	m.RecordWebhook("saty-phase")
	assert.Equal(t, 2.0, counterValue(t, m.WebhookReceived.WithLabelValues("saty-phase")))
}

func TestRecordGate_LabelsByPassFail(t *testing.T) {
	m := testRegistry(t)
	m.RecordGate("regime", true)
	m.RecordGate("regime", false)
	assert.Equal(t, 1.0, counterValue(t, m.GateEvaluations.WithLabelValues("regime", "true")))
	assert.Equal(t, 1.0, counterValue(t, m.GateEvaluations.WithLabelValues("regime", "false")))
}

func TestStepTimer_RecordsDurationAndCount(t *testing.T) {
	m := testRegistry(t)
	timer := m.StartStep("build_context")
	timer.Stop("ok")

	ch := make(chan prometheus.Metric, 1)
	m.StepDuration.WithLabelValues("build_context", "ok").Collect(ch)
	dm := &dto.Metric{}
	require.NoError(t, (<-ch).Write(dm))
	assert.EqualValues(t, 1, dm.Histogram.GetSampleCount())
}

func TestDegradationLevelValue_MapsEachLevel(t *testing.T) {
	assert.Equal(t, 0.0, DegradationLevelValue(errcat.LevelNone))
	assert.Equal(t, 1.0, DegradationLevelValue(errcat.LevelMinor))
	assert.Equal(t, 2.0, DegradationLevelValue(errcat.LevelMajor))
	assert.Equal(t, 3.0, DegradationLevelValue(errcat.LevelSevere))
}

func TestSetDegradationLevel_SetsGaugePerSymbol(t *testing.T) {
	m := testRegistry(t)
	m.SetDegradationLevel("BTC-USD", DegradationLevelValue(errcat.LevelMajor))
	assert.Equal(t, 2.0, counterValue(t, m.DegradationLevel.WithLabelValues("BTC-USD")))
}

func TestRecordProviderFailure_IncrementsByProviderAndKind(t *testing.T) {
	m := testRegistry(t)
	m.RecordProviderFailure("options", string(errcat.KindTimeout))
	assert.Equal(t, 1.0, counterValue(t, m.ProviderFailures.WithLabelValues("options", string(errcat.KindTimeout))))
}

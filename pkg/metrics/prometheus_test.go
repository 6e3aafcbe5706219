package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCycle("TRADED")
	r.RecordCycle("TRADED")
	r.RecordCycle("NO_TRADE")
	r.RecordJudgeAttempt("overload")
	r.RecordCacheLookup("snapshot", true)
	r.RecordCacheLookup("snapshot", false)
	r.RecordCacheLookup("snapshot", true)
	r.RecordWinProbability("BTCUSDT", 72.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cycles.WithLabelValues("TRADED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues("NO_TRADE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.judgeAttempt.WithLabelValues("overload")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("snapshot", "true")))
	assert.Equal(t, 72.5, testutil.ToFloat64(r.winProb.WithLabelValues("BTCUSDT")))
}

func TestRecordPublish(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordPublish("aegis.decisions", true, 120, 0.01)
	r.RecordPublish("aegis.decisions", false, 80, 0.5)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.published.WithLabelValues("aegis.decisions", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.published.WithLabelValues("aegis.decisions", "error")))
	assert.Equal(t, 120.0, testutil.ToFloat64(r.pubBytes.WithLabelValues("aegis.decisions")))
}

func TestRecordersAreIsolatedPerRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jihwankim/cfgfuzz/pkg/category"
	"github.com/jihwankim/cfgfuzz/pkg/verdict"
	"github.com/jihwankim/cfgfuzz/pkg/worker"
)

func TestObserveRoundIncrementsRoundsAlways(t *testing.T) {
	m := New()
	m.ObserveRound("node-0", worker.RoleFuzzing, worker.RoundOutcome{Classification: verdict.Survived})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.roundsTotal.WithLabelValues("node-0", "fuzzing")))
}

func TestObserveRoundIncrementsFailuresOnlyOnFailure(t *testing.T) {
	m := New()
	m.ObserveRound("node-0", worker.RoleFuzzing, worker.RoundOutcome{
		Classification: verdict.StartupFailure,
		Category:       category.Network,
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failuresTotal.WithLabelValues("node-0", "network")))

	m2 := New()
	m2.ObserveRound("node-0", worker.RoleFuzzing, worker.RoundOutcome{Classification: verdict.Survived})
	assert.Equal(t, float64(0), testutil.ToFloat64(m2.failuresTotal.WithLabelValues("node-0", "network")))
}

func TestSanitizeLabelPassesThroughValidUTF8(t *testing.T) {
	assert.Equal(t, "node-0", sanitizeLabel("node-0"))
}

func TestSanitizeLabelReplacesInvalidUTF8(t *testing.T) {
	assert.Equal(t, "invalid", sanitizeLabel(string([]byte{0xff, 0xfe})))
}

func TestSetConsistentItemsAndConfigPoolSize(t *testing.T) {
	m := New()
	m.SetConsistentItems(3)
	m.SetConfigPoolSize("node-0", 7)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.consistentGauge))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.configPoolGauge.WithLabelValues("node-0")))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSearchDurationAcceptsPresetLabel(t *testing.T) {
	SearchDuration.WithLabelValues("fastest").Observe(0.05)
	assert.Equal(t, 1, testutil.CollectAndCount(SearchDuration))
}

func TestReplanTotalCountsByOutcome(t *testing.T) {
	ReplanTotal.WithLabelValues("true", "periodic_interval").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(ReplanTotal.WithLabelValues("true", "periodic_interval")))
}

func TestShortcutsInsertedIsSettable(t *testing.T) {
	ShortcutsInserted.Set(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(ShortcutsInserted))
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAssessment(t *testing.T) {
	ObserveAssessment(650, 600, 50)
	assert.Equal(t, 650.0, testutil.ToFloat64(DueToday))
	assert.Equal(t, 600.0, testutil.ToFloat64(DailyTarget))
	assert.Equal(t, 50.0, testutil.ToFloat64(Overage))
}

func TestRegistryGathers(t *testing.T) {
	CallOutcomesTotal.WithLabelValues("connected", "meeting").Inc()
	mfs, err := Registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

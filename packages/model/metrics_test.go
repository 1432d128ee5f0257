package model

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	NewModelTestCase(t, "metrics", WithMetrics(metrics)).
		Set("A1", "1").
		Set("A2", "=A1+1").
		ExpectCancelled(Redo{}, ReasonEmptyRedoStack)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.commands.WithLabelValues("START", "SUCCESS")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.commands.WithLabelValues("UPDATE_CELL", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.commands.WithLabelValues("REDO", "CANCELLED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.pending))

	count, err := testutil.GatherAndCount(reg, "sheet_evaluation_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeCommand(CmdUndo, StatusSuccess)
		m.observePending(3)
	})
}

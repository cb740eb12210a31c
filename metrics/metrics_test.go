package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SourceRows("OmniPath", 3)
		m.SourceFailed("OmniPath", "read")
		m.TableRows("gene", 1)
		m.ObserveWrite("sqlite", "replace", time.Second)
		m.ObservePropagation("heat", 4, true, time.Millisecond)
		m.BuildFinished(nil)
	})
	assert.NoError(t, m.WriteTextfile("/nonexistent/metrics.prom"))
}

func TestCountersAndTextfile(t *testing.T) {
	m := New()
	m.SourceRows("OmniPath", 3)
	m.SourceRows("OmniPath", 2)
	m.TableRows("protein_edge", 7)
	m.BuildFinished(errors.New("boom"))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.sourceRows.WithLabelValues("OmniPath")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.tableRows.WithLabelValues("protein_edge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildRuns.WithLabelValues("error")))

	path := filepath.Join(t.TempDir(), "kg.prom")
	require.NoError(t, m.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `kg_table_rows{table="protein_edge"} 7`)
}

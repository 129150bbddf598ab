package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Loaded("3260", "A", 10)
	m.Loaded("3260", "A", 5)
	m.Dropped("3260", ReasonUnmapped, 3)
	m.Dropped("3260", ReasonUnknownLocus, 0)
	m.Finished("3260", StatusDone, 1500*time.Millisecond)

	assert.InDelta(t, 15, testutil.ToFloat64(m.RecordsLoaded.WithLabelValues("3260", "A")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RecordsDropped.WithLabelValues("3260", ReasonUnmapped)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RecordsDropped), "zero drops create no series")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Releases.WithLabelValues(StatusDone)), 0)
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.ReleaseDuration.WithLabelValues("3260")), 1e-9)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Loaded("x", "A", 1)
	m.Dropped("x", ReasonUnmapped, 1)
	m.Finished("x", StatusAborted, time.Second)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Loaded("Latest", "B", 2)
	m.Finished("Latest", StatusAborted, time.Second)
	path := filepath.Join(t.TempDir(), "imgtdb.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `imgtdb_records_loaded_total{locus="B",release="Latest"} 2`)
	assert.Contains(t, out, `imgtdb_releases_total{status="aborted"} 1`)
}

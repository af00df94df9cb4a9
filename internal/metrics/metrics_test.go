package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/buildwatch/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder(nil)

	r.ObserveParse(schema.ParseStats{Lines: 10, Matched: 4, Skipped: 6, NearMisses: 1}, 3)
	r.ObserveChanged(2)
	r.ObserveSample(schema.SampleResult{
		Population: 5,
		Kept:       []string{"a/a", "b/b"},
		Skipped:    []schema.SkippedRepo{{Repo: "c/c", NumMakefiles: 90}},
	})
	r.ObserveReport([]schema.ReportRow{
		{Repo: "a/a", Makefile: ".", Status: schema.SuccessStatus},
		{Repo: "a/a", Makefile: "src", Status: schema.FailedStatus},
		{Repo: "b/b", Makefile: ".", Status: schema.FailedStatus},
	})
	r.ObserveWarning("store")

	assert.Equal(t, 10.0, testutil.ToFloat64(r.logLines))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.logEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.nearMisses))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.reposTracked))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.reposChanged))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.reposFailing))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.sampled.WithLabelValues("kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sampled.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reportRows.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.reportRows.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.repoWarnings.WithLabelValues("store")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder(nil)
	r.ObserveParse(schema.ParseStats{Lines: 7, Matched: 2}, 1)
	r.ObserveRun(time.Unix(1700000000, 0), 1500*time.Millisecond)

	path := filepath.Join(t.TempDir(), "buildwatch.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "buildwatch_log_lines_total 7")
	assert.Contains(t, out, "buildwatch_log_compile_events_total 2")
	assert.Contains(t, out, "buildwatch_run_duration_seconds 1.5")
	assert.Contains(t, out, "buildwatch_last_run_timestamp_seconds 1.7e+09")
}

func TestRecorder_WriteTextfileBadPath(t *testing.T) {
	r := NewRecorder(nil)
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}

package parquet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/buildwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesFixture() schema.SeriesMap {
	t0 := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	sm := make(schema.SeriesMap)
	sm.Append(schema.CompileEvent{Time: t0, Raw: "2020-01-01 12:00:00,000", Owner: "foo", Name: "bar", NSuccess: 3, NPartial: 2, NTotal: 5, NBinaries: 4})
	sm.Append(schema.CompileEvent{Time: t0.Add(time.Hour), Raw: "2020-01-01 13:00:00,000", Owner: "foo", Name: "bar", NSuccess: 3, NPartial: 3, NTotal: 5, NBinaries: 4})
	sm.Append(schema.CompileEvent{Time: t0, Raw: "2020-01-01 12:00:00,000", Owner: "abc", Name: "xyz", NPartial: 1, NTotal: 1, NBinaries: 0})
	return sm
}

func TestConvertSeries(t *testing.T) {
	rows := ConvertSeries(seriesFixture())
	// abc/xyz has 1 sample per tag, foo/bar has 2
	require.Len(t, rows, 3+6)

	assert.Equal(t, "abc/xyz", rows[0].Repo)
	assert.Equal(t, string(schema.TagPartial), rows[0].Tag)
	assert.False(t, rows[0].Changed)

	var partial []SeriesSample
	for _, r := range rows {
		if r.Repo == "foo/bar" && r.Tag == string(schema.TagPartial) {
			partial = append(partial, r)
		}
	}
	require.Len(t, partial, 2)
	assert.Equal(t, int32(0), partial[0].Seq)
	assert.Equal(t, int32(2), partial[0].Value)
	assert.Equal(t, int32(3), partial[1].Value)
	assert.True(t, partial[0].Changed)
}

func TestSeriesParquetRoundTrip(t *testing.T) {
	rows := ConvertSeries(seriesFixture())
	path := filepath.Join(t.TempDir(), "series.parquet")
	require.NoError(t, WriteSeriesParquet(rows, path))

	got, err := ReadSeriesParquet(path)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, rows[i].Repo, got[i].Repo)
		assert.Equal(t, rows[i].Tag, got[i].Tag)
		assert.Equal(t, rows[i].Value, got[i].Value)
		assert.Equal(t, rows[i].RawTime, got[i].RawTime)
		assert.True(t, rows[i].Time.Equal(got[i].Time))
	}
}

func TestWriteReportParquet(t *testing.T) {
	records := ConvertReportRows([]schema.ReportRow{
		{Repo: "foo/bar", Makefile: "src/a", Status: schema.SuccessStatus},
		{Repo: "foo/bar", Makefile: "src/b", Status: schema.FailedStatus},
	})
	assert.False(t, records[0].Failed)
	assert.True(t, records[1].Failed)

	path := filepath.Join(t.TempDir(), "report.parquet")
	require.NoError(t, WriteReportParquet(records, path))
}

func TestWriteParquet_BadPath(t *testing.T) {
	err := WriteSeriesParquet(nil, filepath.Join(t.TempDir(), "missing", "x.parquet"))
	assert.Error(t, err)
}

func TestReadSeriesParquet_Missing(t *testing.T) {
	_, err := ReadSeriesParquet(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

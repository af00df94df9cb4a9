package core

import (
	"strings"
	"testing"
	"time"

	"github.com/huangsam/buildwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const e2eLine = "2020-01-01 12:00:00,000 INFO: 3 (2) out of 5 Makefile(s) in foo/bar compiled (partially), yielding 4 binaries"

func TestParseLine(t *testing.T) {
	ev, ok := ParseLine(e2eLine)
	require.True(t, ok)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC), ev.Time)
	assert.Equal(t, "2020-01-01 12:00:00,000", ev.Raw)
	assert.Equal(t, "INFO", ev.Level)
	assert.Equal(t, "foo", ev.Owner)
	assert.Equal(t, "bar", ev.Name)
	assert.Equal(t, 3, ev.NSuccess)
	assert.Equal(t, 2, ev.NPartial)
	assert.Equal(t, 5, ev.NTotal)
	assert.Equal(t, 4, ev.NBinaries)
}

func TestParseLine_Milliseconds(t *testing.T) {
	ev, ok := ParseLine("2021-06-30 23:59:58,123 WARNING: 0 (0) out of 1 Makefile(s) in a_b/C9 compiled (partially), yielding 0 binaries")
	require.True(t, ok)
	assert.Equal(t, 123*int(time.Millisecond), ev.Time.Nanosecond())
	assert.Equal(t, "a_b", ev.Owner)
	assert.Equal(t, "C9", ev.Name)
}

func TestParseLine_NonMatching(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"unrelated", "2020-01-01 12:00:00,000 INFO: cloning foo/bar"},
		{"missing millis", "2020-01-01 12:00:00 INFO: 3 (2) out of 5 Makefile(s) in foo/bar compiled (partially), yielding 4 binaries"},
		{"extra space", "2020-01-01 12:00:00,000 INFO: 3 (2) out of 5  Makefile(s) in foo/bar compiled (partially), yielding 4 binaries"},
		{"negative count", "2020-01-01 12:00:00,000 INFO: 3 (-2) out of 5 Makefile(s) in foo/bar compiled (partially), yielding 4 binaries"},
		{"dash in name", "2020-01-01 12:00:00,000 INFO: 3 (2) out of 5 Makefile(s) in foo/bar-baz compiled (partially), yielding 4 binaries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseLine(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestParseLine_ImpossibleDateKeepsSample(t *testing.T) {
	ev, ok := ParseLine("2020-13-01 12:00:00,000 INFO: 3 (2) out of 5 Makefile(s) in foo/bar compiled (partially), yielding 4 binaries")
	require.True(t, ok)
	assert.True(t, ev.Time.IsZero())
	assert.Equal(t, "2020-13-01 12:00:00,000", ev.Raw)
	assert.Equal(t, 2, ev.NPartial)
}

func TestParseLine_SearchWithinLine(t *testing.T) {
	ev, ok := ParseLine("[worker-3] " + e2eLine + " (took 12s)")
	require.True(t, ok)
	assert.Equal(t, "foo/bar", schema.RepoFullName(ev.Owner, ev.Name))
}

func TestParseLog_EndToEnd(t *testing.T) {
	series, stats, err := ParseLog(strings.NewReader(e2eLine + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	rs, ok := series["foo/bar"]
	require.True(t, ok)
	ts := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, []schema.Sample{{Time: ts, Raw: "2020-01-01 12:00:00,000", Value: 2}}, rs[schema.TagPartial])
	assert.Equal(t, []schema.Sample{{Time: ts, Raw: "2020-01-01 12:00:00,000", Value: 5}}, rs[schema.TagTotal])
	assert.Equal(t, []schema.Sample{{Time: ts, Raw: "2020-01-01 12:00:00,000", Value: 4}}, rs[schema.TagBinaries])

	assert.Equal(t, []string{"foo/bar"}, FailingRepos(series))
}

const mixedLog = `2020-01-01 12:00:00,000 INFO: Start
2020-01-01 12:00:00,000 INFO: 3 (2) out of 5 Makefile(s) in foo/bar compiled (partially), yielding 4 binaries
2020-01-01 12:00:01,000 INFO: 1 (1) out of 1 Makefile(s) in abc/xyz compiled (partially), yielding 2 binaries
2020-01-01 12:00:02,000 INFO: 3 out of 5 Makefile(s) in foo/bar compiled, yielding 4 binaries
garbage line
2020-01-02 12:00:00,000 INFO: 5 (5) out of 5 Makefile(s) in foo/bar compiled (partially), yielding 9 binaries
`

func TestParseLog_Mixed(t *testing.T) {
	series, stats, err := ParseLog(strings.NewReader(mixedLog))
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Lines)
	assert.Equal(t, 3, stats.Matched)
	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 1, stats.NearMisses)
	require.Len(t, stats.Examples, 1)
	assert.Contains(t, stats.Examples[0], "3 out of 5")

	assert.Equal(t, []string{"abc/xyz", "foo/bar"}, series.Repos())
	// Series length equals the number of matching lines per repository, for every tag
	for _, tag := range schema.TrackedTags {
		assert.Len(t, series["foo/bar"][tag], 2)
		assert.Len(t, series["abc/xyz"][tag], 1)
	}
	assert.Equal(t, []int{2, 5}, series["foo/bar"].Values(schema.TagPartial))
	assert.Equal(t, []int{4, 9}, series["foo/bar"].Values(schema.TagBinaries))
}

func TestParseLog_Deterministic(t *testing.T) {
	first, _, err := ParseLog(strings.NewReader(mixedLog))
	require.NoError(t, err)
	second, _, err := ParseLog(strings.NewReader(mixedLog))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseLog_NearMissExamplesCapped(t *testing.T) {
	var b strings.Builder
	for range 10 {
		b.WriteString("broken 1 (1) out of 2 Makefile(s) in x/y\n")
	}
	_, stats, err := ParseLog(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, 10, stats.NearMisses)
	assert.Len(t, stats.Examples, maxNearMissExamples)
}

func TestParseLog_Empty(t *testing.T) {
	series, stats, err := ParseLog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, series)
	assert.Equal(t, 0, stats.Lines)
}

func TestParseLog_NoTrailingNewlineAndCRLF(t *testing.T) {
	series, stats, err := ParseLog(strings.NewReader("noise\r\n" + e2eLine + "\r\n" + e2eLine))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Matched)
	assert.Len(t, series["foo/bar"][schema.TagTotal], 2)
}

func TestParseLog_OversizedLineSkipped(t *testing.T) {
	other := strings.Replace(e2eLine, "foo/bar", "baz/qux", 1)
	junk := strings.Repeat("x", maxLineSize+1024)
	log := e2eLine + "\n" + junk + "\n" + other + "\n"

	series, stats, err := ParseLog(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{"baz/qux", "foo/bar"}, series.Repos())
}

func TestParseLog_LongLineWithinLimit(t *testing.T) {
	// Longer than the reader buffer, so the line arrives in several chunks
	long := strings.Repeat("y", 200*1024) + " " + e2eLine
	series, stats, err := ParseLog(strings.NewReader(long + "\n" + e2eLine))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Lines)
	assert.Equal(t, 2, stats.Matched)
	assert.Len(t, series["foo/bar"][schema.TagTotal], 2)
}

//go:build basic

package integration

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqliteEnv points the store at a sqlite file inside dir through environment overrides.
func sqliteEnv(dir string) map[string]string {
	return map[string]string{
		"BUILDWATCH_DB_BACKEND":         "sqlite",
		"BUILDWATCH_DB_DB_NAME":         filepath.Join(dir, "repos.db"),
		"BUILDWATCH_DB_COLLECTION_NAME": "repos",
	}
}

// TestAnalyzeWithSQLite records a repository through the CLI and reconciles it.
func TestAnalyzeWithSQLite(t *testing.T) {
	dir := workspace(t)
	write(t, filepath.Join(dir, "database-config.json"), `{"backend": "sqlite"}`)
	env := sqliteEnv(dir)

	_, err := runCommand(t, dir, env, "repo", "add", "foo/bar", "--size", "2048")
	require.NoError(t, err)
	_, err = runCommand(t, dir, env, "repo", "update", "foo/bar", "--makefiles", "makefiles.json")
	require.NoError(t, err)

	out, err := runCommand(t, dir, env, "repo", "get", "foo/bar")
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, true, entry["compiled"])
	assert.InDelta(t, 1, entry["num_binaries"], 0)

	_, err = runCommand(t, dir, env, "analyze", "compile.log", "--sample-size", "2")
	require.NoError(t, err)

	records := readReportFile(t, filepath.Join(dir, "repo_samples.csv"))
	require.NotEmpty(t, records)
	assert.Equal(t, []string{"Repo", "Makefile", "Status", "Failed Reason?"}, records[0])
	assert.ElementsMatch(t, expectedRows, records[1:])
}

// TestAnalyzeIsReproducible checks that the same seed yields the same report.
func TestAnalyzeIsReproducible(t *testing.T) {
	dir := workspace(t)

	_, err := runCommand(t, dir, nil, "analyze", "compile.log", "--no-store", "--sample-size", "1", "--output-file", "first.csv")
	require.NoError(t, err)
	_, err = runCommand(t, dir, nil, "analyze", "compile.log", "--no-store", "--sample-size", "1", "--output-file", "second.csv")
	require.NoError(t, err)

	assert.Equal(t, readReportFile(t, filepath.Join(dir, "first.csv")), readReportFile(t, filepath.Join(dir, "second.csv")))
}

// TestAnalyzeMissingStoreConfig fails before writing any report.
func TestAnalyzeMissingStoreConfig(t *testing.T) {
	dir := workspace(t)

	_, err := runCommand(t, dir, nil, "analyze", "compile.log")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "repo_samples.csv"))
}

// TestSampleTooLarge reports the population size instead of clamping.
func TestSampleTooLarge(t *testing.T) {
	dir := workspace(t)

	_, err := runCommand(t, dir, nil, "sample", "compile.log", "--sample-size", "5", "--output", "json")
	require.Error(t, err)
}

// TestChangedAndExport runs the log-only commands.
func TestChangedAndExport(t *testing.T) {
	dir := workspace(t)

	out, err := runCommand(t, dir, nil, "changed", "compile.log", "--output", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = runCommand(t, dir, nil, "export", "compile.log", "--output-file", "series.parquet")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "series.parquet"))
}

// TestDatabaseCommandsWithSQLite covers db migrate, status and clear.
func TestDatabaseCommandsWithSQLite(t *testing.T) {
	dir := workspace(t)
	write(t, filepath.Join(dir, "database-config.json"), `{"backend": "sqlite"}`)
	env := sqliteEnv(dir)

	out, err := runCommand(t, dir, env, "db", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully migrated")

	_, err = runCommand(t, dir, env, "repo", "add", "foo/bar")
	require.NoError(t, err)

	out, err = runCommand(t, dir, env, "db", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")

	_, err = runCommand(t, dir, env, "db", "clear")
	require.NoError(t, err)
}

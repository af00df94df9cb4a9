package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/discover"
	mcp_internal "github.com/huangsam/buildwatch/internal/mcp"
	"github.com/huangsam/buildwatch/internal/repostore"
	"github.com/huangsam/buildwatch/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLog = `2020-01-01 12:00:00,000 INFO: 1 (1) out of 2 Makefile(s) in foo/bar compiled (partially), yielding 1 binaries
2020-01-02 12:00:00,000 INFO: 1 (0) out of 2 Makefile(s) in foo/bar compiled (partially), yielding 0 binaries
2020-01-01 12:00:01,000 INFO: 3 (3) out of 3 Makefile(s) in ok/repo compiled (partially), yielding 3 binaries
`

func newTestServer(t *testing.T, store contract.RepoStore) (*contract.Config, func(name string, args map[string]any) *mcp.CallToolResult) {
	t.Helper()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "compile.log")
	require.NoError(t, os.WriteFile(logFile, []byte(testLog), 0o644))
	mkDir := filepath.Join(dir, "repos", "foo", "bar", "src")
	require.NoError(t, os.MkdirAll(mkDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mkDir, "Makefile"), []byte("all:\n"), 0o644))

	baseCfg := &contract.Config{
		LogFile:        logFile,
		ReposDir:       filepath.Join(dir, "repos"),
		SampleSize:     contract.DefaultSampleSize,
		MaxMakefiles:   contract.DefaultMaxMakefiles,
		Seed:           contract.DefaultSeed,
		PrefixSegments: contract.DefaultPrefixSegments,
	}
	s := mcp_internal.NewMCPServer(baseCfg, store, discover.NewFinder())

	call := func(name string, args map[string]any) *mcp.CallToolResult {
		tool := s.GetTool(name)
		require.NotNil(t, tool, "Tool %s should exist", name)
		req := mcp.CallToolRequest{
			Params: mcp.CallToolParams{Name: name, Arguments: args},
		}
		res, err := tool.Handler(context.Background(), req)
		require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
		return res
	}
	return baseCfg, call
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	_, call := newTestServer(t, nil)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		message string
	}{
		{"missing log file", "get_parse_stats", map[string]any{"log_file": "/does/not/exist.log"}, "cannot read log file"},
		{"negative limit", "get_changed_repos", map[string]any{"limit": -1.0}, "limit cannot be negative"},
		{"zero size", "sample_failures", map[string]any{"size": 0.0}, "size must be greater than 0"},
		{"size above population", "sample_failures", map[string]any{"size": 5.0}, "requested 5, only 1"},
		{"bad repo", "reconcile_repo", map[string]any{"repo": "no-slash"}, "expected owner/name"},
		{"missing checkout", "reconcile_repo", map[string]any{"repo": "baz/qux"}, "cannot read repository directory"},
		{"no store for get_repo", "get_repo", map[string]any{"repo": "foo/bar"}, "no repository store"},
		{"no store for status", "get_store_status", map[string]any{}, "no repository store"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(t, res), tt.message)
		})
	}
}

func TestMCPServerHandlers_Analysis(t *testing.T) {
	_, call := newTestServer(t, nil)

	t.Run("get_parse_stats", func(t *testing.T) {
		res := call("get_parse_stats", map[string]any{})
		require.False(t, res.IsError)
		var payload struct {
			Repos   int               `json:"repos"`
			Failing int               `json:"failing"`
			Stats   schema.ParseStats `json:"stats"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
		assert.Equal(t, 2, payload.Repos)
		assert.Equal(t, 1, payload.Failing)
		assert.Equal(t, 3, payload.Stats.Matched)
	})

	t.Run("get_changed_repos", func(t *testing.T) {
		res := call("get_changed_repos", map[string]any{})
		require.False(t, res.IsError)
		var changed []schema.ChangedRepo
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &changed))
		require.Len(t, changed, 1)
		assert.Equal(t, "foo/bar", changed[0].Repo)
	})

	t.Run("sample_failures", func(t *testing.T) {
		res := call("sample_failures", map[string]any{"size": 1.0, "seed": 42.0})
		require.False(t, res.IsError)
		var result schema.SampleResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &result))
		assert.Equal(t, []string{"foo/bar"}, result.Kept)
		assert.Equal(t, uint64(42), result.Seed)
	})

	t.Run("reconcile_repo without store", func(t *testing.T) {
		res := call("reconcile_repo", map[string]any{"repo": "foo/bar"})
		require.False(t, res.IsError)
		assert.Contains(t, resultText(t, res), `"failed": 1`)
	})
}

func TestMCPServerHandlers_Store(t *testing.T) {
	store := repostore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.AddRepo(ctx, "foo", "bar", true, 10))
	require.NoError(t, store.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{{
		Directory: "/usr/src/repo/src", Successful: true, Binaries: []string{}, SHA256: []string{},
	}}, false))
	_, call := newTestServer(t, store)

	t.Run("get_repo", func(t *testing.T) {
		res := call("get_repo", map[string]any{"repo": "foo/bar"})
		require.False(t, res.IsError)
		var entry schema.RepoEntry
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &entry))
		assert.True(t, entry.Compiled)
		assert.Equal(t, 1, entry.NumMakefiles)
	})

	t.Run("get_repo missing", func(t *testing.T) {
		res := call("get_repo", map[string]any{"repo": "nobody/here"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "does not exist")
	})

	t.Run("reconcile_repo", func(t *testing.T) {
		res := call("reconcile_repo", map[string]any{"repo": "foo/bar"})
		require.False(t, res.IsError)
		text := resultText(t, res)
		assert.Contains(t, text, `"matched": 1`)
		assert.Contains(t, text, `"failed": 0`)
	})

	t.Run("get_store_status", func(t *testing.T) {
		res := call("get_store_status", map[string]any{})
		require.False(t, res.IsError)
		assert.Contains(t, resultText(t, res), "memory")
	})
}

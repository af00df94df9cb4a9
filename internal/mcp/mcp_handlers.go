package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/buildwatch/core"
	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

var errNoStore = errors.New("no repository store is configured")

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	store   contract.RepoStore
	finder  contract.MakefileFinder
}

// parseStatsResult is the payload of get_parse_stats.
type parseStatsResult struct {
	LogFile string            `json:"log_file"`
	Repos   int               `json:"repos"`
	Failing int               `json:"failing"`
	Stats   schema.ParseStats `json:"stats"`
}

// reconcileResult is the payload of reconcile_repo.
type reconcileResult struct {
	Repo    string             `json:"repo"`
	Entry   *schema.RepoEntry  `json:"entry"`
	Rows    []schema.ReportRow `json:"rows"`
	Failed  int                `json:"failed"`
	Matched int                `json:"matched"`
}

// logFileFrom picks the log_file argument or falls back to the startup log.
func (h *toolHandler) logFileFrom(request mcp.CallToolRequest) (string, error) {
	logFile := request.GetString("log_file", h.baseCfg.LogFile)
	if logFile == "" {
		return "", errors.New("log_file is required")
	}
	info, err := os.Stat(logFile)
	if err != nil {
		return "", fmt.Errorf("cannot read log file %q: %w", logFile, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("log file %q is a directory", logFile)
	}
	return logFile, nil
}

func (h *toolHandler) handleGetParseStats(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logFile, err := h.logFileFrom(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	series, stats, err := core.LoadSeries(logFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parsing failed: %v", err)), nil
	}

	return jsonResult(parseStatsResult{
		LogFile: logFile,
		Repos:   len(series),
		Failing: len(core.FailingRepos(series)),
		Stats:   stats,
	})
}

func (h *toolHandler) handleGetChangedRepos(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logFile, err := h.logFileFrom(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	limit := request.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("invalid parameters: limit cannot be negative"), nil
	}

	series, _, err := core.LoadSeries(logFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parsing failed: %v", err)), nil
	}

	changed := core.ChangedRepos(series)
	if limit > 0 && len(changed) > limit {
		changed = changed[:limit]
	}
	return jsonResult(changed)
}

func (h *toolHandler) handleSampleFailures(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logFile, err := h.logFileFrom(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg := h.baseCfg.Clone()
	cfg.SampleSize = request.GetInt("size", cfg.SampleSize)
	cfg.MaxMakefiles = request.GetInt("max_makefiles", cfg.MaxMakefiles)
	if seed := request.GetInt("seed", -1); seed >= 0 {
		cfg.Seed = uint64(seed)
	}
	if cfg.SampleSize <= 0 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: size must be greater than 0 (received %d)", cfg.SampleSize)), nil
	}
	if cfg.MaxMakefiles < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: max_makefiles cannot be negative (received %d)", cfg.MaxMakefiles)), nil
	}

	series, _, err := core.LoadSeries(logFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parsing failed: %v", err)), nil
	}

	result, err := core.SampleFailures(series, cfg.SampleSize, cfg.MaxMakefiles, core.NewSampleRand(cfg.Seed))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sampling failed: %v", err)), nil
	}
	result.Seed = cfg.Seed
	return jsonResult(result)
}

func (h *toolHandler) handleReconcileRepo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := request.GetString("repo", "")
	owner, name, err := contract.SplitRepo(repo)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	cfg := h.baseCfg.Clone()
	if d := request.GetString("repos_dir", ""); d != "" {
		cfg.ReposDir = d
	}

	rows, err := core.RepoReport(ctx, cfg, repo, h.store, h.finder)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reconciliation failed: %v", err)), nil
	}

	result := reconcileResult{Repo: repo, Rows: rows}
	if h.store != nil {
		// RepoReport already surfaced store errors
		result.Entry, _ = h.store.Get(ctx, owner, name)
	}
	for _, r := range rows {
		if r.Status == schema.FailedStatus {
			result.Failed++
		} else {
			result.Matched++
		}
	}
	return jsonResult(result)
}

func (h *toolHandler) handleGetRepo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, name, err := contract.SplitRepo(request.GetString("repo", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if h.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}

	entry, err := h.store.Get(ctx, owner, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	if entry == nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", contract.ErrRepoNotFound, schema.RepoFullName(owner, name))), nil
	}
	return jsonResult(entry)
}

func (h *toolHandler) handleGetStoreStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}
	status, err := h.store.GetStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(status)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

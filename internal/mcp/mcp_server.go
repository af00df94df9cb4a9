// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the buildwatch MCP server without starting it.
// The store may be nil, in which case reconciliation runs against an empty record set
// and the store tools report an error. This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, store contract.RepoStore, finder contract.MakefileFinder) *server.MCPServer {
	s := server.NewMCPServer(
		"buildwatch Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		store:   store,
		finder:  finder,
	}

	// --- 1. Tool: get_parse_stats ---
	s.AddTool(mcp.NewTool("get_parse_stats",
		mcp.WithDescription("Parse a compilation log and report how many lines matched the compile summary format."),
		mcp.WithString("log_file", mcp.Description("Path to the compilation log (defaults to the log given at startup).")),
	), h.handleGetParseStats)

	// --- 2. Tool: get_changed_repos ---
	s.AddTool(mcp.NewTool("get_changed_repos",
		mcp.WithDescription("List repositories whose partial, binary or total Makefile counts changed across runs in the log."),
		mcp.WithString("log_file", mcp.Description("Path to the compilation log.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of repositories returned.")),
	), h.handleGetChangedRepos)

	// --- 3. Tool: sample_failures ---
	s.AddTool(mcp.NewTool("sample_failures",
		mcp.WithDescription("Draw a reproducible sample of repositories whose latest run left Makefiles failing."),
		mcp.WithString("log_file", mcp.Description("Path to the compilation log.")),
		mcp.WithNumber("size", mcp.Description("Number of repositories to draw (default 100).")),
		mcp.WithNumber("max_makefiles", mcp.Description("Drop drawn repositories with more Makefiles than this (default 50).")),
		mcp.WithNumber("seed", mcp.Description("Random seed for the draw.")),
	), h.handleSampleFailures)

	// --- 4. Tool: reconcile_repo ---
	s.AddTool(mcp.NewTool("reconcile_repo",
		mcp.WithDescription("Compare the Makefiles found in a repository checkout with the ones recorded as compiled."),
		mcp.WithString("repo", mcp.Description("Repository as owner/name."), mcp.Required()),
		mcp.WithString("repos_dir", mcp.Description("Directory holding checkouts as <owner>/<name>.")),
	), h.handleReconcileRepo)

	// --- 5. Tool: get_repo ---
	s.AddTool(mcp.NewTool("get_repo",
		mcp.WithDescription("Fetch the stored compilation record of a repository."),
		mcp.WithString("repo", mcp.Description("Repository as owner/name."), mcp.Required()),
	), h.handleGetRepo)

	// --- 6. Tool: get_store_status ---
	s.AddTool(mcp.NewTool("get_store_status",
		mcp.WithDescription("Report the repository store backend, connection and record counts."),
	), h.handleGetStoreStatus)

	return s
}

// StartMCPServer starts the buildwatch MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, store contract.RepoStore, finder contract.MakefileFinder) error {
	s := NewMCPServer(baseCfg, store, finder)
	return server.ServeStdio(s)
}

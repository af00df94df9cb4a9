package cmd

import (
	"github.com/huangsam/buildwatch/internal/mcp"
	"github.com/huangsam/buildwatch/internal/repostore"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [log-file]",
	Short: "Start the buildwatch MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents parse compilation logs,
sample failing repositories and inspect repository records via standard tools.

The optional log file becomes the default for tools that take a log_file.`,
	Args: cobra.MaximumNArgs(1),
	// stdio carries the protocol, so setup output goes to stderr only
	PreRunE: storeSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, repostore.Manager.GetStore(), finder)
	},
}

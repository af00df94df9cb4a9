package cmd

import (
	"runtime"
	"slices"
	"strings"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/spf13/cobra"
)

// versionCmd prints build details and the store backends compiled in.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of buildwatch.",
	Long: `Display the build of this buildwatch binary and the repository store
backends it can connect to. Include this output when a record written by one
build cannot be read by another.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("buildwatch CLI\n")
		cmd.Printf("  Version:  %s\n", version)
		cmd.Printf("  Commit:   %s\n", commit)
		cmd.Printf("  Built:    %s\n", date)
		cmd.Printf("  Runtime:  %s\n", runtime.Version())
		cmd.Printf("  Backends: %s (default %s)\n", strings.Join(backendNames(), ", "), schema.MongoBackend)
		cmd.Printf("  Store:    %s\n", contract.DefaultDBConfigPath)
	},
}

// backendNames lists the supported store backends in sorted order.
func backendNames() []string {
	names := make([]string, 0, len(schema.ValidBackends))
	for b := range schema.ValidBackends {
		names = append(names, string(b))
	}
	slices.Sort(names)
	return names
}

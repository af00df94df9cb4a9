// Package cmd defines the command-line interface for buildwatch.
package cmd

import (
	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(changedCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the repo subcommands to the parent repo command
	repoCmd.AddCommand(repoGetCmd)
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoUpdateCmd)
	repoCmd.AddCommand(repoCountCmd)

	// Add the db subcommands to the parent db command
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbClearCmd)
	dbCmd.AddCommand(dbMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("repos-dir", contract.DefaultReposDir, "Directory holding repository checkouts as <owner>/<name>")
	rootCmd.PersistentFlags().IntP("sample-size", "n", contract.DefaultSampleSize, "Number of failing repositories to sample")
	rootCmd.PersistentFlags().Int("max-makefiles", contract.DefaultMaxMakefiles, "Skip sampled repositories with more Makefiles than this")
	rootCmd.PersistentFlags().Uint64("seed", contract.DefaultSeed, "Random seed for sampling")
	rootCmd.PersistentFlags().Int("prefix-segments", contract.DefaultPrefixSegments, "Leading path segments dropped from recorded absolute Makefile directories")
	rootCmd.PersistentFlags().String("output", string(schema.CSVOut), "Output format: csv or text or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to (csv reports default to "+contract.DefaultReportFile+")")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	rootCmd.PersistentFlags().String("db-config", contract.DefaultDBConfigPath, "Path to the repository store config (JSON)")
	rootCmd.PersistentFlags().Bool("no-store", false, "Reconcile without connecting to the repository store")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Flags that only matter to one command are read straight from cobra
	exportCmd.Flags().Bool("changed-only", false, "Only export repositories whose outcomes changed")
	repoAddCmd.Flags().Bool("clone-failed", false, "Record the clone as unsuccessful")
	repoAddCmd.Flags().Int64("size", schema.UnknownRepoSize, "Repository size in bytes (-1 = unknown)")
	repoUpdateCmd.Flags().String("makefiles", "-", "JSON file with the Makefile entries ('-' reads stdin)")
	repoUpdateCmd.Flags().Bool("ignore-length-mismatch", false, "Replace the stored Makefiles even if the count differs")
	dbMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}

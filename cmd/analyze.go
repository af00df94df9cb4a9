package cmd

import (
	"fmt"

	"github.com/huangsam/buildwatch/core"
	"github.com/huangsam/buildwatch/internal/repostore"
	"github.com/spf13/cobra"
)

// analyzeCmd runs the full pipeline and writes the reconciliation report.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <log-file>",
	Short: "Sample failing repositories from a log and reconcile their Makefiles.",
	Long: `Parse a compilation log, sample repositories whose latest run left Makefiles
failing, and compare the Makefiles found in each checkout with the ones the
repository store recorded as compiled.

Each discovered Makefile directory becomes one report row. Rows with no
recorded success are marked Failed and the Failed Reason? column is left
empty for manual annotation.

Examples:
  # Write repo_samples.csv using ./database-config.json
  buildwatch analyze compile.log

  # Reproduce a different sample and show it as a table
  buildwatch analyze compile.log --seed 42 --output text

  # Reconcile against an empty store (every Makefile is Failed)
  buildwatch analyze compile.log --no-store`,
	Args:    cobra.ExactArgs(1),
	PreRunE: storeSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteAnalyze(rootCtx, cfg, repostore.Manager.GetStore(), finder); err != nil {
			return fmt.Errorf("cannot run analysis: %w", err)
		}
		return nil
	},
}

// changedCmd lists repositories with fluctuating outcomes.
var changedCmd = &cobra.Command{
	Use:   "changed <log-file>",
	Short: "List repositories whose compilation outcomes changed across runs.",
	Long: `Parse a compilation log and list every repository for which the partial,
binary or total Makefile counts were not the same in every run.

Examples:
  buildwatch changed compile.log --output text
  buildwatch changed compile.log --output json --output-file changed.json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteChanged(rootCtx, cfg); err != nil {
			return fmt.Errorf("cannot list changed repositories: %w", err)
		}
		return nil
	},
}

// sampleCmd draws failing repositories without reconciling them.
var sampleCmd = &cobra.Command{
	Use:   "sample <log-file>",
	Short: "Draw a reproducible sample of failing repositories.",
	Long: `Parse a compilation log and draw repositories whose latest run left at least
one Makefile without a full success. The draw only depends on the seed and the
log, so the same command always yields the same sample.

Examples:
  buildwatch sample compile.log --sample-size 20 --output text
  buildwatch sample compile.log --seed 7 --max-makefiles 10`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteSample(rootCtx, cfg); err != nil {
			return fmt.Errorf("cannot sample repositories: %w", err)
		}
		return nil
	},
}

// exportCmd writes the parsed series for offline analysis.
var exportCmd = &cobra.Command{
	Use:   "export <log-file>",
	Short: "Export the parsed metric series to Parquet.",
	Long: `Parse a compilation log and write one row per repository, tag and sample to a
Parquet file for analysis in pandas, DuckDB or Spark.

Examples:
  buildwatch export compile.log --output-file series.parquet
  buildwatch export compile.log --changed-only`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		changedOnly, _ := cmd.Flags().GetBool("changed-only")
		outputPath := cfg.OutputFile
		if outputPath == "" {
			outputPath = "buildwatch-series.parquet"
		}
		if err := core.ExecuteExport(rootCtx, cfg, outputPath, changedOnly); err != nil {
			return fmt.Errorf("cannot export series: %w", err)
		}
		return nil
	},
}

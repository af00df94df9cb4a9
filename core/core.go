// Package core has the analysis logic: log parsing, change detection,
// failure sampling and reconciliation against the repository store.
package core

import (
	"context"
	"os"
	"time"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/metrics"
	"github.com/huangsam/buildwatch/internal/outwriter"
	"github.com/huangsam/buildwatch/internal/parquet"
	"github.com/huangsam/buildwatch/schema"
)

// AnalysisResult is everything one analyze run computed before output.
type AnalysisResult struct {
	Stats    schema.ParseStats
	Series   schema.SeriesMap
	Changed  []schema.ChangedRepo
	Sample   schema.SampleResult
	Rows     []schema.ReportRow
	Warnings []RepoWarning
}

// RunAnalysis parses the log, samples failing repositories and reconciles
// them. Nothing is written; a fatal error returns before any output exists.
func RunAnalysis(ctx context.Context, cfg *contract.Config, store contract.RepoStore, finder contract.MakefileFinder, rec *metrics.Recorder) (*AnalysisResult, error) {
	if rec == nil {
		rec = metrics.NewRecorder(nil)
	}
	series, stats, err := LoadSeries(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	rec.ObserveParse(stats, len(series))

	changed := ChangedRepos(series)
	rec.ObserveChanged(len(changed))

	sample, err := SampleFailures(series, cfg.SampleSize, cfg.MaxMakefiles, NewSampleRand(cfg.Seed))
	if err != nil {
		return nil, err
	}
	sample.Seed = cfg.Seed
	rec.ObserveSample(sample)

	rows, warnings, err := BuildReport(ctx, cfg, sample.Kept, store, finder, rec)
	if err != nil {
		return nil, err
	}
	rec.ObserveReport(rows)

	return &AnalysisResult{
		Stats:    stats,
		Series:   series,
		Changed:  changed,
		Sample:   sample,
		Rows:     rows,
		Warnings: warnings,
	}, nil
}

// ExecuteAnalyze runs the full analysis and writes the reconciliation report.
// It serves as the main entry point for the 'analyze' command.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, store contract.RepoStore, finder contract.MakefileFinder) error {
	start := time.Now()
	rec := metrics.NewRecorder(nil)

	result, err := RunAnalysis(ctx, cfg, store, finder, rec)
	if err != nil {
		return err
	}

	logParseSummary(cfg.LogFile, result.Stats, len(result.Series))
	contract.LogInfo("Found %d repositories with changed outcomes", len(result.Changed))
	for _, s := range result.Sample.Skipped {
		contract.LogInfo("%s contains %d Makefiles, skipping", s.Repo, s.NumMakefiles)
	}
	for _, w := range result.Warnings {
		contract.LogWarn("skipped repository", w)
	}

	if err := outwriter.NewOutWriter().WriteReport(result.Rows, cfg); err != nil {
		return err
	}
	return finishRun(cfg, rec, start)
}

// ExecuteChanged prints the repositories whose outcomes changed across runs.
func ExecuteChanged(_ context.Context, cfg *contract.Config) error {
	start := time.Now()
	rec := metrics.NewRecorder(nil)

	series, stats, err := LoadSeries(cfg.LogFile)
	if err != nil {
		return err
	}
	rec.ObserveParse(stats, len(series))
	logParseSummary(cfg.LogFile, stats, len(series))

	changed := ChangedRepos(series)
	rec.ObserveChanged(len(changed))
	if err := outwriter.NewOutWriter().WriteChanged(changed, cfg); err != nil {
		return err
	}
	return finishRun(cfg, rec, start)
}

// ExecuteSample prints a reproducible sample of failing repositories.
func ExecuteSample(_ context.Context, cfg *contract.Config) error {
	start := time.Now()
	rec := metrics.NewRecorder(nil)

	series, stats, err := LoadSeries(cfg.LogFile)
	if err != nil {
		return err
	}
	rec.ObserveParse(stats, len(series))
	logParseSummary(cfg.LogFile, stats, len(series))

	sample, err := SampleFailures(series, cfg.SampleSize, cfg.MaxMakefiles, NewSampleRand(cfg.Seed))
	if err != nil {
		return err
	}
	sample.Seed = cfg.Seed
	rec.ObserveSample(sample)
	if err := outwriter.NewOutWriter().WriteSample(sample, cfg); err != nil {
		return err
	}
	return finishRun(cfg, rec, start)
}

// ExecuteExport writes the parsed series of the log to a Parquet file.
// With changedOnly set, constant series are left out.
func ExecuteExport(_ context.Context, cfg *contract.Config, outputPath string, changedOnly bool) error {
	series, stats, err := LoadSeries(cfg.LogFile)
	if err != nil {
		return err
	}
	logParseSummary(cfg.LogFile, stats, len(series))
	if changedOnly {
		series = FilterChanged(series)
	}

	rows := parquet.ConvertSeries(series)
	if err := parquet.WriteSeriesParquet(rows, outputPath); err != nil {
		return err
	}
	contract.LogInfo("💾 Wrote %d samples for %d repositories to %s", len(rows), len(series), outputPath)
	return nil
}

// logParseSummary prints parse counts and warns about lines that look malformed.
func logParseSummary(logFile string, stats schema.ParseStats, repos int) {
	outwriter.PrintParseStats(os.Stderr, logFile, stats, repos)
	if stats.NearMisses == 0 {
		return
	}
	contract.LogWarn(
		"log has lines that mention Makefiles but do not match the summary format",
		&nearMissError{count: stats.NearMisses, examples: stats.Examples},
	)
}

// finishRun records the run duration and writes the metrics textfile when configured.
func finishRun(cfg *contract.Config, rec *metrics.Recorder, start time.Time) error {
	now := time.Now()
	rec.ObserveRun(now, now.Sub(start))
	if cfg.MetricsFile == "" {
		return nil
	}
	return rec.WriteTextfile(cfg.MetricsFile)
}

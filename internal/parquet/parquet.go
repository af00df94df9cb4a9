// Package parquet exports parsed compile outcomes to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/buildwatch/schema"
	"github.com/parquet-go/parquet-go"
)

// SeriesSample is one observation of one tracked tag for one repository.
type SeriesSample struct {
	// Repo is "owner/name"
	Repo string `parquet:"repo,snappy,dict"`

	// Tag is n_partial, n_binaries or n_total
	Tag string `parquet:"tag,snappy,dict"`

	// Seq is the position of the sample within its series, starting at 0
	Seq int32 `parquet:"seq,snappy"`

	// Time is the parsed log timestamp (stored as TIMESTAMP with nanosecond precision)
	Time time.Time `parquet:"time,snappy"`

	// RawTime is the timestamp exactly as logged
	RawTime string `parquet:"raw_time,snappy"`

	Value int32 `parquet:"value,snappy"`

	// Changed is true when the tag took more than one value for the repository
	Changed bool `parquet:"changed"`
}

// ReportRecord is one reconciliation report row.
type ReportRecord struct {
	Repo     string `parquet:"repo,snappy,dict"`
	Makefile string `parquet:"makefile,snappy"`
	Failed   bool   `parquet:"failed"`
	Reason   string `parquet:"reason,snappy"`
}

// ConvertSeries flattens a series map, ordered by repository then tag then sequence.
func ConvertSeries(series schema.SeriesMap) []SeriesSample {
	var out []SeriesSample
	for _, repo := range series.Repos() {
		rs := series[repo]
		for _, tag := range schema.TrackedTags {
			values := rs.Values(tag)
			changed := false
			for i := 1; i < len(values); i++ {
				if values[i] != values[0] {
					changed = true
					break
				}
			}
			for i, s := range rs[tag] {
				out = append(out, SeriesSample{
					Repo:    repo,
					Tag:     string(tag),
					Seq:     int32(i),
					Time:    s.Time,
					RawTime: s.Raw,
					Value:   int32(s.Value),
					Changed: changed,
				})
			}
		}
	}
	return out
}

// ConvertReportRows converts report rows for Parquet export.
func ConvertReportRows(rows []schema.ReportRow) []ReportRecord {
	result := make([]ReportRecord, len(rows))
	for i, r := range rows {
		result[i] = ReportRecord{
			Repo:     r.Repo,
			Makefile: r.Makefile,
			Failed:   r.Status == schema.FailedStatus,
			Reason:   r.Reason,
		}
	}
	return result
}

// WriteSeriesParquet writes series samples to a Parquet file.
func WriteSeriesParquet(data []SeriesSample, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteReportParquet writes report records to a Parquet file.
func WriteReportParquet(data []ReportRecord, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows with a schema inferred from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ReadSeriesParquet loads series samples written by WriteSeriesParquet.
func ReadSeriesParquet(path string) ([]SeriesSample, error) {
	rows, err := parquet.ReadFile[SeriesSample](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	return rows, nil
}

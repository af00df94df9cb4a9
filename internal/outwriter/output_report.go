package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ReportFile returns where the report goes. CSV reports default to a file
// so they can be annotated by hand, other formats default to stdout.
func ReportFile(cfg *contract.Config) string {
	if cfg.OutputFile == "" && cfg.Output == schema.CSVOut {
		return contract.DefaultReportFile
	}
	return cfg.OutputFile
}

// PrintReport outputs the reconciliation rows, dispatching based on the output format configured.
func PrintReport(rows []schema.ReportRow, cfg *contract.Config) error {
	target := ReportFile(cfg)
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(target, func(w io.Writer) error {
			return writeJSON(w, rows)
		}, "Wrote JSON report"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.TextOut:
		if err := writeWithFile(target, func(w io.Writer) error {
			return writeReportTable(w, rows, cfg)
		}, "Wrote table"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	default:
		if err := writeWithFile(target, func(w io.Writer) error {
			return writeReportCSV(w, rows)
		}, "Wrote CSV report"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	}
	return nil
}

// writeReportCSV writes the four-column report, one row per discovered Makefile.
func writeReportCSV(w io.Writer, rows []schema.ReportRow) error {
	return writeCSVWithHeader(w, schema.ReportHeader, func(cw *csv.Writer) error {
		for _, r := range rows {
			if err := cw.Write(r.Record()); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeReportTable generates and writes the human-readable table.
func writeReportTable(w io.Writer, rows []schema.ReportRow, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header(schema.ReportHeader)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	pathWidth := GetMaxTablePathWidth(cfg)
	failed := 0
	repos := make(map[string]bool)
	var data [][]string
	for _, r := range rows {
		if r.Status == schema.FailedStatus {
			failed++
		}
		repos[r.Repo] = true
		data = append(data, []string{
			r.Repo,
			contract.TruncatePath(r.Makefile, pathWidth),
			statusLabel(r.Status, cfg),
			r.Reason,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d Makefiles across %d repositories (%d failed)\n", len(rows), len(repos), failed)
	return err
}

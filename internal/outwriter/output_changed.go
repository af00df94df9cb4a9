package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintChanged outputs the changed repositories, dispatching based on the output format configured.
func PrintChanged(changed []schema.ChangedRepo, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, changed)
		}, "Wrote JSON changed repositories")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeChangedCSV(w, changed)
		}, "Wrote CSV changed repositories")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeChangedTable(w, changed)
		}, "Wrote table")
	}
}

// writeChangedCSV writes one line per sample so that every series can be plotted.
func writeChangedCSV(w io.Writer, changed []schema.ChangedRepo) error {
	header := []string{"repo", "tag", "time", "value", "changed"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, cr := range changed {
			for _, tag := range schema.TrackedTags {
				isChanged := strconv.FormatBool(containsTag(cr.ChangedTags, tag))
				for _, s := range cr.Series[tag] {
					if err := cw.Write([]string{cr.Repo, string(tag), s.Raw, strconv.Itoa(s.Value), isChanged}); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// writeChangedTable prints each repository with its value history per tag.
func writeChangedTable(w io.Writer, changed []schema.ChangedRepo) error {
	table := tablewriter.NewWriter(w)
	headers := []string{"Repo", "Runs"}
	for _, tag := range schema.TrackedTags {
		headers = append(headers, string(tag))
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, cr := range changed {
		row := []string{cr.Repo, strconv.Itoa(len(cr.Series[schema.TagTotal]))}
		for _, tag := range schema.TrackedTags {
			row = append(row, formatHistory(cr.Series.Values(tag), containsTag(cr.ChangedTags, tag)))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Found %d repositories with changed outcomes\n", len(changed))
	return err
}

// formatHistory renders a value history like "3 → 2 → 3". Constant series collapse to one value.
func formatHistory(values []int, changed bool) string {
	if len(values) == 0 {
		return "-"
	}
	if !changed {
		return strconv.Itoa(values[0])
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " → ")
}

func containsTag(tags []schema.Tag, tag schema.Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

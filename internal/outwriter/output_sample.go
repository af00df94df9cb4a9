package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSample outputs the sampled repositories, dispatching based on the output format configured.
func PrintSample(result schema.SampleResult, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON sample")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSampleCSV(w, result)
		}, "Wrote CSV sample")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSampleTable(w, result)
		}, "Wrote table")
	}
}

// writeSampleCSV writes the drawn repositories in draw order.
func writeSampleCSV(w io.Writer, result schema.SampleResult) error {
	skipped := skippedCounts(result)
	return writeCSVWithHeader(w, []string{"draw", "repo", "kept", "num_makefiles"}, func(cw *csv.Writer) error {
		for i, repo := range result.Drawn {
			n, isSkipped := skipped[repo]
			count := ""
			if isSkipped {
				count = strconv.Itoa(n)
			}
			if err := cw.Write([]string{strconv.Itoa(i + 1), repo, strconv.FormatBool(!isSkipped), count}); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeSampleTable prints the draw with the repositories skipped for size.
func writeSampleTable(w io.Writer, result schema.SampleResult) error {
	skipped := skippedCounts(result)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Draw", "Repo", "Kept", "Makefiles"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, repo := range result.Drawn {
		kept := "yes"
		count := ""
		if n, ok := skipped[repo]; ok {
			kept = "skipped"
			count = strconv.Itoa(n)
		}
		data = append(data, []string{strconv.Itoa(i + 1), repo, kept, count})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Drew %d of %d failing repositories (seed %d), kept %d, skipped %d\n",
		len(result.Drawn), result.Population, result.Seed, len(result.Kept), len(result.Skipped))
	return err
}

func skippedCounts(result schema.SampleResult) map[string]int {
	skipped := make(map[string]int, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped[s.Repo] = s.NumMakefiles
	}
	return skipped
}

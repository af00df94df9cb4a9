package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/buildwatch/schema"
)

// PrintStoreStatus prints repository store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Target: %s\n", status.Target)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	_, _ = fmt.Fprintf(w, "Cloned: %d\n", status.ClonedCount)
	_, _ = fmt.Fprintf(w, "Compiled: %d\n", status.CompiledCount)
	_, _ = fmt.Fprintf(w, "Total Makefiles: %d\n", status.TotalMakefiles)
	_, _ = fmt.Fprintf(w, "Total Binaries: %d\n", status.TotalBinaries)
}

// PrintParseStats prints a summary of one pass over a compilation log.
func PrintParseStats(w io.Writer, logFile string, stats schema.ParseStats, repos int) {
	_, _ = fmt.Fprintf(w, "Parsed %s: %d lines, %d compile events for %d repositories (%d skipped)\n",
		logFile, stats.Lines, stats.Matched, repos, stats.Skipped)
}

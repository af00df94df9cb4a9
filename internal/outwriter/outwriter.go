// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteReport prints reconciliation rows using the configured output format.
func (ow *OutWriter) WriteReport(rows []schema.ReportRow, cfg *contract.Config) error {
	return PrintReport(rows, cfg)
}

// WriteChanged prints repositories with fluctuating outcomes.
func (ow *OutWriter) WriteChanged(changed []schema.ChangedRepo, cfg *contract.Config) error {
	return PrintChanged(changed, cfg)
}

// WriteSample prints the outcome of a failure sample.
func (ow *OutWriter) WriteSample(result schema.SampleResult, cfg *contract.Config) error {
	return PrintSample(result, cfg)
}

// GetMaxTablePathWidth calculates the maximum width for Makefile paths in table output
// based on terminal width.
func GetMaxTablePathWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Repo + Status columns plus borders and padding
	baseWidth := 30 + 12 + 20

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}

// statusLabel picks the colored or plain status text.
func statusLabel(status schema.Status, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorStatus(status)
	}
	return contract.GetPlainStatus(status)
}

package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/buildwatch/schema"
)

// compileLineRe matches the summary line the build driver emits after trying
// every Makefile of a repository. The match is a search, so prefixes like
// pid or thread markers before the timestamp are tolerated.
var compileLineRe = regexp.MustCompile(
	`(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3}) (?P<level>\w+): ` +
		`(?P<n_success>\d+) \((?P<n_partial>\d+)\) out of (?P<n_total>\d+) Makefile\(s\) in ` +
		`(?P<owner>\w+)/(?P<name>\w+) compiled \(partially\), yielding (?P<n_binaries>\d+) binaries`)

// nearMissMarker identifies lines that look like compile summaries but did not match.
const nearMissMarker = "Makefile(s) in"

// maxNearMissExamples is how many near-miss lines are kept for display.
const maxNearMissExamples = 3

// maxLineSize bounds a single log line. Longer lines are skipped.
const maxLineSize = 4 * 1024 * 1024

var (
	groupTS       = compileLineRe.SubexpIndex("ts")
	groupLevel    = compileLineRe.SubexpIndex("level")
	groupSuccess  = compileLineRe.SubexpIndex("n_success")
	groupPartial  = compileLineRe.SubexpIndex("n_partial")
	groupTotal    = compileLineRe.SubexpIndex("n_total")
	groupOwner    = compileLineRe.SubexpIndex("owner")
	groupName     = compileLineRe.SubexpIndex("name")
	groupBinaries = compileLineRe.SubexpIndex("n_binaries")
)

// ParseLine extracts a compile event from a single log line.
// The boolean is false when the line does not carry one.
func ParseLine(line string) (schema.CompileEvent, bool) {
	m := compileLineRe.FindStringSubmatch(line)
	if m == nil {
		return schema.CompileEvent{}, false
	}
	// An impossible date such as month 13 keeps the sample with a zero Time;
	// Raw still carries the logged text.
	ts, _ := time.Parse(schema.LogTimeLayout, m[groupTS])
	counts := make([]int, 0, 4)
	for _, idx := range []int{groupSuccess, groupPartial, groupTotal, groupBinaries} {
		n, err := strconv.Atoi(m[idx])
		if err != nil {
			return schema.CompileEvent{}, false
		}
		counts = append(counts, n)
	}
	return schema.CompileEvent{
		Time:      ts,
		Raw:       m[groupTS],
		Level:     m[groupLevel],
		Owner:     m[groupOwner],
		Name:      m[groupName],
		NSuccess:  counts[0],
		NPartial:  counts[1],
		NTotal:    counts[2],
		NBinaries: counts[3],
	}, true
}

// ParseLog reads a compilation log and builds the per-repository series.
// Samples are appended in line order. Lines longer than maxLineSize are
// skipped without being buffered.
func ParseLog(r io.Reader) (schema.SeriesMap, schema.ParseStats, error) {
	series := make(schema.SeriesMap)
	var stats schema.ParseStats

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, oversized, err := readLogLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("reading log at line %d: %w", stats.Lines+1, err)
		}
		stats.Lines++
		if oversized {
			stats.Skipped++
			continue
		}
		ev, ok := ParseLine(line)
		if !ok {
			stats.Skipped++
			if strings.Contains(line, nearMissMarker) {
				stats.NearMisses++
				if len(stats.Examples) < maxNearMissExamples {
					stats.Examples = append(stats.Examples, strings.TrimSpace(line))
				}
			}
			continue
		}
		stats.Matched++
		series.Append(ev)
	}
	return series, stats, nil
}

// readLogLine returns the next line without its line ending. Once a line
// exceeds maxLineSize the rest of it is drained and oversized is true.
// io.EOF is returned only when no further line exists.
func readLogLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	read, oversized := false, false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				return string(buf), oversized, nil
			}
			return "", false, err
		}
		read = true
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize {
				oversized, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), oversized, nil
		}
	}
}

package schema

import (
	"slices"
	"time"
)

// LogTimeLayout is the timestamp layout of compilation log lines.
const LogTimeLayout = "2006-01-02 15:04:05,000"

// Sample is one observation of a metric at a point in the log.
type Sample struct {
	Time  time.Time `json:"time"`
	Raw   string    `json:"raw"` // Timestamp exactly as it appeared in the log
	Value int       `json:"value"`
}

// CompileEvent is a single matched compilation summary line.
type CompileEvent struct {
	Time      time.Time
	Raw       string
	Level     string
	Owner     string
	Name      string
	NSuccess  int
	NPartial  int
	NTotal    int
	NBinaries int
}

// Value returns the count carried by the event for a tracked tag.
func (e CompileEvent) Value(tag Tag) int {
	switch tag {
	case TagPartial:
		return e.NPartial
	case TagBinaries:
		return e.NBinaries
	case TagTotal:
		return e.NTotal
	default:
		return 0
	}
}

// RepoSeries maps each tracked tag to its ordered samples for one repository.
type RepoSeries map[Tag][]Sample

// NewRepoSeries returns a series with an empty slice for every tracked tag.
func NewRepoSeries() RepoSeries {
	rs := make(RepoSeries, len(TrackedTags))
	for _, tag := range TrackedTags {
		rs[tag] = []Sample{}
	}
	return rs
}

// Latest returns the most recently encountered sample of a tag.
func (rs RepoSeries) Latest(tag Tag) (Sample, bool) {
	samples := rs[tag]
	if len(samples) == 0 {
		return Sample{}, false
	}
	return samples[len(samples)-1], true
}

// Values returns only the values of a tag's samples.
func (rs RepoSeries) Values(tag Tag) []int {
	samples := rs[tag]
	values := make([]int, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return values
}

// SeriesMap maps "owner/name" to that repository's series.
type SeriesMap map[string]RepoSeries

// Append records an event against its repository.
func (sm SeriesMap) Append(ev CompileEvent) {
	repo := RepoFullName(ev.Owner, ev.Name)
	rs, ok := sm[repo]
	if !ok {
		rs = NewRepoSeries()
		sm[repo] = rs
	}
	for _, tag := range TrackedTags {
		rs[tag] = append(rs[tag], Sample{Time: ev.Time, Raw: ev.Raw, Value: ev.Value(tag)})
	}
}

// Repos returns the repository names in sorted order.
func (sm SeriesMap) Repos() []string {
	repos := make([]string, 0, len(sm))
	for repo := range sm {
		repos = append(repos, repo)
	}
	slices.Sort(repos)
	return repos
}

// ParseStats summarizes one pass over a log.
type ParseStats struct {
	Lines      int      `json:"lines"`
	Matched    int      `json:"matched"`
	Skipped    int      `json:"skipped"`
	NearMisses int      `json:"near_misses"`
	Examples   []string `json:"examples,omitempty"` // First few near-miss lines
}

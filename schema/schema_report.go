package schema

// ReportHeader is the header row of the reconciliation report.
var ReportHeader = []string{"Repo", "Makefile", "Status", "Failed Reason?"}

// ReportRow is one discovered Makefile directory and its recorded status.
type ReportRow struct {
	Repo     string `json:"repo"`
	Makefile string `json:"makefile"`
	Status   Status `json:"status"`
	Reason   string `json:"failed_reason,omitempty"` // Reserved for manual annotation
}

// Record returns the row as CSV fields.
func (r ReportRow) Record() []string {
	return []string{r.Repo, r.Makefile, string(r.Status), r.Reason}
}

// SkippedRepo is a sampled repository dropped for having too many Makefiles.
type SkippedRepo struct {
	Repo         string `json:"repo"`
	NumMakefiles int    `json:"num_makefiles"`
}

// SampleResult holds the outcome of drawing failing repositories.
type SampleResult struct {
	Population int           `json:"population"`
	Requested  int           `json:"requested"`
	Seed       uint64        `json:"seed"`
	Drawn      []string      `json:"drawn"`
	Kept       []string      `json:"kept"`
	Skipped    []SkippedRepo `json:"skipped"`
}

// ChangedRepo is a repository whose recorded outcomes were not constant.
type ChangedRepo struct {
	Repo        string     `json:"repo"`
	ChangedTags []Tag      `json:"changed_tags"`
	Series      RepoSeries `json:"series"`
}

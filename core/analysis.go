package core

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/discover"
	"github.com/huangsam/buildwatch/internal/metrics"
	"github.com/huangsam/buildwatch/schema"
)

// Stages reported in repository warnings.
const (
	stageDiscover = "discover"
	stageStore    = "store"
)

// RepoWarning is a recoverable problem with one repository. The repository
// is left out of the report and processing continues.
type RepoWarning struct {
	Repo  string
	Stage string
	Err   error
}

func (w RepoWarning) Error() string {
	return fmt.Sprintf("%s (%s): %v", w.Repo, w.Stage, w.Err)
}

func (w RepoWarning) Unwrap() error {
	return w.Err
}

// LoadSeries reads and parses a compilation log file.
func LoadSeries(logFile string) (schema.SeriesMap, schema.ParseStats, error) {
	f, err := os.Open(logFile)
	if err != nil {
		return nil, schema.ParseStats{}, fmt.Errorf("cannot open log file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseLog(f)
}

// RepoReport reconciles one repository against the store.
// A nil store reconciles against an empty record set.
func RepoReport(ctx context.Context, cfg *contract.Config, repo string, store contract.RepoStore, finder contract.MakefileFinder) ([]schema.ReportRow, error) {
	owner, name, err := contract.SplitRepo(repo)
	if err != nil {
		return nil, RepoWarning{Repo: repo, Stage: stageDiscover, Err: err}
	}

	discovered, err := finder.FindMakefiles(discover.RepoDir(cfg.ReposDir, owner, name))
	if err != nil {
		return nil, RepoWarning{Repo: repo, Stage: stageDiscover, Err: err}
	}

	var entry *schema.RepoEntry
	if store != nil {
		entry, err = store.Get(ctx, owner, name)
		if err != nil {
			if contract.IsFatal(err) {
				return nil, err
			}
			return nil, RepoWarning{Repo: repo, Stage: stageStore, Err: err}
		}
	}
	return Reconcile(owner, name, discovered, entry, cfg.PrefixSegments), nil
}

// BuildReport reconciles every repository in order. Recoverable problems
// are returned as warnings. A fatal error stops the run with no rows.
func BuildReport(ctx context.Context, cfg *contract.Config, repos []string, store contract.RepoStore, finder contract.MakefileFinder, rec *metrics.Recorder) ([]schema.ReportRow, []RepoWarning, error) {
	rows := []schema.ReportRow{}
	var warnings []RepoWarning
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}
		repoRows, err := RepoReport(ctx, cfg, repo, store, finder)
		if err != nil {
			var w RepoWarning
			if errors.As(err, &w) {
				warnings = append(warnings, w)
				if rec != nil {
					rec.ObserveWarning(w.Stage)
				}
				continue
			}
			return nil, warnings, err
		}
		rows = append(rows, repoRows...)
	}
	return rows, warnings, nil
}

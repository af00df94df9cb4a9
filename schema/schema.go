// Package schema has the models shared by all parts of buildwatch.
package schema

import (
	"errors"
	"fmt"
)

// UnknownRepoSize is the repo_size recorded when the size is unknown or the clone failed.
const UnknownRepoSize int64 = -1

// RepoMakefileEntry is the compilation outcome of one Makefile inside a repository.
type RepoMakefileEntry struct {
	Directory   string   `json:"directory" bson:"directory"`       // Directory containing the Makefile
	Successful  bool     `json:"successful" bson:"successful"`     // Whether make exited with status 0
	NumBinaries int      `json:"num_binaries" bson:"num_binaries"` // Number of binaries produced
	Binaries    []string `json:"binaries" bson:"binaries"`         // Paths to the produced binaries
	SHA256      []string `json:"sha256" bson:"sha256"`             // Content digest per binary, same order as Binaries
}

// RepoEntry is the persisted record of clone and compilation outcomes for one repository.
type RepoEntry struct {
	RepoOwner       string              `json:"repo_owner" bson:"repo_owner"`
	RepoName        string              `json:"repo_name" bson:"repo_name"`
	CloneSuccessful bool                `json:"clone_successful" bson:"clone_successful"`
	RepoSize        int64               `json:"repo_size" bson:"repo_size"`
	Compiled        bool                `json:"compiled" bson:"compiled"` // Whether a compilation attempt was recorded
	NumMakefiles    int                 `json:"num_makefiles" bson:"num_makefiles"`
	NumBinaries     int                 `json:"num_binaries" bson:"num_binaries"`
	Makefiles       []RepoMakefileEntry `json:"makefiles" bson:"makefiles"`
}

// NewRepoEntry returns the entry recorded for a fresh clone attempt.
func NewRepoEntry(owner, name string, cloneSuccessful bool, repoSize int64) RepoEntry {
	return RepoEntry{
		RepoOwner:       owner,
		RepoName:        name,
		CloneSuccessful: cloneSuccessful,
		RepoSize:        repoSize,
		Makefiles:       []RepoMakefileEntry{},
	}
}

// FullName returns "owner/name".
func (e *RepoEntry) FullName() string {
	return RepoFullName(e.RepoOwner, e.RepoName)
}

// RepoFullName joins an owner and a name into the "owner/name" form used in logs and reports.
func RepoFullName(owner, name string) string {
	return owner + "/" + name
}

// Validate checks the per-Makefile invariant len(binaries) == len(sha256) == num_binaries.
func (m *RepoMakefileEntry) Validate() error {
	if len(m.Binaries) != len(m.SHA256) {
		return fmt.Errorf("makefile %q has %d binaries but %d digests", m.Directory, len(m.Binaries), len(m.SHA256))
	}
	if m.NumBinaries != len(m.Binaries) {
		return fmt.Errorf("makefile %q declares %d binaries but lists %d", m.Directory, m.NumBinaries, len(m.Binaries))
	}
	return nil
}

// Validate checks the entry-level counters against its Makefile list.
func (e *RepoEntry) Validate() error {
	if e.RepoOwner == "" || e.RepoName == "" {
		return errors.New("repo_owner and repo_name are required")
	}
	if e.NumMakefiles != len(e.Makefiles) {
		return fmt.Errorf("%s: num_makefiles is %d but %d makefiles are stored", e.FullName(), e.NumMakefiles, len(e.Makefiles))
	}
	total := 0
	for i := range e.Makefiles {
		if err := e.Makefiles[i].Validate(); err != nil {
			return fmt.Errorf("%s: %w", e.FullName(), err)
		}
		total += e.Makefiles[i].NumBinaries
	}
	if e.NumBinaries != total {
		return fmt.Errorf("%s: num_binaries is %d but makefiles sum to %d", e.FullName(), e.NumBinaries, total)
	}
	return nil
}

// CountBinaries sums the binaries listed by each Makefile.
func CountBinaries(makefiles []RepoMakefileEntry) int {
	total := 0
	for _, m := range makefiles {
		total += len(m.Binaries)
	}
	return total
}

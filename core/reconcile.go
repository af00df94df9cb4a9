package core

import (
	"path"
	"strings"

	"github.com/huangsam/buildwatch/schema"
)

// NormalizeMakefileDir turns a recorded Makefile directory into a path
// relative to the repository root. The builder records paths inside its
// container mount, e.g. /usr/src/repo/<dir>, so absolute paths lose the first
// prefixSegments segments of the slash-split path (the leading empty one
// included). A relative path starting with owner/name has that pair removed.
// Deeper owner/name pairs are ordinary directories and are kept.
func NormalizeMakefileDir(owner, name, dir string, prefixSegments int) string {
	cleaned := path.Clean(toSlash(dir))
	parts := strings.Split(cleaned, "/")

	var rest []string
	switch {
	case strings.HasPrefix(cleaned, "/"):
		if prefixSegments < len(parts) {
			rest = parts[max(prefixSegments, 0):]
		}
	case len(parts) >= 2 && parts[0] == owner && parts[1] == name:
		rest = parts[2:]
	default:
		rest = parts
	}
	return relPath(strings.Join(rest, "/"))
}

// RecordedDirs returns the normalized directories of every Makefile the store
// recorded for the repository. The builder only records Makefiles it managed to
// compile, so membership is what marks a directory successful. A nil entry yields an empty set.
func RecordedDirs(owner, name string, entry *schema.RepoEntry, prefixSegments int) map[string]bool {
	dirs := make(map[string]bool)
	if entry == nil {
		return dirs
	}
	for _, mk := range entry.Makefiles {
		dirs[NormalizeMakefileDir(owner, name, mk.Directory, prefixSegments)] = true
	}
	return dirs
}

// Reconcile produces one report row per discovered Makefile directory.
// A directory is marked Failed unless the store recorded it.
func Reconcile(owner, name string, discovered []string, entry *schema.RepoEntry, prefixSegments int) []schema.ReportRow {
	recorded := RecordedDirs(owner, name, entry, prefixSegments)
	repo := schema.RepoFullName(owner, name)
	rows := make([]schema.ReportRow, 0, len(discovered))
	for _, dir := range discovered {
		status := schema.FailedStatus
		if recorded[relPath(toSlash(dir))] {
			status = schema.SuccessStatus
		}
		rows = append(rows, schema.ReportRow{Repo: repo, Makefile: dir, Status: status})
	}
	return rows
}

// relPath cleans a repository-relative path. The root is ".".
func relPath(p string) string {
	rel := strings.TrimPrefix(path.Clean(p), "/")
	if rel == "" {
		return "."
	}
	return rel
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

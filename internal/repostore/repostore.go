// Package repostore persists per-repository clone and compilation records.
package repostore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
)

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Open connects to the store described by sc.
func Open(ctx context.Context, sc contract.StoreConfig) (contract.RepoStore, error) {
	switch sc.Backend {
	case schema.MemoryBackend:
		return NewMemoryStore(), nil
	case schema.MongoBackend:
		return NewMongoStore(ctx, sc)
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLStore(ctx, sc)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be mongodb, mysql, postgresql, sqlite, or memory", sc.Backend)
	}
}

// validateTableName guards identifiers that are interpolated into SQL.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// checkMakefiles rejects entries that break the per-Makefile invariants.
func checkMakefiles(owner, name string, makefiles []schema.RepoMakefileEntry) error {
	for i := range makefiles {
		if err := makefiles[i].Validate(); err != nil {
			return fmt.Errorf("%w for %s: %v", contract.ErrInvalidMakefile, schema.RepoFullName(owner, name), err)
		}
	}
	return nil
}

// checkLength enforces that a recorded Makefile list is only replaced by one of equal length.
func checkLength(owner, name string, stored, incoming int, ignoreLengthMismatch bool) error {
	if ignoreLengthMismatch || stored == 0 || stored == incoming {
		return nil
	}
	return fmt.Errorf("%w for %s: expected %d, got %d", contract.ErrLengthMismatch, schema.RepoFullName(owner, name), stored, incoming)
}

// checkEntry verifies a decoded record before it leaves the store.
func checkEntry(entry *schema.RepoEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrCorruptEntry, err)
	}
	return nil
}

// notFound wraps ErrRepoNotFound with the repository identity.
func notFound(owner, name string) error {
	return fmt.Errorf("%w: %s", contract.ErrRepoNotFound, schema.RepoFullName(owner, name))
}

// normalizeMakefiles keeps stored lists non-nil so they serialize as [] instead of null.
func normalizeMakefiles(makefiles []schema.RepoMakefileEntry) []schema.RepoMakefileEntry {
	if makefiles == nil {
		return []schema.RepoMakefileEntry{}
	}
	return makefiles
}

// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/buildwatch/schema"
)

// RepoStore is the persistent keyed store of repository compilation records.
// It owns every mutation and consistency rule for RepoEntry values, so any
// key-value or document engine can back it.
type RepoStore interface {
	// Get returns the entry for owner/name, or nil without error when absent.
	Get(ctx context.Context, owner, name string) (*schema.RepoEntry, error)

	// AddRepo creates an uncompiled entry if none exists for the key.
	// An existing entry is left untouched.
	AddRepo(ctx context.Context, owner, name string, cloneSuccessful bool, repoSize int64) error

	// UpdateMakefile replaces the compiled-state fields of an existing entry.
	// A non-empty stored Makefile list may only be replaced by one of the same
	// length unless ignoreLengthMismatch is set.
	UpdateMakefile(ctx context.Context, owner, name string, makefiles []schema.RepoMakefileEntry, ignoreLengthMismatch bool) error

	// CountMakefiles sums num_makefiles across compiled entries.
	CountMakefiles(ctx context.Context) (int, error)

	// CountBinaries sums num_binaries across compiled entries.
	CountBinaries(ctx context.Context) (int, error)

	// GetStatus returns status information about the store.
	GetStatus(ctx context.Context) (schema.StoreStatus, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}

// MakefileFinder discovers build-script directories on disk.
type MakefileFinder interface {
	// FindMakefiles returns directories under root that hold a Makefile,
	// relative to root and using forward slashes.
	FindMakefiles(root string) ([]string, error)
}

package repostore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
)

// MemoryStore keeps entries in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[repoKey]schema.RepoEntry
}

// repoKey matches owner and name separately, like the unique index of the other backends.
type repoKey struct {
	owner, name string
}

var _ contract.RepoStore = &MemoryStore{} // Compile-time check

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[repoKey]schema.RepoEntry)}
}

// Get returns a copy of the entry for owner/name, or nil when there is none.
func (s *MemoryStore) Get(_ context.Context, owner, name string) (*schema.RepoEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[repoKey{owner, name}]
	if !ok {
		return nil, nil
	}
	entry.Makefiles = cloneMakefiles(entry.Makefiles)
	if err := checkEntry(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// AddRepo records a clone attempt. An existing entry is left untouched.
func (s *MemoryStore) AddRepo(_ context.Context, owner, name string, cloneSuccessful bool, repoSize int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repoKey{owner, name}
	if _, ok := s.entries[key]; ok {
		return nil
	}
	s.entries[key] = schema.NewRepoEntry(owner, name, cloneSuccessful, repoSize)
	return nil
}

// UpdateMakefile replaces the Makefile outcomes of an existing entry and marks it compiled.
func (s *MemoryStore) UpdateMakefile(_ context.Context, owner, name string, makefiles []schema.RepoMakefileEntry, ignoreLengthMismatch bool) error {
	if err := checkMakefiles(owner, name, makefiles); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repoKey{owner, name}
	entry, ok := s.entries[key]
	if !ok {
		return notFound(owner, name)
	}
	if err := checkLength(owner, name, len(entry.Makefiles), len(makefiles), ignoreLengthMismatch); err != nil {
		return err
	}
	entry.Compiled = true
	entry.Makefiles = cloneMakefiles(normalizeMakefiles(makefiles))
	entry.NumMakefiles = len(entry.Makefiles)
	entry.NumBinaries = schema.CountBinaries(entry.Makefiles)
	s.entries[key] = entry
	return nil
}

// CountMakefiles sums num_makefiles over compiled entries.
func (s *MemoryStore) CountMakefiles(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, e := range s.entries {
		if e.Compiled {
			total += e.NumMakefiles
		}
	}
	return total, nil
}

// CountBinaries sums num_binaries over compiled entries.
func (s *MemoryStore) CountBinaries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, e := range s.entries {
		if e.Compiled {
			total += e.NumBinaries
		}
	}
	return total, nil
}

// GetStatus returns status information about the store.
func (s *MemoryStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(schema.MemoryBackend),
		Connected: true,
		Target:    "in-memory",
	}
	s.mu.RLock()
	status.TotalEntries = len(s.entries)
	for _, e := range s.entries {
		if e.Compiled {
			status.CompiledCount++
		}
		if e.CloneSuccessful {
			status.ClonedCount++
		}
	}
	s.mu.RUnlock()

	var err error
	if status.TotalMakefiles, err = s.CountMakefiles(ctx); err != nil {
		return status, err
	}
	if status.TotalBinaries, err = s.CountBinaries(ctx); err != nil {
		return status, err
	}
	return status, nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Put stores an entry as-is, bypassing the update rules. Used to seed fixtures.
func (s *MemoryStore) Put(entry schema.RepoEntry) error {
	if entry.RepoOwner == "" || entry.RepoName == "" {
		return fmt.Errorf("entry needs an owner and a name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Makefiles = cloneMakefiles(entry.Makefiles)
	s.entries[repoKey{entry.RepoOwner, entry.RepoName}] = entry
	return nil
}

func cloneMakefiles(makefiles []schema.RepoMakefileEntry) []schema.RepoMakefileEntry {
	out := make([]schema.RepoMakefileEntry, len(makefiles))
	for i, m := range makefiles {
		m.Binaries = slices.Clone(m.Binaries)
		m.SHA256 = slices.Clone(m.SHA256)
		out[i] = m
	}
	return out
}

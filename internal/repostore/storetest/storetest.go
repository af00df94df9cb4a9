// Package storetest has the behavior suite shared by all RepoStore backends.
package storetest

import (
	"context"
	"testing"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makefile builds a valid entry with n binaries.
func makefile(dir string, ok bool, n int) schema.RepoMakefileEntry {
	m := schema.RepoMakefileEntry{Directory: dir, Successful: ok, NumBinaries: n, Binaries: []string{}, SHA256: []string{}}
	for i := range n {
		m.Binaries = append(m.Binaries, dir+"/bin"+string(rune('a'+i)))
		m.SHA256 = append(m.SHA256, "deadbeef"+string(rune('a'+i)))
	}
	return m
}

// RunConformance exercises the behavior every RepoStore backend must share.
// newStore must return an empty store.
func RunConformance(t *testing.T, newStore func(t *testing.T) contract.RepoStore) {
	ctx := context.Background()

	t.Run("get missing returns nil", func(t *testing.T) {
		s := newStore(t)
		entry, err := s.Get(ctx, "nobody", "nothing")
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("add is insert if absent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 1024))
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", false, 7))

		entry, err := s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.True(t, entry.CloneSuccessful)
		assert.Equal(t, int64(1024), entry.RepoSize)
		assert.False(t, entry.Compiled)
		assert.Equal(t, 0, entry.NumMakefiles)
		assert.Empty(t, entry.Makefiles)
	})

	t.Run("owner and name are matched separately", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "a/b", "c", true, 1))
		require.NoError(t, s.AddRepo(ctx, "a", "b/c", false, 2))

		entry, err := s.Get(ctx, "a", "b/c")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "a", entry.RepoOwner)
		assert.Equal(t, "b/c", entry.RepoName)
		assert.Equal(t, int64(2), entry.RepoSize)

		status, err := s.GetStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, status.TotalEntries)
	})

	t.Run("unknown size", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "nosize", false, schema.UnknownRepoSize))
		entry, err := s.Get(ctx, "foo", "nosize")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, int64(-1), entry.RepoSize)
	})

	t.Run("update missing repo", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateMakefile(ctx, "ghost", "repo", []schema.RepoMakefileEntry{makefile("a", true, 1)}, false)
		assert.ErrorIs(t, err, contract.ErrRepoNotFound)
		assert.Contains(t, err.Error(), "ghost/repo")
	})

	t.Run("update sets counters", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 10))
		mfs := []schema.RepoMakefileEntry{makefile("/usr/src/repo/a", true, 2), makefile("/usr/src/repo/b", false, 0)}
		require.NoError(t, s.UpdateMakefile(ctx, "foo", "bar", mfs, false))

		entry, err := s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.True(t, entry.Compiled)
		assert.Equal(t, 2, entry.NumMakefiles)
		assert.Equal(t, 2, entry.NumBinaries)
		assert.Equal(t, mfs, entry.Makefiles)
		assert.NoError(t, entry.Validate())
	})

	t.Run("length mismatch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 10))
		require.NoError(t, s.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{makefile("a", true, 1), makefile("b", true, 1)}, false))

		err := s.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{makefile("a", true, 1), makefile("b", true, 1), makefile("c", true, 0)}, false)
		require.ErrorIs(t, err, contract.ErrLengthMismatch)
		assert.Contains(t, err.Error(), "expected 2, got 3")

		entry, err := s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		assert.Equal(t, 2, entry.NumMakefiles)

		// Same length is accepted
		require.NoError(t, s.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{makefile("a", false, 0), makefile("b", true, 3)}, false))
		entry, err = s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		assert.Equal(t, 3, entry.NumBinaries)
	})

	t.Run("override ignores length", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 10))
		require.NoError(t, s.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{makefile("a", true, 1)}, false))
		require.NoError(t, s.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{makefile("a", true, 1), makefile("b", true, 2)}, true))

		entry, err := s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		assert.Equal(t, 2, entry.NumMakefiles)
		assert.Equal(t, 3, entry.NumBinaries)
	})

	t.Run("invalid makefile rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 10))
		bad := schema.RepoMakefileEntry{Directory: "a", Successful: true, NumBinaries: 1, Binaries: []string{"a/x"}, SHA256: []string{}}
		err := s.UpdateMakefile(ctx, "foo", "bar", []schema.RepoMakefileEntry{bad}, false)
		assert.ErrorIs(t, err, contract.ErrInvalidMakefile)

		entry, err := s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		assert.False(t, entry.Compiled)
	})

	t.Run("counters sum compiled entries only", func(t *testing.T) {
		s := newStore(t)
		n, err := s.CountMakefiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, s.AddRepo(ctx, "a", "one", true, 1))
		require.NoError(t, s.AddRepo(ctx, "b", "two", true, 1))
		require.NoError(t, s.AddRepo(ctx, "c", "three", false, schema.UnknownRepoSize))
		require.NoError(t, s.UpdateMakefile(ctx, "a", "one", []schema.RepoMakefileEntry{makefile("x", true, 2)}, false))
		require.NoError(t, s.UpdateMakefile(ctx, "b", "two", []schema.RepoMakefileEntry{makefile("x", true, 1), makefile("y", false, 0), makefile("z", true, 4)}, false))

		makefiles, err := s.CountMakefiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, makefiles)
		binaries, err := s.CountBinaries(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, binaries)

		status, err := s.GetStatus(ctx)
		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.Equal(t, 3, status.TotalEntries)
		assert.Equal(t, 2, status.CompiledCount)
		assert.Equal(t, 2, status.ClonedCount)
		assert.Equal(t, 4, status.TotalMakefiles)
		assert.Equal(t, 7, status.TotalBinaries)
	})

	t.Run("clear drops everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 10))
		require.NoError(t, s.Clear(ctx))
		entry, err := s.Get(ctx, "foo", "bar")
		require.NoError(t, err)
		assert.Nil(t, entry)
		status, err := s.GetStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, status.TotalEntries)
	})
}

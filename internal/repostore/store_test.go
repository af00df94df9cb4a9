package repostore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/repostore/storetest"
	"github.com/huangsam/buildwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) contract.StoreConfig {
	t.Helper()
	return contract.StoreConfig{
		Backend:        schema.SQLiteBackend,
		DBName:         filepath.Join(t.TempDir(), "repos.db"),
		CollectionName: "repos",
	}
}

func TestMemoryStoreConformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) contract.RepoStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStoreConformance(t *testing.T) {
	storetest.RunConformance(t, func(t *testing.T) contract.RepoStore {
		s, err := NewSQLStore(context.Background(), sqliteConfig(t))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, contract.StoreConfig{Backend: schema.MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, sqliteConfig(t))
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, contract.StoreConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestNewSQLStore_InvalidTableName(t *testing.T) {
	sc := sqliteConfig(t)
	sc.CollectionName = "repos; DROP TABLE x"
	_, err := NewSQLStore(context.Background(), sc)
	assert.Error(t, err)
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	sc := sqliteConfig(t)

	s, err := NewSQLStore(ctx, sc)
	require.NoError(t, err)
	require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 42))
	require.NoError(t, s.Close())

	s, err = NewSQLStore(ctx, sc)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	entry, err := s.Get(ctx, "foo", "bar")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(42), entry.RepoSize)
}

func TestSQLStore_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLStore(ctx, sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 1))
	// Counter disagrees with the stored list
	_, err = s.db.ExecContext(ctx, `UPDATE "repos" SET num_makefiles = 3 WHERE repo_owner = 'foo'`)
	require.NoError(t, err)

	_, err = s.Get(ctx, "foo", "bar")
	assert.ErrorIs(t, err, contract.ErrCorruptEntry)
}

func TestMemoryStore_CorruptEntry(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put(schema.RepoEntry{RepoOwner: "foo", RepoName: "bar", NumMakefiles: 1}))
	_, err := s.Get(context.Background(), "foo", "bar")
	assert.ErrorIs(t, err, contract.ErrCorruptEntry)
	assert.Error(t, s.Put(schema.RepoEntry{RepoOwner: "foo"}))
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.AddRepo(ctx, "foo", "bar", true, 1))
	mfs := []schema.RepoMakefileEntry{{Directory: "a", Successful: true, NumBinaries: 1, Binaries: []string{"a/x"}, SHA256: []string{"00"}}}
	require.NoError(t, s.UpdateMakefile(ctx, "foo", "bar", mfs, false))

	entry, err := s.Get(ctx, "foo", "bar")
	require.NoError(t, err)
	entry.Makefiles[0].Binaries[0] = "changed"

	again, err := s.Get(ctx, "foo", "bar")
	require.NoError(t, err)
	assert.Equal(t, "a/x", again.Makefiles[0].Binaries[0])
}

func TestCheckLength(t *testing.T) {
	assert.NoError(t, checkLength("o", "n", 0, 5, false))
	assert.NoError(t, checkLength("o", "n", 3, 3, false))
	assert.NoError(t, checkLength("o", "n", 3, 5, true))
	assert.ErrorIs(t, checkLength("o", "n", 3, 5, false), contract.ErrLengthMismatch)
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName("repos"))
	assert.NoError(t, validateTableName("_repos_2"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("2repos"))
	assert.Error(t, validateTableName("repos-x"))
}

func TestRenderMigration(t *testing.T) {
	body := "CREATE INDEX idx_{{name}}_c ON {{table}} (c); {{json_type}}; DROP INDEX idx{{on_table}};"
	assert.Equal(t, `CREATE INDEX idx_repos_c ON "repos" (c); TEXT; DROP INDEX idx;`, renderMigration(body, "repos", schema.PostgreSQLBackend))
	assert.Equal(t, "CREATE INDEX idx_repos_c ON `repos` (c); LONGTEXT; DROP INDEX idx ON `repos`;", renderMigration(body, "repos", schema.MySQLBackend))
}

func TestMigrate_SQLite(t *testing.T) {
	sc := sqliteConfig(t)
	var out bytes.Buffer

	require.NoError(t, Migrate(sc, -1, &out))
	assert.Contains(t, out.String(), "Successfully migrated from version 0 to version 2")

	out.Reset()
	require.NoError(t, Migrate(sc, -1, &out))
	assert.Contains(t, out.String(), "No migration needed")

	// The migrated table serves a store
	s, err := NewSQLStore(context.Background(), sc)
	require.NoError(t, err)
	require.NoError(t, s.AddRepo(context.Background(), "foo", "bar", true, 1))
	require.NoError(t, s.Close())

	out.Reset()
	require.NoError(t, Migrate(sc, 1, &out))
	assert.Contains(t, out.String(), "to version 1")

	out.Reset()
	require.NoError(t, Migrate(sc, 0, &out))
	assert.Contains(t, out.String(), "rolled back")
	_, err = os.Stat(sc.DBName)
	assert.NoError(t, err)
}

func TestMigrate_UnsupportedBackend(t *testing.T) {
	err := Migrate(contract.StoreConfig{Backend: schema.MemoryBackend}, -1, &bytes.Buffer{})
	assert.Error(t, err)
	err = Migrate(contract.StoreConfig{Backend: schema.MongoBackend}, -1, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestMockRepoStore(t *testing.T) {
	ctx := context.Background()
	m := &MockRepoStore{}
	entry := &schema.RepoEntry{RepoOwner: "foo", RepoName: "bar"}
	m.On("Get", ctx, "foo", "bar").Return(entry, nil)
	m.On("Get", ctx, "foo", "missing").Return(nil, nil)
	m.On("CountBinaries", mock.Anything).Return(5, nil)

	got, err := m.Get(ctx, "foo", "bar")
	require.NoError(t, err)
	assert.Same(t, entry, got)

	got, err = m.Get(ctx, "foo", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := m.CountBinaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	m.AssertExpectations(t)
}

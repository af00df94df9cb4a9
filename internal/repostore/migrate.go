package repostore

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// initialMigration creates the repository table.
const initialMigration = "migrations/000001_create_repos.up.sql"

// renderMigration fills the table placeholders of a migration for the backend.
func renderMigration(body, tableName string, backend schema.DatabaseBackend) string {
	jsonType, onTable := "TEXT", ""
	if backend == schema.MySQLBackend {
		jsonType = "LONGTEXT"
		onTable = " ON " + quoteTableName(tableName, backend)
	}
	return strings.NewReplacer(
		"{{table}}", quoteTableName(tableName, backend),
		"{{name}}", tableName,
		"{{json_type}}", jsonType,
		"{{on_table}}", onTable,
	).Replace(body)
}

// createTableQuery returns the CREATE TABLE statement of the first migration.
func createTableQuery(tableName string, backend schema.DatabaseBackend) (string, error) {
	body, err := migrationsFS.ReadFile(initialMigration)
	if err != nil {
		return "", err
	}
	return renderMigration(string(body), tableName, backend), nil
}

// renderedFS serves the embedded migrations with placeholders filled in.
type renderedFS struct {
	base      fs.FS
	tableName string
	backend   schema.DatabaseBackend
}

// Open implements fs.FS.
func (r renderedFS) Open(name string) (fs.File, error) {
	f, err := r.base.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return f, err
	}
	defer func() { _ = f.Close() }()
	body, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	rendered := renderMigration(string(body), r.tableName, r.backend)
	return &renderedFile{Reader: bytes.NewReader([]byte(rendered)), info: info}, nil
}

// ReadDir implements fs.ReadDirFS.
func (r renderedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(r.base, name)
}

type renderedFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *renderedFile) Close() error               { return nil }

// Migrate runs the schema migrations of a SQL store.
// - If targetVersion < 0, it migrates to the latest version.
// - If targetVersion == 0, it rolls back all migrations (to initial state).
// - If targetVersion > 0, it migrates to the specified version.
// Progress is written to out.
func Migrate(sc contract.StoreConfig, targetVersion int, out io.Writer) error {
	if !sc.Backend.IsSQL() {
		return fmt.Errorf("migrations are not supported for the %s backend", sc.Backend)
	}
	if err := validateTableName(sc.CollectionName); err != nil {
		return err
	}

	driverName, dsn := driverAndDSN(sc)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", sc.Backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Each collection keeps its own version table
	migrationsTable := sc.CollectionName + "_migrations"
	var driver database.Driver
	switch sc.Backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: migrationsTable})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{MigrationsTable: migrationsTable})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migrate driver: %w", sc.Backend, err)
	}

	migrationFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}
	sourceDriver, err := iofs.New(renderedFS{base: migrationFS, tableName: sc.CollectionName, backend: sc.Backend}, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, sc.DBName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", currentVersion)
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to latest version: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			_, _ = fmt.Fprintln(out, "No migration needed. Database is already at the latest version.")
		} else {
			newVersion, _, _ := m.Version()
			_, _ = fmt.Fprintf(out, "Successfully migrated from version %d to version %d\n", currentVersion, newVersion)
		}
	case targetVersion == 0:
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back to version 0: %w", err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			_, _ = fmt.Fprintln(out, "No migration needed. Database is already at version 0")
		} else {
			_, _ = fmt.Fprintf(out, "Successfully rolled back from version %d to version 0\n", currentVersion)
		}
	default:
		err = m.Migrate(uint(targetVersion))
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to version %d: %w", targetVersion, err)
		}
		if errors.Is(err, migrate.ErrNoChange) {
			_, _ = fmt.Fprintf(out, "No migration needed. Database is already at version %d\n", targetVersion)
		} else {
			_, _ = fmt.Fprintf(out, "Successfully migrated from version %d to version %d\n", currentVersion, targetVersion)
		}
	}
	return nil
}

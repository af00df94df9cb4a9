package repostore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLStore keeps one row per repository in a relational table.
// The Makefile list is stored as a JSON document in the makefiles column.
type SQLStore struct {
	db        *sqlx.DB
	tableName string
	backend   schema.DatabaseBackend
	target    string
}

var _ contract.RepoStore = &SQLStore{} // Compile-time check

// repoRow is the table layout of a RepoEntry.
type repoRow struct {
	RepoOwner       string `db:"repo_owner"`
	RepoName        string `db:"repo_name"`
	CloneSuccessful bool   `db:"clone_successful"`
	RepoSize        int64  `db:"repo_size"`
	Compiled        bool   `db:"compiled"`
	NumMakefiles    int    `db:"num_makefiles"`
	NumBinaries     int    `db:"num_binaries"`
	Makefiles       string `db:"makefiles"`
}

// statusRow holds the aggregate counts reported by GetStatus.
type statusRow struct {
	Total     int `db:"total"`
	Compiled  int `db:"compiled"`
	Cloned    int `db:"cloned"`
	Makefiles int `db:"makefiles"`
	Binaries  int `db:"binaries"`
}

// driverAndDSN returns the database/sql driver name and connection string for sc.
func driverAndDSN(sc contract.StoreConfig) (string, string) {
	switch sc.Backend {
	case schema.MySQLBackend:
		cfg := mysql.NewConfig()
		cfg.User = sc.Username
		cfg.Passwd = sc.Password
		cfg.Net = "tcp"
		cfg.Addr = sc.Host + ":" + strconv.Itoa(sc.Port)
		cfg.DBName = sc.DBName
		cfg.ParseTime = true
		// RowsAffected must count matched rows, not changed rows
		cfg.ClientFoundRows = true
		return "mysql", cfg.FormatDSN()
	case schema.PostgreSQLBackend:
		return "pgx", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			sc.Host, sc.Port, sc.Username, sc.Password, sc.DBName)
	default: // SQLite
		return "sqlite", sc.DBName
	}
}

// NewSQLStore opens a sqlite, mysql or postgresql store and creates its table if missing.
func NewSQLStore(ctx context.Context, sc contract.StoreConfig) (*SQLStore, error) {
	if err := validateTableName(sc.CollectionName); err != nil {
		return nil, err
	}

	driverName, dsn := driverAndDSN(sc)
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", sc.Backend, err)
	}
	if sc.Backend == schema.SQLiteBackend {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", sc.Backend, err)
	}

	store := &SQLStore{
		db:        db,
		tableName: sc.CollectionName,
		backend:   sc.Backend,
		target:    sc.Target(),
	}
	query, err := createTableQuery(sc.CollectionName, sc.Backend)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", sc.CollectionName, err)
	}
	return store, nil
}

// q interpolates the quoted table name and rebinds placeholders for the driver.
func (s *SQLStore) q(format string) string {
	return s.db.Rebind(fmt.Sprintf(format, quoteTableName(s.tableName, s.backend)))
}

// insertIgnoreQuery returns the dialect's insert-if-absent statement.
func (s *SQLStore) insertIgnoreQuery() string {
	const cols = `(repo_owner, repo_name, clone_successful, repo_size, compiled, num_makefiles, num_binaries, makefiles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	switch s.backend {
	case schema.MySQLBackend:
		return s.q(`INSERT IGNORE INTO %s ` + cols)
	case schema.PostgreSQLBackend:
		return s.q(`INSERT INTO %s ` + cols + ` ON CONFLICT (repo_owner, repo_name) DO NOTHING`)
	default: // SQLite
		return s.q(`INSERT OR IGNORE INTO %s ` + cols)
	}
}

// Get returns the entry for owner/name, or nil when there is none.
func (s *SQLStore) Get(ctx context.Context, owner, name string) (*schema.RepoEntry, error) {
	var row repoRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT * FROM %s WHERE repo_owner = ? AND repo_name = ?`), owner, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", schema.RepoFullName(owner, name), err)
	}
	return row.toEntry()
}

// AddRepo records a clone attempt. An existing entry is left untouched.
func (s *SQLStore) AddRepo(ctx context.Context, owner, name string, cloneSuccessful bool, repoSize int64) error {
	_, err := s.db.ExecContext(ctx, s.insertIgnoreQuery(), owner, name, cloneSuccessful, repoSize, false, 0, 0, "[]")
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", schema.RepoFullName(owner, name), err)
	}
	return nil
}

// UpdateMakefile replaces the Makefile outcomes of an existing entry and marks it compiled.
func (s *SQLStore) UpdateMakefile(ctx context.Context, owner, name string, makefiles []schema.RepoMakefileEntry, ignoreLengthMismatch bool) error {
	if err := checkMakefiles(owner, name, makefiles); err != nil {
		return err
	}
	makefiles = normalizeMakefiles(makefiles)
	payload, err := json.Marshal(makefiles)
	if err != nil {
		return fmt.Errorf("failed to encode makefiles for %s: %w", schema.RepoFullName(owner, name), err)
	}

	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var stored int
		err := tx.GetContext(ctx, &stored, s.q(`SELECT num_makefiles FROM %s WHERE repo_owner = ? AND repo_name = ?`), owner, name)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(owner, name)
		}
		if err != nil {
			return err
		}
		if err := checkLength(owner, name, stored, len(makefiles), ignoreLengthMismatch); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			s.q(`UPDATE %s SET compiled = ?, num_makefiles = ?, num_binaries = ?, makefiles = ? WHERE repo_owner = ? AND repo_name = ?`),
			true, len(makefiles), schema.CountBinaries(makefiles), string(payload), owner, name)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", schema.RepoFullName(owner, name), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: %s matched %d rows", contract.ErrInvariantViolation, schema.RepoFullName(owner, name), n)
		}
		return nil
	})
}

// CountMakefiles sums num_makefiles over compiled entries.
func (s *SQLStore) CountMakefiles(ctx context.Context) (int, error) {
	return s.sumCompiled(ctx, "num_makefiles")
}

// CountBinaries sums num_binaries over compiled entries.
func (s *SQLStore) CountBinaries(ctx context.Context) (int, error) {
	return s.sumCompiled(ctx, "num_binaries")
}

func (s *SQLStore) sumCompiled(ctx context.Context, column string) (int, error) {
	var total int64
	query := s.q(`SELECT COALESCE(SUM(` + column + `), 0) FROM %s WHERE compiled = TRUE`)
	if err := s.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", column, err)
	}
	return int(total), nil
}

// GetStatus returns status information about the store.
func (s *SQLStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
		Target:    s.target,
	}
	var row statusRow
	query := s.q(`SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN compiled = TRUE THEN 1 ELSE 0 END), 0) AS compiled,
		COALESCE(SUM(CASE WHEN clone_successful = TRUE THEN 1 ELSE 0 END), 0) AS cloned,
		COALESCE(SUM(CASE WHEN compiled = TRUE THEN num_makefiles ELSE 0 END), 0) AS makefiles,
		COALESCE(SUM(CASE WHEN compiled = TRUE THEN num_binaries ELSE 0 END), 0) AS binaries
		FROM %s`)
	if err := s.db.GetContext(ctx, &row, query); err != nil {
		return status, fmt.Errorf("failed to get store status: %w", err)
	}
	status.TotalEntries = row.Total
	status.CompiledCount = row.Compiled
	status.ClonedCount = row.Cloned
	status.TotalMakefiles = row.Makefiles
	status.TotalBinaries = row.Binaries
	return status, nil
}

// Clear deletes every record in the table.
func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM %s`)); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", s.tableName, err)
	}
	return nil
}

// Close closes the underlying DB connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (r repoRow) toEntry() (*schema.RepoEntry, error) {
	entry := &schema.RepoEntry{
		RepoOwner:       r.RepoOwner,
		RepoName:        r.RepoName,
		CloneSuccessful: r.CloneSuccessful,
		RepoSize:        r.RepoSize,
		Compiled:        r.Compiled,
		NumMakefiles:    r.NumMakefiles,
		NumBinaries:     r.NumBinaries,
	}
	if err := json.Unmarshal([]byte(r.Makefiles), &entry.Makefiles); err != nil {
		return nil, fmt.Errorf("%w: %s: bad makefiles column: %v", contract.ErrCorruptEntry, entry.FullName(), err)
	}
	entry.Makefiles = normalizeMakefiles(entry.Makefiles)
	if err := checkEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// withTx runs fn inside a transaction and commits when it returns nil.
func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

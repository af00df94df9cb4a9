package schema

// Custom string types for type safety.
type (
	// Tag names a tracked metric in a compilation summary line.
	Tag string

	// OutputMode represents the format of the output.
	OutputMode string

	// Status represents the reconciliation status of a discovered Makefile.
	Status string

	// DatabaseBackend represents the engine behind the repository store.
	DatabaseBackend string
)

// Tracked metric tags.
const (
	TagPartial  Tag = "n_partial"
	TagBinaries Tag = "n_binaries"
	TagTotal    Tag = "n_total"
)

// TrackedTags lists the tags recorded as series, in display order.
var TrackedTags = []Tag{TagPartial, TagBinaries, TagTotal}

// All output modes supported.
const (
	CSVOut  OutputMode = "csv" // default
	TextOut OutputMode = "text"
	JSONOut OutputMode = "json"
)

// Reconciliation statuses.
const (
	SuccessStatus Status = ""
	FailedStatus  Status = "Failed"
)

// All store backends supported.
const (
	MongoBackend      DatabaseBackend = "mongodb" // default
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	MemoryBackend     DatabaseBackend = "memory"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidBackends lists all valid store backends.
var ValidBackends = map[DatabaseBackend]struct{}{
	MongoBackend:      {},
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	MemoryBackend:     {},
}

// IsSQL reports whether the backend is served by the SQL store.
func (b DatabaseBackend) IsSQL() bool {
	switch b {
	case SQLiteBackend, MySQLBackend, PostgreSQLBackend:
		return true
	default:
		return false
	}
}

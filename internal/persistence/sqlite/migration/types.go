package migration

import "time"

// Migration is a versioned SQL script.
type Migration struct {
	Version     string // numeric prefix of the file name, e.g. "0001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Package repository holds the schema and dialect helpers shared by the
// database's sub-repositories (currently just audit).
package repository

import (
	"database/sql"

	"github.com/thrasher-corp/perpvault/database"
)

// GetSQLDialect normalises the configured driver name into one of
// database's DB* constants.
func GetSQLDialect() string {
	cfg := database.DB.GetConfig()
	if cfg == nil {
		return database.DBInvalidDriver
	}
	switch cfg.Driver {
	case database.DBPostgreSQL, "postgres":
		return database.DBPostgreSQL
	case database.DBSQLite3, database.DBSQLite:
		return database.DBSQLite3
	default:
		return database.DBInvalidDriver
	}
}

const auditSchema = `CREATE TABLE IF NOT EXISTS audit_event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	identifier TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);`

// Migrate creates the repository schema if it does not already exist. It
// replaces the teacher's goose/sqlboiler migration pipeline with a single
// embedded statement, since this module ships one fixed table; see
// DESIGN.md.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(auditSchema)
	return err
}

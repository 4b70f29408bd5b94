// Package sqlite3 opens the on-disk SQLite database backing the audit log.
package sqlite3

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" sql.Driver
	"github.com/thrasher-corp/perpvault/database"
)

// Connect opens (creating if absent) the SQLite file at name, joined with
// database.DB's configured DataPath when name is relative.
func Connect(name string) (*database.Instance, error) {
	if name == "" {
		return nil, database.ErrNoDatabaseProvided
	}
	path := name
	if !filepath.IsAbs(path) && database.DB.DataPath != "" {
		path = filepath.Join(database.DB.DataPath, name)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite3: could not open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite3: could not reach %q: %w", path, err)
	}
	return &database.Instance{SQL: db, DataPath: filepath.Dir(path)}, nil
}

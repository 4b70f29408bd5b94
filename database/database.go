// Package database wraps the audit-log backing store. The engine opens and
// migrates it (Engine.OpenAuditLog); no Vault/OrderBook/Market operation
// writes to it, so it does not record the history of the in-memory state the
// core packages hold.
package database

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/thrasher-corp/perpvault/database/drivers"
)

// Supported database drivers. DBInvalidDriver is the zero value returned by
// repository.GetSQLDialect for anything unrecognised.
const (
	DBInvalidDriver = ""
	DBSQLite3       = "sqlite3"
	DBSQLite        = "sqlite"
	DBPostgreSQL    = "postgresql"
)

// ErrNoDatabaseProvided is returned when a SQLite config names no database
// file.
var ErrNoDatabaseProvided = errors.New("database: no database provided")

// ErrNilConfig guards Instance.SetConfig.
var ErrNilConfig = errors.New("database: nil config")

// Config describes which backend to connect to.
type Config struct {
	Enabled           bool
	Driver            string
	ConnectionDetails drivers.ConnectionDetails
}

// Instance wraps a live *sql.DB handle plus the config it was opened with.
type Instance struct {
	mu        sync.Mutex
	SQL       *sql.DB
	DataPath  string
	connected bool
	config    *Config
}

// DB is the process-wide database handle, mirroring the global the engine
// and repository packages share.
var DB = &Instance{}

// SetConfig stores the config an instance was (or will be) opened with.
func (i *Instance) SetConfig(c *Config) error {
	if c == nil {
		return ErrNilConfig
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.config = c
	return nil
}

// GetConfig returns the stored config, or nil if none has been set.
func (i *Instance) GetConfig() *Config {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.config
}

// IsConnected reports whether SetConnected(true) has been called.
func (i *Instance) IsConnected() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.connected
}

// SetConnected records the instance's connection state.
func (i *Instance) SetConnected(connected bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.connected = connected
}

// GetSQLite3Instance returns a fresh, unconnected Instance for SQLite use.
func GetSQLite3Instance() *Instance {
	return &Instance{}
}

// GetPostgresInstance returns a fresh, unconnected Instance for postgres
// use. No postgres driver is wired into this module; see DESIGN.md.
func GetPostgresInstance() *Instance {
	return &Instance{}
}

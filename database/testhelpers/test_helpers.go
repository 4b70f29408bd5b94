// Package testhelpers provides the database bring-up/tear-down scaffolding
// shared by the repository packages' tests.
package testhelpers

import (
	"fmt"
	"reflect"

	"github.com/thrasher-corp/perpvault/database"
	"github.com/thrasher-corp/perpvault/database/drivers"
	sqliteConn "github.com/thrasher-corp/perpvault/database/drivers/sqlite3"
	"github.com/thrasher-corp/perpvault/database/repository"
)

var (
	// TempDir holds the SQLite file created for the duration of a test run.
	TempDir string
	// PostgresTestDatabase is always left unconfigured: no postgres driver
	// is wired into this module, so any test case using it skips via
	// CheckValidConfig. See DESIGN.md.
	PostgresTestDatabase *database.Config
)

// GetConnectionDetails returns an intentionally-unconfigured postgres
// config, preserved so postgres-shaped test cases still compile and skip.
func GetConnectionDetails() *database.Config {
	return &database.Config{
		Enabled:           true,
		Driver:            database.DBPostgreSQL,
		ConnectionDetails: drivers.ConnectionDetails{},
	}
}

// ConnectToDatabase opens conn and applies the repository schema.
func ConnectToDatabase(conn *database.Config) (*database.Instance, error) {
	if err := database.DB.SetConfig(conn); err != nil {
		return nil, err
	}

	var dbConn *database.Instance
	var err error
	switch conn.Driver {
	case database.DBSQLite3, database.DBSQLite:
		if conn.ConnectionDetails.Database == "" {
			return nil, database.ErrNoDatabaseProvided
		}
		database.DB.DataPath = TempDir
		dbConn, err = sqliteConn.Connect(conn.ConnectionDetails.Database)
	default:
		return nil, fmt.Errorf("testhelpers: unsupported database driver: %q", conn.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(dbConn.SQL); err != nil {
		return nil, err
	}
	dbConn.SetConnected(true)
	database.DB.SQL = dbConn.SQL
	database.DB.SetConnected(true)
	return dbConn, nil
}

// CloseDatabase closes conn's underlying connection, if any.
func CloseDatabase(conn *database.Instance) error {
	if conn != nil && conn.SQL != nil {
		return conn.SQL.Close()
	}
	return nil
}

// CheckValidConfig reports whether config carries any non-zero connection
// detail.
func CheckValidConfig(config *drivers.ConnectionDetails) bool {
	return !reflect.DeepEqual(drivers.ConnectionDetails{}, *config)
}

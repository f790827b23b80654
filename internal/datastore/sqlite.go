package datastore

import (
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/logging"
)

// SQLiteStore implements the calibration store on SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection and runs migrations.
func (store *SQLiteStore) Open() error {
	db, connectionInfo, err := openStore(&store.Settings.Output.Calsys)
	if err != nil {
		return err
	}

	store.DB = db
	store.Logger = logging.ForService("datastore")
	store.initCaches()

	return performAutoMigration(db, store.Settings.Main.Debug, "SQLite", connectionInfo)
}

// Close closes the SQLite database connection.
func (store *SQLiteStore) Close() error {
	return closeStore(store.DB)
}

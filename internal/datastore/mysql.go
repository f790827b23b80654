package datastore

import (
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/logging"
)

// MySQLStore implements the calibration store on MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the MySQL database connection and runs migrations.
func (store *MySQLStore) Open() error {
	db, connectionInfo, err := openStore(&store.Settings.Output.Calsys)
	if err != nil {
		if logger := logging.ForService("datastore"); logger != nil {
			logger.Error("Failed to open MySQL database",
				"host", store.Settings.Output.Calsys.MySQL.Host,
				"database", store.Settings.Output.Calsys.MySQL.Database,
				"error", err)
		}
		return err
	}

	store.DB = db
	store.Logger = logging.ForService("datastore")
	store.initCaches()

	return performAutoMigration(db, store.Settings.Main.Debug, "MySQL", connectionInfo)
}

// Close closes the MySQL database connection.
func (store *MySQLStore) Close() error {
	return closeStore(store.DB)
}

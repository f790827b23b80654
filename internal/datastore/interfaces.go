// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tracklab/calsys/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines
// the operations available on the calibration store.
type Interface interface {
	Open() error
	Close() error

	// Devices
	SearchDevices(filters *DeviceFilters) ([]DeviceRecord, int64, error)
	GetDevice(id string) (Device, error)
	CreateDevice(device *Device) error
	UpdateDevice(id string, fields map[string]any) error
	DeleteDevice(id string) error

	// Calibrations
	SearchCalibrations(filters *CalibrationFilters) ([]CalibrationRecord, int64, error)
	GetCalibration(id uint) (Calibration, error)
	CreateCalibration(calibration *Calibration) error
	UpdateCalibration(id uint, fields map[string]any) error
	DeleteCalibration(id uint) error

	// Reference tables
	SearchLookup(table string, filters *ListFilters) ([]LookupRecord, int64, error)
	GetLookupEntry(table, id string) (LookupRecord, error)
	SaveLookupEntry(table string, record *LookupRecord) error
	DeleteLookupEntry(table, id string) error

	// Reports
	CalibrationDue() ([]DueRecord, error)
	CalExport() ([]CalExportRecord, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB     *gorm.DB
	Logger *slog.Logger

	// names caches full reference-table name maps for result enrichment.
	names *gocache.Cache
}

// New creates a new datastore instance based on the configured engine.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.Calsys.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.Calsys.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

const (
	nameCacheTTL     = time.Minute
	nameCacheCleanup = 5 * time.Minute
)

// initCaches prepares in-process caches. Called by the engine Open methods
// once the connection is established.
func (ds *DataStore) initCaches() {
	ds.names = gocache.New(nameCacheTTL, nameCacheCleanup)
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&Location{}, &Owner{}, &Period{}, &Source{}, &Status{}, &Type{},
		&Employee{}, &CalibratedBy{}, &Device{}, &Calibration{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}

// openStore opens a GORM connection for the given store configuration.
// Shared by the calibration store engines and the user store.
func openStore(store *conf.StoreSettings) (*gorm.DB, string, error) {
	switch {
	case store.SQLite.Enabled:
		// SQLite leaves foreign keys off unless asked; without the pragma
		// the RESTRICT constraints in the schema are inert.
		dsn := store.SQLite.Path + "?_foreign_keys=on"
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: createGormLogger()})
		if err != nil {
			return nil, "", fmt.Errorf("failed to open SQLite database: %w", err)
		}
		return db, store.SQLite.Path, nil
	case store.MySQL.Enabled:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			store.MySQL.Username, store.MySQL.Password,
			store.MySQL.Host, store.MySQL.Port, store.MySQL.Database)
		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
		if err != nil {
			return nil, "", fmt.Errorf("failed to open MySQL database: %w", err)
		}
		return db, fmt.Sprintf("%s@%s:%s/%s", store.MySQL.Username, store.MySQL.Host, store.MySQL.Port, store.MySQL.Database), nil
	default:
		return nil, "", fmt.Errorf("no database engine enabled")
	}
}

// closeStore closes the underlying SQL connection of a GORM database.
func closeStore(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}

// config.go: settings struct and functions to load application settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// MainSettings contains general application settings.
type MainSettings struct {
	Name  string // application instance name
	Debug bool   // true to enable debug log level
	Log   LogSettings
}

// LogSettings controls the optional file log output.
type LogSettings struct {
	Enabled bool
	Path    string
}

// WebServerSettings contains the HTTP listener configuration.
type WebServerSettings struct {
	Host string
	Port string
}

// SecuritySettings contains session and authentication configuration.
type SecuritySettings struct {
	SessionSecret   string // secret for session cookie signing
	SessionDuration int    // session lifetime in seconds
	SecureCookies   bool   // require HTTPS for session cookies
}

// SQLiteSettings configures a SQLite-backed store.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings configures a MySQL-backed store.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

// StoreSettings selects the engine backing a relational store. Exactly one
// of SQLite or MySQL should be enabled.
type StoreSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// OutputSettings holds the two persisted stores: the identity/settings
// database and the calibration schema database. They may use different
// engines.
type OutputSettings struct {
	Auth   StoreSettings
	Calsys StoreSettings
}

// DefaultsSettings holds tunable query defaults.
type DefaultsSettings struct {
	ItemsPerPage int // page size used when the caller and user settings supply none
}

// Settings is the root configuration for the calsys service.
type Settings struct {
	Main      MainSettings
	WebServer WebServerSettings
	Security  SecuritySettings
	Output    OutputSettings
	Defaults  DefaultsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a
// Settings instance and stores it as the process-wide instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, loading it if needed.
func Setting() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	settings, err := Load()
	if err != nil {
		return nil
	}
	return settings
}

// initViper initializes viper with default values and reads the
// configuration file from the standard search paths.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("CALSYS")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file, run with defaults and env overrides.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the list of directories searched for the
// configuration file: working directory first, then the user config dir.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	configDir, err := os.UserConfigDir()
	if err == nil {
		paths = append(paths, filepath.Join(configDir, "calsys"))
	}

	return paths, nil
}

// ValidateSettings checks settings for invalid combinations.
func ValidateSettings(settings *Settings) error {
	if settings.Output.Calsys.SQLite.Enabled && settings.Output.Calsys.MySQL.Enabled {
		return fmt.Errorf("calsys store: only one of sqlite and mysql may be enabled")
	}
	if settings.Output.Auth.SQLite.Enabled && settings.Output.Auth.MySQL.Enabled {
		return fmt.Errorf("auth store: only one of sqlite and mysql may be enabled")
	}
	if settings.Defaults.ItemsPerPage < 1 {
		return fmt.Errorf("defaults.itemsperpage must be positive")
	}
	return nil
}

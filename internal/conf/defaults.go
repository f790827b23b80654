// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("main.name", "calsys")
	viper.SetDefault("main.debug", false)
	viper.SetDefault("main.log.enabled", false)
	viper.SetDefault("main.log.path", "calsys.log")

	viper.SetDefault("webserver.host", "0.0.0.0")
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.sessionduration", 7*24*3600)
	viper.SetDefault("security.securecookies", false)

	viper.SetDefault("output.auth.sqlite.enabled", true)
	viper.SetDefault("output.auth.sqlite.path", "auth.db")
	viper.SetDefault("output.auth.mysql.enabled", false)

	viper.SetDefault("output.calsys.sqlite.enabled", true)
	viper.SetDefault("output.calsys.sqlite.path", "calsys.db")
	viper.SetDefault("output.calsys.mysql.enabled", false)
	viper.SetDefault("output.calsys.mysql.host", "localhost")
	viper.SetDefault("output.calsys.mysql.port", "3306")

	viper.SetDefault("defaults.itemsperpage", 10)
}

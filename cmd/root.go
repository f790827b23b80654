package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tracklab/calsys/cmd/migrate"
	"github.com/tracklab/calsys/cmd/serve"
	"github.com/tracklab/calsys/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calsys",
		Short: "Calsys calibration record management service",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		migrate.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines the global flags and binds them to viper so
// command-line arguments take precedence over the config file.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Main.Debug, "debug", "d", settings.Main.Debug, "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.WebServer.Host, "host", settings.WebServer.Host, "HTTP listen address")
	cmd.PersistentFlags().StringVar(&settings.WebServer.Port, "port", settings.WebServer.Port, "HTTP listen port")

	_ = viper.BindPFlag("main.debug", cmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("webserver.host", cmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("webserver.port", cmd.PersistentFlags().Lookup("port"))
}

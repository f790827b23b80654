package main

import (
	"log/slog"
	"os"

	"github.com/tracklab/calsys/cmd"
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Failed to load configuration", "error", err)
	}
	if settings.Main.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

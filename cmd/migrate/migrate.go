// Package migrate implements the schema migration command.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tracklab/calsys/internal/conf"
	"github.com/tracklab/calsys/internal/datastore"
	"github.com/tracklab/calsys/internal/logging"
)

// Command returns the migrate subcommand. Opening either store runs its
// auto-migrations, so this just opens and closes both.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(settings)
		},
	}
}

func runMigrations(settings *conf.Settings) error {
	logger := logging.ForService("migrate")

	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no calsys database engine enabled")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("migrating calsys store: %w", err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("closing calsys store: %w", err)
	}

	users, err := datastore.NewUserStore(settings)
	if err != nil {
		return fmt.Errorf("migrating auth store: %w", err)
	}
	if err := users.Close(); err != nil {
		return fmt.Errorf("closing auth store: %w", err)
	}

	logger.Info("Migrations completed")
	return nil
}

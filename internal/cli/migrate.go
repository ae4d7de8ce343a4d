package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anyaat/Atlas/internal/config"
	"github.com/anyaat/Atlas/internal/infrastructure/database"
	logsetup "github.com/anyaat/Atlas/internal/infrastructure/logging"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply pending PostgreSQL migrations",
		Long:          "Apply pending PostgreSQL migrations. The SQLite store creates its schema when opened.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "load configuration", err)
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return NewExitError(ExitCommandError, fmt.Sprintf("migrate needs STORAGE_DRIVER=%s, got %s", config.DriverPostgres, cfg.StorageDriver))
			}
			level := cfg.LogLevel
			if rootOpts.Verbose {
				level = "debug"
			}
			if err := database.RunMigrations(cfg.DatabaseURL, logsetup.New(level, cfg.LogPretty)); err != nil {
				return WrapExitError(ExitCommandError, "migrate", err)
			}
			return nil
		},
	}
}

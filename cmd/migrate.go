package cmd

import (
	"log/slog"

	"ordertrack/internal/adapters/out/postgres"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres tables",
		RunE: func(*cobra.Command, []string) error {
			cfg := LoadConfig(v)
			db, err := OpenDatabase(cfg)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err = postgres.Migrate(db); err != nil {
				return err
			}
			slog.Info("Migration complete", "database", cfg.DBName)
			return nil
		},
	}
}

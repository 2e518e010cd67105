package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phpayroll/internal/platform/config"
	"phpayroll/internal/platform/db"
	"phpayroll/internal/platform/logging"
)

func migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations to DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			logger, err := logging.New(cfg.Environment)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := db.Migrate(ctx, pool, dir); err != nil {
				return err
			}
			logger.Info("migrations applied", zap.String("dir", dir))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/onboard-sync/internal/platform/config"
	"github.com/ogurasousui/onboard-sync/internal/platform/logging"
	"github.com/spf13/cobra"
)

func newMigrateCommand(cfgPath *string) *cobra.Command {
	var migrationsDir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|drop|version]",
		Short:     "Apply database schema migrations",
		Long:      "Runs schema migrations against the configured postgres database. Defaults to up.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "drop", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) > 0 {
				action = args[0]
			}

			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level)

			m, err := openMigrator(migrationsDir, cfg.Database.DSN())
			if err != nil {
				return err
			}
			defer m.Close()

			switch action {
			case "up":
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate up: %w", err)
				}
			case "down":
				if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate down: %w", err)
				}
			case "drop":
				if err := m.Drop(); err != nil {
					return fmt.Errorf("migrate drop: %w", err)
				}
			case "version":
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migration applied")
					return nil
				}
				if err != nil {
					return fmt.Errorf("migrate version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			default:
				return fmt.Errorf("unsupported action %q", action)
			}

			logger.Info("migration completed", "action", action, "dir", migrationsDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsDir, "dir", "assets/migrations", "directory containing migration files")
	return cmd
}

// openMigrator は移行ファイルのディレクトリを file:// ソースとして解決し、
// migrate インスタンスを生成します。
func openMigrator(dir, dsn string) (*migrate.Migrate, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

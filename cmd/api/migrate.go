package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to run migrations")
	}
	if err := rt.migrate(cmd.Context()); err != nil {
		return err
	}
	rt.logger.Info("migrate up: ok", zap.String("env", rt.cfg.App.Env))
	return nil
}

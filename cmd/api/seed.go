package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/service"
)

var seedRandom int64

var seedCmd = &cobra.Command{
	Use:   "seed <count>",
	Short: "Populate the database with sample users and tickets",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().Int64Var(&seedRandom, "random-seed", 0, "seed for the sample generator (default: current time)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		return fmt.Errorf("count must be a positive integer, got %q", args[0])
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Postgres.RunMigrations {
		if err := rt.migrate(ctx); err != nil {
			return err
		}
	}

	seed := seedRandom
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seeder := service.NewSeeder(rt.store, rt.accounts(), rt.references(), seed, rt.logger)
	result, err := seeder.Seed(ctx, count, rt.cfg.Tickets.DefaultPriority, rt.cfg.Tickets.DefaultStatus)
	if err != nil {
		return err
	}

	rt.logger.Info("seed complete",
		zap.Int("users", result.Users),
		zap.Int("tickets", result.Tickets),
		zap.Int("comments", result.Comments),
		zap.Int("escalations", result.Escalations),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Successfully created %d tickets\n", result.Tickets)
	return nil
}

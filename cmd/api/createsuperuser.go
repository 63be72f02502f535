package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/service"
)

var superuserInput service.AccountInput

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a superuser account",
	RunE:  runCreateSuperuser,
}

func init() {
	flags := createSuperuserCmd.Flags()
	flags.StringVar(&superuserInput.Email, "email", "", "email address")
	flags.StringVar(&superuserInput.Username, "username", "", "username")
	flags.StringVar(&superuserInput.Name, "name", "", "display name")
	flags.StringVar(&superuserInput.Password, "password", "", "password")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("password")
}

func runCreateSuperuser(cmd *cobra.Command, _ []string) error {
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

	in := superuserInput
	user, err := rt.accounts().CreateSuperuser(ctx, in.Email, in.Username, in.Name, in.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %d)\n", user.Email, user.ID)
	return nil
}

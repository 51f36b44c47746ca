package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/scanledger/internal/remote"
)

// NewMigrateRemoteCommand creates the migrate-remote command.
func NewMigrateRemoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate-remote",
		Short:         "Apply the impact-log schema migrations to the Postgres remote",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if cfg.Remote.Driver != "postgres" {
				return NewExitError(ExitCommandError, "migrate-remote requires remote.driver postgres")
			}

			db, err := remote.OpenDB(ctx, cfg.Remote.DSN)
			if err != nil {
				return notConfigured("remote", err)
			}
			defer db.Close()

			if err := remote.Migrate(ctx, db); err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Success("remote schema up to date")
		},
	}
}

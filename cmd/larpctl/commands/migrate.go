package commands

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/larp-planner/internal/printer"
)

func newMigrateCommand(backend Backend) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Long:  "Creates every planner table that does not exist yet. Safe to run repeatedly.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := backend.Migrate(cmd.Context()); err != nil {
				return printer.Error(cmd.ErrOrStderr(), "Migration failed", err.Error(),
					"check DB_HOST, DB_PORT, DB_USER and DB_NAME")
			}
			_, err := cmd.OutOrStdout().Write([]byte("✓ schema up to date\n"))
			return err
		},
	}
}

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/larp-planner/internal/printer"
	"github.com/iliyamo/larp-planner/internal/repository"
	"github.com/iliyamo/larp-planner/internal/scheduler"
)

func newRescanCommand(backend Backend) *cobra.Command {
	var (
		larpID uint64
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "rescan",
		Short: "Re-evaluate every event of a LARP for conflicts",
		Long: `Runs the conflict detector over each non-cancelled event, one transaction
per event. New conflicts are recorded; open ones are left as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (larpID == 0) == !all {
				return printer.Error(cmd.ErrOrStderr(), "Nothing to re-scan",
					"Choose exactly one target.", "pass --larp <id>", "pass --all")
			}
			svc, err := backend.Service(cmd.Context())
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "Cannot open planner database", err.Error())
			}
			var reports []scheduler.RescanReport
			if all {
				reports, err = svc.RescanAll(cmd.Context())
			} else {
				var rep scheduler.RescanReport
				rep, err = svc.RescanLarp(cmd.Context(), larpID)
				reports = append(reports, rep)
			}
			if errors.Is(err, repository.ErrLarpNotFound) {
				return printer.Error(cmd.ErrOrStderr(), "LARP not found", fmt.Sprintf("No LARP with id %d.", larpID))
			}
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "Re-scan failed", err.Error())
			}
			for _, rep := range reports {
				if err := printer.Rescan(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&larpID, "larp", 0, "LARP id to re-scan")
	cmd.Flags().BoolVar(&all, "all", false, "re-scan every LARP")
	return cmd
}

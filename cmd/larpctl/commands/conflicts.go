package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/larp-planner/internal/printer"
	"github.com/iliyamo/larp-planner/internal/repository"
)

func newConflictsCommand(backend Backend) *cobra.Command {
	var (
		larpID uint64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List unresolved conflicts of a LARP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := backend.Service(cmd.Context())
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "Cannot open planner database", err.Error())
			}
			views, err := svc.ListUnresolvedConflicts(cmd.Context(), larpID)
			if errors.Is(err, repository.ErrLarpNotFound) {
				return printer.Error(cmd.ErrOrStderr(), "LARP not found", fmt.Sprintf("No LARP with id %d.", larpID))
			}
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "Listing conflicts failed", err.Error())
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			}
			return printer.Conflicts(cmd.OutOrStdout(), views)
		},
	}
	cmd.Flags().Uint64Var(&larpID, "larp", 0, "LARP id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("larp")
	return cmd
}

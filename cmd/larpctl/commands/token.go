package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/larp-planner/internal/printer"
	"github.com/iliyamo/larp-planner/internal/utils"
)

func newTokenCommand() *cobra.Command {
	var (
		userID uint64
		role   string
		ttl    int
		secret string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the planning API",
		Long: `Signs an HS256 access token for a user. The secret defaults to JWT_SECRET
and must match the server's.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if userID == 0 {
				return printer.Error(cmd.ErrOrStderr(), "Missing user", "The token subject must be a non-zero user id.", "pass --user <id>")
			}
			role = strings.ToUpper(strings.TrimSpace(role))
			if role != utils.RoleOrganizer && role != utils.RoleAdmin {
				return printer.Error(cmd.ErrOrStderr(), "Unsupported role",
					fmt.Sprintf("Role %q cannot use the planning API.", role),
					"use --role ORGANIZER", "use --role ADMIN")
			}
			tok, err := utils.NewAccessToken(secret, userID, role, ttl)
			if err != nil {
				return printer.Error(cmd.ErrOrStderr(), "Cannot issue token", err.Error(), "set JWT_SECRET or pass --secret")
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", tok.Token, tok.Exp.UTC().Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "user id placed in the sub claim")
	cmd.Flags().StringVar(&role, "role", utils.RoleOrganizer, "ORGANIZER or ADMIN")
	cmd.Flags().IntVar(&ttl, "ttl", 60, "lifetime in minutes")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default $JWT_SECRET)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/uniformhub-backend/internal/users"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/enums"
)

func newPromoteCmd(open opener) *cobra.Command {
	var email string
	var demote bool
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant the admin role to an existing user",
		Long: `Grant the admin role to the user registered with --email. The user must
have signed in at least once so their record exists. Use --demote to
return an admin to the regular user role.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			conn, closeDB, err := open(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer closeDB()

			role := enums.UserRoleAdmin
			if demote {
				role = enums.UserRoleUser
			}
			repo := users.NewRepository(conn)
			user, err := repo.FindByEmail(cmd.Context(), email)
			if db.IsNotFound(err) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}
			if user.Role == role {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already has role %s\n", email, role)
				return nil
			}
			if err := repo.SetRole(cmd.Context(), user.ID, role); err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user to promote")
	cmd.Flags().BoolVar(&demote, "demote", false, "revoke the admin role instead")
	return cmd
}

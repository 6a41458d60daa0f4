package cmd

import (
	"fmt"

	"github.com/drivespace/drivespace/models"
	"github.com/spf13/cobra"
)

// NewUserCmd creates the user command
func NewUserCmd(dataDirectory *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	cmd.AddCommand(
		newUserCreateCmd(dataDirectory),
		newUserListCmd(dataDirectory),
		newResetPasswordCmd(dataDirectory),
		newPromoteCmd(dataDirectory),
		newSetActiveCmd(dataDirectory, "deactivate", false),
		newSetActiveCmd(dataDirectory, "activate", true),
	)

	return cmd
}

func newUserCreateCmd(dataDirectory *string) *cobra.Command {
	var email string
	var admin bool

	cmd := &cobra.Command{
		Use:   "create [username] [password]",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			username, password := args[0], args[1]

			withDB(dataDirectory, cmd, func() error {
				if err := models.ValidatePassword(password, username); err != nil {
					return fmt.Errorf("Password rejected: %w", err)
				}
				user, err := models.CreateUser(username, password, email)
				if err != nil {
					return fmt.Errorf("Failed to create user '%s': %w", username, err)
				}
				if admin && !user.IsAdmin() {
					if err := models.UpdateUserRole(username, models.RoleAdmin); err != nil {
						return fmt.Errorf("Failed to promote user '%s': %w", username, err)
					}
					user.Role = models.RoleAdmin
				}
				cmd.Printf("User '%s' created with role %s\n", user.Username, user.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the user")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")

	return cmd
}

func newUserListCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				users, err := models.GetUsers()
				if err != nil {
					return fmt.Errorf("Failed to get users: %w", err)
				}
				if len(users) == 0 {
					cmd.Println("No users found.")
					return nil
				}
				cmd.Println("Users:")
				for _, user := range users {
					status := "active"
					if !user.Active {
						status = "inactive"
					}
					sessions, err := models.GetUserSessions(user.Username)
					if err != nil {
						return fmt.Errorf("Failed to get sessions for '%s': %w", user.Username, err)
					}
					cmd.Printf("  %s (%s, %s, sessions: %d)\n", user.Username, user.Role, status, len(sessions))
				}
				return nil
			})
		},
	}
}

func newResetPasswordCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [username] [new-password]",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			username := args[0]
			newPassword := args[1]

			withDB(dataDirectory, cmd, func() error {
				if err := models.ResetUserPassword(username, newPassword); err != nil {
					return fmt.Errorf("Failed to reset password for user '%s': %w", username, err)
				}
				cmd.Printf("Password reset successfully for user '%s'\n", username)
				return nil
			})
		},
	}
}

func newPromoteCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "promote [username]",
		Short: "Grant a user the admin role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			username := args[0]

			withDB(dataDirectory, cmd, func() error {
				if err := models.UpdateUserRole(username, models.RoleAdmin); err != nil {
					return fmt.Errorf("Failed to promote user '%s': %w", username, err)
				}
				cmd.Printf("User '%s' is now an admin\n", username)
				return nil
			})
		},
	}
}

func newSetActiveCmd(dataDirectory *string, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [username]",
		Short: fmt.Sprintf("Mark a user account as %sd", use),
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			username := args[0]

			withDB(dataDirectory, cmd, func() error {
				if err := models.SetUserActive(username, active); err != nil {
					return fmt.Errorf("Failed to %s user '%s': %w", use, username, err)
				}
				cmd.Printf("User '%s' %sd\n", username, use)
				return nil
			})
		},
	}
}

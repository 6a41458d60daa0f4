package cmd

import (
	"fmt"
	"strconv"

	"github.com/drivespace/drivespace/models"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd(dataDirectory *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(
		newMigrateUpCmd(dataDirectory),
		newMigrateDownCmd(dataDirectory),
		newMigrateStatusCmd(dataDirectory),
	)

	return cmd
}

// parseMigrationTarget turns "all" into 0 and anything else into a version.
func parseMigrationTarget(arg string) (int, error) {
	if arg == "all" {
		return 0, nil
	}
	version, err := strconv.Atoi(arg)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("invalid version number: %s", arg)
	}
	return version, nil
}

func newMigrateUpCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up [version|all]",
		Short: "Run migrations up to a specific version or all pending migrations",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				version, err := parseMigrationTarget(args[0])
				if err != nil {
					return err
				}
				if err := models.MigrateUp(version); err != nil {
					return fmt.Errorf("Migration failed: %w", err)
				}
				current, err := models.CurrentMigrationVersion()
				if err != nil {
					return err
				}
				cmd.Printf("Database is at migration %d\n", current)
				return nil
			})
		},
	}
}

func newMigrateDownCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "down [version|all]",
		Short: "Rollback migrations down to a specific version or rollback all migrations",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				version, err := parseMigrationTarget(args[0])
				if err != nil {
					return err
				}
				if err := models.MigrateDown(version); err != nil {
					return fmt.Errorf("Rollback failed: %w", err)
				}
				current, err := models.CurrentMigrationVersion()
				if err != nil {
					return err
				}
				cmd.Printf("Database is at migration %d\n", current)
				return nil
			})
		},
	}
}

func newMigrateStatusCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied and latest migration versions",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				current, err := models.CurrentMigrationVersion()
				if err != nil {
					return err
				}
				latest, err := models.LatestMigrationVersion()
				if err != nil {
					return err
				}
				cmd.Printf("Applied: %d\nLatest:  %d\n", current, latest)
				return nil
			})
		},
	}
}

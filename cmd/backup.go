package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/utils"
	"github.com/spf13/cobra"
)

// NewBackupCmd creates the backup command
func NewBackupCmd(dataDirectory, backupDirectory *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Database backup and restore commands",
	}

	cmd.PersistentFlags().StringVar(backupDirectory, "backup-directory", "", "Directory holding backups (default <data-directory>/backups)")

	cmd.AddCommand(
		newBackupCreateCmd(dataDirectory, backupDirectory),
		newBackupRestoreCmd(dataDirectory, backupDirectory),
		newBackupListCmd(dataDirectory, backupDirectory),
	)

	return cmd
}

func resolveBackupDirectory(dataDirectory, backupDirectory string) string {
	if backupDirectory != "" {
		return backupDirectory
	}
	return filepath.Join(dataDirectory, "backups")
}

func newBackupCreateCmd(dataDirectory, backupDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new database backup",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				backupPath, err := models.CreateBackup(resolveBackupDirectory(*dataDirectory, *backupDirectory))
				if err != nil {
					return fmt.Errorf("Failed to create backup: %w", err)
				}
				cmd.Printf("Backup created successfully: %s\n", backupPath)
				return nil
			})
		},
	}
}

func newBackupRestoreCmd(dataDirectory, backupDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Restore database from a backup file",
		Long:  `Restore the database from a backup file. Stop the server before restoring.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			backupPath := args[0]
			if !filepath.IsAbs(backupPath) && filepath.Dir(backupPath) == "." {
				backupPath = filepath.Join(resolveBackupDirectory(*dataDirectory, *backupDirectory), backupPath)
			}

			withDB(dataDirectory, cmd, func() error {
				if err := models.RestoreBackup(backupPath, *dataDirectory); err != nil {
					return fmt.Errorf("Failed to restore backup: %w", err)
				}
				cmd.Printf("Backup restored successfully from: %s\n", backupPath)
				return nil
			})
		},
	}
}

func newBackupListCmd(dataDirectory, backupDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available backup files",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := models.ListBackups(resolveBackupDirectory(*dataDirectory, *backupDirectory))
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			if len(backups) == 0 {
				cmd.Println("No backups found")
				return nil
			}

			cmd.Println("Available backups:")
			for _, backup := range backups {
				cmd.Printf("  %s (%s, %s)\n", backup.Filename, utils.HumanBytes(backup.Size), backup.Created.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/utils"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd(dataDirectory *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Site settings management commands",
	}

	cmd.AddCommand(
		newConfigShowCmd(dataDirectory),
		newConfigSetCmd(dataDirectory),
	)

	return cmd
}

func printAppConfig(cmd *cobra.Command, cfg models.AppConfig) {
	cmd.Printf("allow-registration: %t\n", cfg.AllowRegistration)
	cmd.Printf("require-captcha:    %t\n", cfg.RequireCaptcha)
	cmd.Printf("max-users:          %d\n", cfg.MaxUsers)
	cmd.Printf("max-upload-bytes:   %d (%s)\n", cfg.MaxUploadBytes, utils.HumanBytes(cfg.MaxUploadBytes))
}

func newConfigShowCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current site settings",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				cfg, err := models.GetAppConfig()
				if err != nil {
					return fmt.Errorf("Failed to load settings: %w", err)
				}
				printAppConfig(cmd, cfg)
				return nil
			})
		},
	}
}

func newConfigSetCmd(dataDirectory *string) *cobra.Command {
	var (
		allowRegistration bool
		requireCaptcha    bool
		maxUsers          int64
		maxUploadBytes    int64
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change site settings; flags that are not given keep their value",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				cfg, err := models.GetAppConfig()
				if err != nil {
					return fmt.Errorf("Failed to load settings: %w", err)
				}

				flags := cmd.Flags()
				if flags.Changed("allow-registration") {
					cfg.AllowRegistration = allowRegistration
				}
				if flags.Changed("require-captcha") {
					cfg.RequireCaptcha = requireCaptcha
				}
				if flags.Changed("max-users") {
					cfg.MaxUsers = maxUsers
				}
				if flags.Changed("max-upload-bytes") {
					cfg.MaxUploadBytes = maxUploadBytes
				}

				updated, err := models.UpdateAppConfig(cfg)
				if err != nil {
					return fmt.Errorf("Failed to save settings: %w", err)
				}
				cmd.Println("Settings saved")
				printAppConfig(cmd, updated)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&allowRegistration, "allow-registration", true, "Allow visitors to create accounts")
	cmd.Flags().BoolVar(&requireCaptcha, "require-captcha", false, "Require a captcha on the registration form")
	cmd.Flags().Int64Var(&maxUsers, "max-users", 0, "Maximum number of accounts (0 for unlimited)")
	cmd.Flags().Int64Var(&maxUploadBytes, "max-upload-bytes", 0, "Largest accepted upload in bytes")

	return cmd
}

package cmd

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

// DefaultPort is used when neither --port nor PORT is set.
const DefaultPort = "3000"

// defaultDataDirectory honours DRIVESPACE_DATA_DIR and otherwise picks the
// per-user application data location of the OS.
func defaultDataDirectory() string {
	if envDataDir := os.Getenv("DRIVESPACE_DATA_DIR"); envDataDir != "" {
		return envDataDir
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "drivespace")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "drivespace")
	case "plan9":
		return filepath.Join(os.Getenv("home"), "drivespace")
	default:
		return filepath.Join(os.Getenv("HOME"), "drivespace")
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// setLogLevel maps debug, warn and error onto the fiber logger; anything
// else means info.
func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.LevelDebug)
	case "warn":
		log.SetLevel(log.LevelWarn)
	case "error":
		log.SetLevel(log.LevelError)
	default:
		log.SetLevel(log.LevelInfo)
	}
}

// NewRootCmd builds the drivespace command tree. Running it without a
// subcommand starts the server.
func NewRootCmd(version string, assets fs.FS) *cobra.Command {
	var dataDirectory, port, logLevel, backupDirectory string

	root := &cobra.Command{
		Use:           "drivespace",
		Short:         "Self-hosted file workspace",
		Version:       version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(cmd.Context(), dataDirectory, port, assets)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&dataDirectory, "data-directory", defaultDataDirectory(), "Path to the data directory")
	flags.StringVar(&port, "port", envOrDefault("PORT", DefaultPort), "Port to run the server on")
	flags.StringVar(&logLevel, "log-level", envOrDefault("LOG_LEVEL", "info"), "Set the log level (debug, info, warn, error)")

	root.AddCommand(
		NewServeCmd(&dataDirectory, &port, assets),
		NewMigrateCmd(&dataDirectory),
		NewUserCmd(&dataDirectory),
		NewConfigCmd(&dataDirectory),
		NewBackupCmd(&dataDirectory, &backupDirectory),
		NewStorageCmd(&dataDirectory),
		NewVersionCmd(version),
	)

	return root
}

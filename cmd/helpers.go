package cmd

import (
	"os"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/spf13/cobra"
)

// withDB initializes the database connection (without auto-migration), calls fn,
// and ensures models.Close() is called afterward. If initialization or fn fails,
// the error is printed and the process exits with code 1.
func withDB(dataDirectory *string, cmd *cobra.Command, fn func() error) {
	if err := models.InitializeWithMigration(*dataDirectory, false); err != nil {
		cmd.PrintErrf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer models.Close()

	if err := fn(); err != nil {
		cmd.PrintErrf("%v\n", err)
		os.Exit(1)
	}
}

// withStorage opens the backend configured through DRIVESPACE_STORAGE_*
// variables, calls fn, and closes it again.
func withStorage(dataDirectory string, fn func(filestore.Backend) error) error {
	config, err := filestore.ParseConfigFromEnv(dataDirectory)
	if err != nil {
		return err
	}
	backend, err := config.Open()
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(backend)
}

package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drivespace/drivespace/embedded"
	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/handlers"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/scheduler"
	"github.com/drivespace/drivespace/utils/email"
	"github.com/drivespace/drivespace/views"
	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command
func NewServeCmd(dataDirectory, port *string, assets fs.FS) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(cmd.Context(), *dataDirectory, *port, assets)
		},
	}
}

// Serve opens the database and storage backend, starts the maintenance jobs
// and serves HTTP on port until ctx is cancelled or the process is signalled.
func Serve(ctx context.Context, dataDirectory, port string, assets fs.FS) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting drivespace with data directory '%s'", dataDirectory)

	if err := models.Initialize(dataDirectory); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := models.Close(); err != nil {
			log.Errorf("Failed to close database: %v", err)
		}
	}()

	storageConfig, err := filestore.ParseConfigFromEnv(dataDirectory)
	if err != nil {
		return fmt.Errorf("invalid storage configuration: %w", err)
	}
	backend, err := storageConfig.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", storageConfig.BackendType, err)
	}
	defer backend.Close()
	log.Infof("Storing files in the %s backend", backend.Name())

	if os.Getenv("DRIVESPACE_BLOCK_DISPOSABLE_EMAIL") == "true" {
		go func() {
			if err := email.Fetch(ctx, email.DefaultBlocklistURL); err != nil {
				log.Warnf("Disposable email screening disabled: %v", err)
			}
		}()
	}

	embedded.Init(views.Templates(), assets)
	app := handlers.NewApp(handlers.Options{Storage: backend})

	scheduler.InitializeMaintenanceScheduler(backend)
	defer scheduler.StopMaintenanceScheduler()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Listening on :%s", port)
		errCh <- app.Listen(":" + port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/scheduler"
	"github.com/spf13/cobra"
)

// NewStorageCmd creates the storage command
func NewStorageCmd(dataDirectory *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "File storage commands",
	}

	cmd.AddCommand(
		newStorageMigrateCmd(dataDirectory),
		newStorageAuditCmd(dataDirectory),
	)

	return cmd
}

func newStorageMigrateCmd(dataDirectory *string) *cobra.Command {
	var sourceBackend string
	var destBackend string
	var sourceConfig map[string]string
	var destConfig map[string]string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every stored file from one backend to another",
		Long: `Copy the content of every file record from one backend to another.
Supported backends: local, sftp, s3. Point DRIVESPACE_STORAGE_* at the
destination afterwards.`,
	}

	cmd.Flags().StringVar(&sourceBackend, "from", "", "Source backend type (local, sftp, s3)")
	cmd.Flags().StringVar(&destBackend, "to", "", "Destination backend type (local, sftp, s3)")
	cmd.Flags().StringToStringVar(&sourceConfig, "source-config", nil, "Source backend configuration (key=value pairs)")
	cmd.Flags().StringToStringVar(&destConfig, "dest-config", nil, "Destination backend configuration (key=value pairs)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Copy objects that already exist at the destination")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	cmd.Run = func(cmd *cobra.Command, args []string) {
		withDB(dataDirectory, cmd, func() error {
			source, err := openBackend(sourceBackend, sourceConfig, *dataDirectory)
			if err != nil {
				return fmt.Errorf("Failed to create source backend: %w", err)
			}
			defer source.Close()

			dest, err := openBackend(destBackend, destConfig, *dataDirectory)
			if err != nil {
				return fmt.Errorf("Failed to create destination backend: %w", err)
			}
			defer dest.Close()

			if err := migrateBackends(cmd.Context(), source, dest, overwrite, cmd); err != nil {
				return fmt.Errorf("Migration failed: %w", err)
			}
			cmd.Println("Migration completed successfully!")
			return nil
		})
	}

	return cmd
}

// backendConfig builds a storage configuration from --source-config or
// --dest-config key=value pairs.
func backendConfig(backendType string, values map[string]string, dataDir string) (*filestore.Config, error) {
	config := &filestore.Config{BackendType: backendType}

	switch backendType {
	case filestore.BackendLocal:
		config.LocalBasePath = values["path"]
		if config.LocalBasePath == "" {
			config.LocalBasePath = filepath.Join(dataDir, "files")
		}

	case filestore.BackendSFTP:
		port := 22
		if raw := values["port"]; raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid SFTP port: %w", err)
			}
			port = p
		}
		config.SFTP = filestore.SFTPConfig{
			Host:     values["host"],
			Port:     port,
			Username: values["username"],
			Password: values["password"],
			KeyFile:  values["key_file"],
			HostKey:  values["host_key"],
			BasePath: values["base_path"],
		}

	case filestore.BackendS3:
		config.S3 = filestore.S3Config{
			Bucket:       values["bucket"],
			Region:       values["region"],
			Endpoint:     values["endpoint"],
			BasePath:     values["base_path"],
			UsePathStyle: values["path_style"] == "true",
		}

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}

	return config, config.Validate()
}

func openBackend(backendType string, values map[string]string, dataDir string) (filestore.Backend, error) {
	config, err := backendConfig(backendType, values, dataDir)
	if err != nil {
		return nil, err
	}
	return config.Open()
}

func migrateBackends(ctx context.Context, source, dest filestore.Backend, overwrite bool, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	objects, err := models.GetAllStoredObjects()
	if err != nil {
		return fmt.Errorf("failed to list file records: %w", err)
	}

	total := len(objects)
	cmd.Printf("Found %d files to migrate\n", total)

	migrated, skipped := 0, 0
	for i, obj := range objects {
		key := obj.Key
		if !overwrite {
			exists, err := dest.Exists(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to check %s: %w", key, err)
			}
			if exists {
				skipped++
				continue
			}
		}

		if err := filestore.Copy(ctx, source, dest, filestore.Object{Key: key, Size: obj.Size, ContentType: obj.ContentType}); err != nil {
			return err
		}
		migrated++
		cmd.Printf("Progress: %d/%d %s\n", i+1, total, key)
	}

	cmd.Printf("Copied %d files, skipped %d already present\n", migrated, skipped)
	return nil
}

func newStorageAuditCmd(dataDirectory *string) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Compare file records with the configured storage backend",
		Run: func(cmd *cobra.Command, args []string) {
			withDB(dataDirectory, cmd, func() error {
				return withStorage(*dataDirectory, func(backend filestore.Backend) error {
					ctx := cmd.Context()
					if ctx == nil {
						ctx = context.Background()
					}
					report, err := scheduler.AuditStorage(ctx, backend)
					if err != nil {
						return err
					}

					cmd.Printf("Orphaned objects: %d\n", len(report.Orphaned))
					for _, key := range report.Orphaned {
						cmd.Printf("  %s\n", key)
					}
					cmd.Printf("Missing objects:  %d\n", len(report.Missing))
					for _, key := range report.Missing {
						cmd.Printf("  %s\n", key)
					}
					return nil
				})
			})
		},
	}
}

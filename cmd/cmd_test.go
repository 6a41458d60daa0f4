package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command against dataDir and returns its output.
func run(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	root := NewRootCmd("test", fstest.MapFS{})
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--data-directory", dataDir, "--log-level", "error"))
	require.NoError(t, root.Execute(), buf.String())
	return buf.String()
}

func subcommandNames(cmd *cobra.Command) []string {
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	return names
}

func TestRootCmdTree(t *testing.T) {
	root := NewRootCmd("test", fstest.MapFS{})

	assert.Equal(t, "drivespace", root.Use)
	assert.NotNil(t, root.RunE)
	assert.Subset(t, subcommandNames(root), []string{"serve", "migrate", "user", "config", "backup", "storage", "version"})

	for _, name := range []string{"data-directory", "port", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestRootCmdDefaultsFromEnv(t *testing.T) {
	t.Setenv("DRIVESPACE_DATA_DIR", "/srv/drivespace")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	flags := NewRootCmd("test", fstest.MapFS{}).PersistentFlags()
	assert.Equal(t, "/srv/drivespace", flags.Lookup("data-directory").DefValue)
	assert.Equal(t, "8080", flags.Lookup("port").DefValue)
	assert.Equal(t, "debug", flags.Lookup("log-level").DefValue)
}

func TestRootCmdDefaultPort(t *testing.T) {
	t.Setenv("PORT", "")
	flags := NewRootCmd("test", fstest.MapFS{}).PersistentFlags()
	assert.Equal(t, DefaultPort, flags.Lookup("port").DefValue)
}

func TestNewUserCmd(t *testing.T) {
	dataDir := "/tmp/test"
	cmd := NewUserCmd(&dataDir)

	assert.Equal(t, "user", cmd.Use)
	assert.Equal(t, "User management commands", cmd.Short)
	assert.ElementsMatch(t, []string{"create", "list", "reset-password", "promote", "deactivate", "activate"}, subcommandNames(cmd))
}

func TestNewMigrateCmd(t *testing.T) {
	dataDir := "/tmp/test"
	cmd := NewMigrateCmd(&dataDir)

	assert.Equal(t, "migrate", cmd.Use)
	assert.Equal(t, "Run database migrations", cmd.Short)
	assert.ElementsMatch(t, []string{"up", "down", "status"}, subcommandNames(cmd))
}

func TestParseMigrationTarget(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"all", 0, false},
		{"3", 3, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"three", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseMigrationTarget(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrateCommands(t *testing.T) {
	dataDir := t.TempDir()

	out := run(t, dataDir, "migrate", "up", "all")
	assert.Contains(t, out, "Database is at migration")

	out = run(t, dataDir, "migrate", "down", "all")
	assert.Contains(t, out, "Database is at migration 0")

	out = run(t, dataDir, "migrate", "up", "1")
	assert.Contains(t, out, "Database is at migration 1")

	out = run(t, dataDir, "migrate", "status")
	assert.Contains(t, out, "Applied: 1")
}

func TestUserCommands(t *testing.T) {
	dataDir := t.TempDir()
	run(t, dataDir, "migrate", "up", "all")

	// The first account becomes admin on its own.
	out := run(t, dataDir, "user", "create", "owner", "correct-horse-battery")
	assert.Contains(t, out, "User 'owner' created with role admin")

	out = run(t, dataDir, "user", "create", "member", "correct-horse-battery", "--email", "member@example.com")
	assert.Contains(t, out, "User 'member' created with role user")

	out = run(t, dataDir, "user", "promote", "member")
	assert.Contains(t, out, "User 'member' is now an admin")

	out = run(t, dataDir, "user", "reset-password", "member", "another-long-secret")
	assert.Contains(t, out, "Password reset successfully")

	out = run(t, dataDir, "user", "deactivate", "member")
	assert.Contains(t, out, "User 'member' deactivated")

	require.NoError(t, models.InitializeWithMigration(dataDir, false))
	_, err := models.CreateSessionToken("owner")
	require.NoError(t, err)
	require.NoError(t, models.Close())

	out = run(t, dataDir, "user", "list")
	assert.Contains(t, out, "owner (admin, active, sessions: 1)")
	assert.Contains(t, out, "member (admin, inactive, sessions: 0)")
}

func TestConfigCommands(t *testing.T) {
	dataDir := t.TempDir()
	run(t, dataDir, "migrate", "up", "all")

	out := run(t, dataDir, "config", "set", "--allow-registration=false", "--max-users", "10")
	assert.Contains(t, out, "Settings saved")

	out = run(t, dataDir, "config", "show")
	assert.Contains(t, out, "allow-registration: false")
	assert.Contains(t, out, "max-users:          10")
	assert.Contains(t, out, "require-captcha:    false")
}

func TestBackupCommands(t *testing.T) {
	dataDir := t.TempDir()
	run(t, dataDir, "migrate", "up", "all")

	out := run(t, dataDir, "backup", "list")
	assert.Contains(t, out, "No backups found")

	out = run(t, dataDir, "backup", "create")
	assert.Contains(t, out, "Backup created successfully")

	backups, err := models.ListBackups(filepath.Join(dataDir, "backups"))
	require.NoError(t, err)
	require.Len(t, backups, 1)

	out = run(t, dataDir, "backup", "list")
	assert.Contains(t, out, backups[0].Filename)

	out = run(t, dataDir, "backup", "restore", backups[0].Filename)
	assert.Contains(t, out, "Backup restored successfully")
}

func TestBackendConfig(t *testing.T) {
	config, err := backendConfig(filestore.BackendLocal, nil, "/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "files"), config.LocalBasePath)

	config, err = backendConfig(filestore.BackendSFTP, map[string]string{
		"host": "files.internal", "port": "2222", "username": "drive", "password": "secret",
	}, "/data")
	require.NoError(t, err)
	assert.Equal(t, 2222, config.SFTP.Port)

	_, err = backendConfig(filestore.BackendSFTP, map[string]string{"host": "files.internal", "port": "ssh"}, "/data")
	assert.Error(t, err)

	_, err = backendConfig(filestore.BackendS3, map[string]string{"region": "eu-west-1"}, "/data")
	assert.Error(t, err, "bucket is required")

	_, err = backendConfig("ftp", nil, "/data")
	assert.Error(t, err)
}

func TestStorageMigrateAndAudit(t *testing.T) {
	dataDir := t.TempDir()
	run(t, dataDir, "migrate", "up", "all")
	run(t, dataDir, "user", "create", "mover", "correct-horse-battery")

	sourceDir := filepath.Join(t.TempDir(), "source")
	destDir := filepath.Join(t.TempDir(), "dest")

	key := filestore.NewObjectKey("mover", "report.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, filepath.Dir(key)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, key), []byte("quarterly"), 0o644))

	require.NoError(t, models.InitializeWithMigration(dataDir, false))
	require.NoError(t, models.CreateFile(&models.File{Owner: "mover", Name: "report", StorageKey: key, Size: 9, ContentType: "text/plain"}))
	require.NoError(t, models.Close())

	out := run(t, dataDir, "storage", "migrate",
		"--from", "local", "--source-config", "path="+sourceDir,
		"--to", "local", "--dest-config", "path="+destDir)
	assert.Contains(t, out, "Found 1 files to migrate")
	assert.Contains(t, out, "Migration completed successfully!")

	copied, err := os.ReadFile(filepath.Join(destDir, key))
	require.NoError(t, err)
	assert.Equal(t, "quarterly", string(copied))

	out = run(t, dataDir, "storage", "migrate",
		"--from", "local", "--source-config", "path="+sourceDir,
		"--to", "local", "--dest-config", "path="+destDir)
	assert.Contains(t, out, "Copied 0 files, skipped 1 already present")

	t.Setenv("DRIVESPACE_STORAGE_BACKEND", "local")
	t.Setenv("DRIVESPACE_STORAGE_LOCAL_PATH", destDir)
	out = run(t, dataDir, "storage", "audit")
	assert.Contains(t, out, "Orphaned objects: 0")
	assert.Contains(t, out, "Missing objects:  0")
}

package filestore

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("alice", "../My Report (final).pdf")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "users", parts[0])
	assert.Equal(t, "alice", parts[1])
	_, err := uuid.Parse(parts[2])
	assert.NoError(t, err)
	assert.Equal(t, "My-Report-final.pdf", parts[3])

	assert.NotEqual(t, key, NewObjectKey("alice", "../My Report (final).pdf"))

	_, err = CleanKey(key)
	assert.NoError(t, err)
}

func TestCleanKey(t *testing.T) {
	cleaned, err := CleanKey("a/./b//c.txt")
	require.NoError(t, err)
	assert.Equal(t, "a/b/c.txt", cleaned)

	for _, key := range []string{"", ".", "..", "../x", "/abs", `win\path`} {
		_, err := CleanKey(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestParseConfigFromEnv(t *testing.T) {
	t.Run("local default", func(t *testing.T) {
		t.Setenv("DRIVESPACE_STORAGE_BACKEND", "")
		t.Setenv("DRIVESPACE_STORAGE_LOCAL_PATH", "")

		cfg, err := ParseConfigFromEnv("/var/lib/drivespace")
		require.NoError(t, err)
		assert.Equal(t, BackendLocal, cfg.BackendType)
		assert.Equal(t, "/var/lib/drivespace/files", cfg.LocalBasePath)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("sftp", func(t *testing.T) {
		t.Setenv("DRIVESPACE_STORAGE_BACKEND", "sftp")
		t.Setenv("DRIVESPACE_STORAGE_SFTP_HOST", "files.internal")
		t.Setenv("DRIVESPACE_STORAGE_SFTP_PORT", "2222")
		t.Setenv("DRIVESPACE_STORAGE_SFTP_USERNAME", "drive")
		t.Setenv("DRIVESPACE_STORAGE_SFTP_PASSWORD", "secret")

		cfg, err := ParseConfigFromEnv("/data")
		require.NoError(t, err)
		assert.Equal(t, 2222, cfg.SFTP.Port)
		assert.Equal(t, "files.internal", cfg.SFTP.Host)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("sftp bad port", func(t *testing.T) {
		t.Setenv("DRIVESPACE_STORAGE_BACKEND", "sftp")
		t.Setenv("DRIVESPACE_STORAGE_SFTP_PORT", "ssh")

		_, err := ParseConfigFromEnv("/data")
		assert.Error(t, err)
	})

	t.Run("s3 missing region", func(t *testing.T) {
		t.Setenv("DRIVESPACE_STORAGE_BACKEND", "s3")
		t.Setenv("DRIVESPACE_STORAGE_S3_BUCKET", "drive")
		t.Setenv("DRIVESPACE_STORAGE_S3_REGION", "")
		t.Setenv("DRIVESPACE_STORAGE_S3_PATH_STYLE", "true")

		cfg, err := ParseConfigFromEnv("/data")
		require.NoError(t, err)
		assert.True(t, cfg.S3.UsePathStyle)
		assert.ErrorContains(t, cfg.Validate(), "region")
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("DRIVESPACE_STORAGE_BACKEND", "ftp")

		_, err := ParseConfigFromEnv("/data")
		assert.Error(t, err)
	})
}

func TestConfigOpen_Local(t *testing.T) {
	cfg := &Config{BackendType: BackendLocal, LocalBasePath: t.TempDir()}
	backend, err := cfg.Open()
	require.NoError(t, err)
	defer backend.Close()
	assert.Equal(t, BackendLocal, backend.Name())

	_, err = (&Config{BackendType: BackendSFTP}).Open()
	assert.Error(t, err)
}

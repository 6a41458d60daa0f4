package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Backend types.
const (
	BackendLocal = "local"
	BackendSFTP  = "sftp"
	BackendS3    = "s3"
)

// Config selects and configures a storage backend.
type Config struct {
	BackendType string

	LocalBasePath string

	SFTP SFTPConfig
	S3   S3Config
}

// ParseConfigFromEnv reads DRIVESPACE_STORAGE_* variables. The local backend
// defaults to <dataDirectory>/files.
func ParseConfigFromEnv(dataDirectory string) (*Config, error) {
	return parseConfig("DRIVESPACE_STORAGE", dataDirectory)
}

func parseConfig(prefix, dataDirectory string) (*Config, error) {
	env := func(name, defaultValue string) string {
		return getEnvOrDefault(prefix+"_"+name, defaultValue)
	}

	config := &Config{BackendType: getEnvOrDefault(prefix+"_BACKEND", BackendLocal)}

	switch config.BackendType {
	case BackendLocal:
		config.LocalBasePath = env("LOCAL_PATH", filepath.Join(dataDirectory, "files"))
	case BackendSFTP:
		port := 22
		if portStr := os.Getenv(prefix + "_SFTP_PORT"); portStr != "" {
			p, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid SFTP port: %w", err)
			}
			port = p
		}
		config.SFTP = SFTPConfig{
			Host:     env("SFTP_HOST", ""),
			Port:     port,
			Username: env("SFTP_USERNAME", ""),
			Password: env("SFTP_PASSWORD", ""),
			KeyFile:  env("SFTP_KEY_FILE", ""),
			HostKey:  env("SFTP_HOST_KEY", ""),
			BasePath: env("SFTP_BASE_PATH", ""),
		}
	case BackendS3:
		config.S3 = S3Config{
			Bucket:       env("S3_BUCKET", ""),
			Region:       env("S3_REGION", ""),
			Endpoint:     env("S3_ENDPOINT", ""),
			BasePath:     env("S3_BASE_PATH", ""),
			UsePathStyle: env("S3_PATH_STYLE", "") == "true",
		}
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.BackendType)
	}

	return config, nil
}

// Validate checks that the selected backend has its required settings.
func (c *Config) Validate() error {
	switch c.BackendType {
	case BackendLocal:
		if c.LocalBasePath == "" {
			return fmt.Errorf("local base path is required for local backend")
		}
	case BackendSFTP:
		if c.SFTP.Host == "" {
			return fmt.Errorf("SFTP host is required")
		}
		if c.SFTP.Username == "" {
			return fmt.Errorf("SFTP username is required")
		}
		if c.SFTP.Password == "" && c.SFTP.KeyFile == "" {
			return fmt.Errorf("either SFTP password or key file is required")
		}
		if c.SFTP.Port <= 0 || c.SFTP.Port > 65535 {
			return fmt.Errorf("SFTP port %d is out of range", c.SFTP.Port)
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.BackendType)
	}
	return nil
}

// Open validates the configuration and connects the backend.
func (c *Config) Open() (Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.BackendType {
	case BackendLocal:
		return NewLocalBackend(c.LocalBasePath)
	case BackendSFTP:
		return NewSFTPBackend(c.SFTP)
	case BackendS3:
		return NewS3Backend(c.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.BackendType)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

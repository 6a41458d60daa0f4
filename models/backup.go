package models

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drivespace/drivespace/utils"
)

// BackupInfo describes one backup file.
type BackupInfo struct {
	Filename string
	Size     int64
	Created  time.Time
}

const backupPrefix = "drivespace_backup_"

// CreateBackup writes a consistent snapshot of the open database into
// backupDir and returns its path.
func CreateBackup(backupDir string) (string, error) {
	start := time.Now()
	defer utils.LogDuration("CreateBackup", start, backupDir)

	if db == nil {
		return "", errors.New("database not initialized")
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	backupPath := filepath.Join(backupDir, backupPrefix+time.Now().Format("2006-01-02_15-04-05")+".db")
	if _, err := os.Stat(backupPath); err == nil {
		return "", fmt.Errorf("backup %s already exists", backupPath)
	}

	// VACUUM INTO checkpoints the WAL into the copy, so no side files are needed.
	if _, err := db.Exec(`VACUUM INTO ?`, backupPath); err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	return backupPath, nil
}

// RestoreBackup replaces the database in dataDir with backupPath and reopens
// it. The database must not be in use by a running server.
func RestoreBackup(backupPath, dataDir string) error {
	start := time.Now()
	defer utils.LogDuration("RestoreBackup", start, backupPath)

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file: %w", err)
	}
	if err := Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s file: %w", suffix, err)
		}
	}
	if err := copyFile(backupPath, dbPath); err != nil {
		return fmt.Errorf("restore database: %w", err)
	}

	return InitializeWithMigration(dataDir, false)
}

// ListBackups returns the backup files in backupDir, newest first.
func ListBackups(backupDir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, err
	}

	backups := []BackupInfo{}
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), backupPrefix) || !strings.HasSuffix(file.Name(), ".db") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename: file.Name(),
			Size:     info.Size(),
			Created:  info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Created.After(backups[j].Created)
	})
	return backups, nil
}

// copyFile copies a file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sourceInfo.Mode())
	if err != nil {
		return err
	}
	if _, err = io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/drivespace/drivespace/utils"
)

// File is an uploaded object owned by a user, optionally inside a folder.
type File struct {
	ID          int64  `json:"id" form:"-"`
	Owner       string `json:"owner" form:"-"`
	FolderID    *int64 `json:"folder_id,omitempty" form:"-"`
	Name        string `json:"name" form:"name" validate:"required,notblank,max=255"`
	StorageKey  string `json:"-" form:"-"`
	Size        int64  `json:"size" form:"-"`
	ContentType string `json:"content_type" form:"-"`
	TimestampPair
}

const fileColumns = `id, owner, folder_id, name, storage_key, size, content_type, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (*File, error) {
	var file File
	var folderID sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(&file.ID, &file.Owner, &folderID, &file.Name, &file.StorageKey, &file.Size, &file.ContentType, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	file.FolderID = idFromNullable(folderID)
	file.FromUnixTimestamps(createdAt, updatedAt)
	return &file, nil
}

// CreateFile inserts the file row. StorageKey must already point at stored content.
func CreateFile(file *File) error {
	start := time.Now()
	defer utils.LogDuration("CreateFile", start, file.Owner, file.Name)

	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}
	file.TimestampPair = NewTimestamps()
	createdAt, updatedAt := file.UnixTimestamps()

	result, err := db.Exec(`
	INSERT INTO files (owner, folder_id, name, storage_key, size, content_type, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, file.Owner, nullableID(file.FolderID), file.Name, file.StorageKey, file.Size, file.ContentType, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	file.ID, err = result.LastInsertId()
	return err
}

// GetFilesByOwner lists owner's files in folderID, or the unfiled ones when
// folderID is nil.
func GetFilesByOwner(owner string, folderID *int64) ([]File, error) {
	var rows *sql.Rows
	var err error
	if folderID == nil {
		rows, err = db.Query(`SELECT `+fileColumns+` FROM files WHERE owner = ? AND folder_id IS NULL ORDER BY name COLLATE NOCASE, id`, owner)
	} else {
		rows, err = db.Query(`SELECT `+fileColumns+` FROM files WHERE owner = ? AND folder_id = ? ORDER BY name COLLATE NOCASE, id`, owner, *folderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// GetFileForOwner returns the file with id if it belongs to owner, or ErrNotFound.
func GetFileForOwner(owner string, id int64) (*File, error) {
	file, err := scanFile(db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ? AND owner = ?`, id, owner))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// StoredObject describes one stored upload as recorded in the files table.
type StoredObject struct {
	Key         string
	Size        int64
	ContentType string
}

// GetAllStoredObjects returns every recorded object, used when moving data
// between storage backends.
func GetAllStoredObjects() ([]StoredObject, error) {
	rows, err := db.Query(`SELECT storage_key, size, content_type FROM files ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []StoredObject
	for rows.Next() {
		var obj StoredObject
		if err := rows.Scan(&obj.Key, &obj.Size, &obj.ContentType); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// GetAllStorageKeys returns every recorded object key.
func GetAllStorageKeys() ([]string, error) {
	objects, err := GetAllStoredObjects()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// DeleteFile removes the row of owner's file.
func DeleteFile(owner string, id int64) error {
	result, err := db.Exec(`DELETE FROM files WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// FileStats aggregates stored files.
type FileStats struct {
	Count int64
	Bytes int64
}

// GetFileStats returns totals across all users.
func GetFileStats() (FileStats, error) {
	var stats FileStats
	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&stats.Count, &stats.Bytes)
	return stats, err
}

// GetOwnerFileStats returns totals for one user.
func GetOwnerFileStats(owner string) (FileStats, error) {
	var stats FileStats
	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files WHERE owner = ?`, owner).Scan(&stats.Count, &stats.Bytes)
	return stats, err
}

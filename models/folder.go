package models

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drivespace/drivespace/utils"
)

// ErrFolderExists is returned when the owner already has a folder with the same name.
var ErrFolderExists = errors.New("folder already exists")

// Folder groups a user's files.
type Folder struct {
	ID    int64  `json:"id" form:"-"`
	Owner string `json:"owner" form:"-"`
	Name  string `json:"name" form:"name" validate:"required,notblank,max=255"`
	TimestampPair

	// FileCount is filled by listing queries only.
	FileCount int64 `json:"file_count" form:"-"`
}

// CreateFolder inserts a folder for owner. Names are unique per owner.
func CreateFolder(owner, name string) (*Folder, error) {
	start := time.Now()
	defer utils.LogDuration("CreateFolder", start, owner, name)

	folder := Folder{Owner: owner, Name: strings.TrimSpace(name), TimestampPair: NewTimestamps()}

	exists, err := FolderNameExists(owner, folder.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check folder name: %w", err)
	}
	if exists {
		return nil, ErrFolderExists
	}

	createdAt, updatedAt := folder.UnixTimestamps()
	result, err := db.Exec(`
	INSERT INTO folders (owner, name, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	`, folder.Owner, folder.Name, createdAt, updatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrFolderExists
		}
		return nil, fmt.Errorf("failed to insert folder: %w", err)
	}

	folder.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// FolderNameExists reports whether owner already has a folder called name.
func FolderNameExists(owner, name string) (bool, error) {
	return ExistsChecker(`SELECT 1 FROM folders WHERE owner = ? AND name = ?`, owner, strings.TrimSpace(name))
}

// GetFoldersByOwner lists owner's folders by name with their file counts.
func GetFoldersByOwner(owner string) ([]Folder, error) {
	rows, err := db.Query(`
	SELECT f.id, f.owner, f.name, f.created_at, f.updated_at,
	       (SELECT COUNT(*) FROM files WHERE files.folder_id = f.id)
	FROM folders f
	WHERE f.owner = ?
	ORDER BY f.name COLLATE NOCASE
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var folder Folder
		var createdAt, updatedAt int64
		if err := rows.Scan(&folder.ID, &folder.Owner, &folder.Name, &createdAt, &updatedAt, &folder.FileCount); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folder.FromUnixTimestamps(createdAt, updatedAt)
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// GetFolderForOwner returns the folder with id if it belongs to owner, or ErrNotFound.
func GetFolderForOwner(owner string, id int64) (*Folder, error) {
	var folder Folder
	var createdAt, updatedAt int64
	err := db.QueryRow(`
	SELECT id, owner, name, created_at, updated_at
	FROM folders
	WHERE id = ? AND owner = ?
	`, id, owner).Scan(&folder.ID, &folder.Owner, &folder.Name, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	folder.FromUnixTimestamps(createdAt, updatedAt)
	return &folder, nil
}

// DeleteFolder removes owner's folder. Its files become unfiled.
func DeleteFolder(owner string, id int64) error {
	result, err := db.Exec(`DELETE FROM folders WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
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

// CountFolders returns the number of folders across all users.
func CountFolders() (int64, error) {
	return CountRecords(`SELECT COUNT(*) FROM folders`)
}

package models

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fileRowColumns = []string{"id", "owner", "folder_id", "name", "storage_key", "size", "content_type", "created_at", "updated_at"}

func TestCreateFile(t *testing.T) {
	mock := withMockDB(t)

	folderID := int64(3)
	mock.ExpectExec(`INSERT INTO files`).
		WithArgs("alice", sqlmock.AnyArg(), "notes.md", "users/alice/k/notes.md", int64(12), "application/octet-stream", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(5, 1))

	file := &File{Owner: "alice", FolderID: &folderID, Name: "notes.md", StorageKey: "users/alice/k/notes.md", Size: 12}
	require.NoError(t, CreateFile(file))
	assert.Equal(t, int64(5), file.ID)
	assert.Equal(t, "application/octet-stream", file.ContentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFilesByOwner(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`FROM files WHERE owner = \? AND folder_id IS NULL`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(fileRowColumns).
			AddRow(1, "alice", nil, "a.txt", "k1", int64(1), "text/plain", int64(1), int64(1)))

	folderID := int64(4)
	mock.ExpectQuery(`FROM files WHERE owner = \? AND folder_id = \?`).
		WithArgs("alice", int64(4)).
		WillReturnRows(sqlmock.NewRows(fileRowColumns).
			AddRow(2, "alice", int64(4), "b.txt", "k2", int64(2), "text/plain", int64(1), int64(1)))

	unfiled, err := GetFilesByOwner("alice", nil)
	require.NoError(t, err)
	require.Len(t, unfiled, 1)
	assert.Nil(t, unfiled[0].FolderID)

	inFolder, err := GetFilesByOwner("alice", &folderID)
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	require.NotNil(t, inFolder[0].FolderID)
	assert.Equal(t, int64(4), *inFolder[0].FolderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFileForOwner_NotFound(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`FROM files WHERE id = \? AND owner = \?`).
		WithArgs(int64(1), "bob").
		WillReturnRows(sqlmock.NewRows(fileRowColumns))

	_, err := GetFileForOwner("bob", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFile(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectExec(`DELETE FROM files WHERE id = \? AND owner = \?`).
		WithArgs(int64(2), "alice").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, DeleteFile("alice", 2), ErrNotFound)
}

func TestGetFileStats(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(size\), 0\) FROM files`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(int64(3), int64(4096)))

	stats, err := GetFileStats()
	require.NoError(t, err)
	assert.Equal(t, FileStats{Count: 3, Bytes: 4096}, stats)
}

func TestGetAllStoredObjects(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`SELECT storage_key, size, content_type FROM files ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key", "size", "content_type"}).
			AddRow("users/alice/a/notes.md", int64(12), "text/markdown").
			AddRow("users/bob/b/photo.png", int64(2048), "image/png"))

	objects, err := GetAllStoredObjects()
	require.NoError(t, err)
	assert.Equal(t, []StoredObject{
		{Key: "users/alice/a/notes.md", Size: 12, ContentType: "text/markdown"},
		{Key: "users/bob/b/photo.png", Size: 2048, ContentType: "image/png"},
	}, objects)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package models

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFolder(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`SELECT 1 FROM folders WHERE owner = \? AND name = \?`).
		WithArgs("alice", "Invoices").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(`INSERT INTO folders`).
		WithArgs("alice", "Invoices", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	folder, err := CreateFolder("alice", "  Invoices ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), folder.ID)
	assert.Equal(t, "Invoices", folder.Name)
	assert.False(t, folder.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFolder_Duplicate(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`SELECT 1 FROM folders`).
		WithArgs("alice", "Invoices").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := CreateFolder("alice", "Invoices")
	assert.ErrorIs(t, err, ErrFolderExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFolder_UniqueConstraintRace(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`SELECT 1 FROM folders`).
		WithArgs("alice", "Invoices").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectExec(`INSERT INTO folders`).
		WillReturnError(errors.New("UNIQUE constraint failed: folders.owner, folders.name"))

	_, err := CreateFolder("alice", "Invoices")
	assert.ErrorIs(t, err, ErrFolderExists)
}

func TestGetFoldersByOwner(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`FROM folders f WHERE f.owner = \?`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "name", "created_at", "updated_at", "count"}).
			AddRow(1, "alice", "A", int64(100), int64(200), int64(2)).
			AddRow(2, "alice", "b", int64(100), int64(100), int64(0)))

	folders, err := GetFoldersByOwner("alice")
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, int64(2), folders[0].FileCount)
	assert.Equal(t, int64(200), folders[0].UpdatedAt.Unix())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFolderForOwner_NotFound(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectQuery(`FROM folders WHERE id = \? AND owner = \?`).
		WithArgs(int64(9), "mallory").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "name", "created_at", "updated_at"}))

	_, err := GetFolderForOwner("mallory", 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteFolder(t *testing.T) {
	mock := withMockDB(t)

	mock.ExpectExec(`DELETE FROM folders WHERE id = \? AND owner = \?`).
		WithArgs(int64(1), "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM folders WHERE id = \? AND owner = \?`).
		WithArgs(int64(1), "bob").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, DeleteFolder("alice", 1))
	assert.ErrorIs(t, DeleteFolder("bob", 1), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateFields_Folder(t *testing.T) {
	assert.Contains(t, ValidateFields(&Folder{Name: "   "}, "Name"), "name")
	assert.Contains(t, ValidateFields(&Folder{Name: string(make([]byte, 256))}, "Name"), "name")
	assert.Empty(t, ValidateFields(&Folder{Name: "Photos"}, "Name"))
}

package forms

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/filestore/mock_filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolderForm(t *testing.T) {
	mustCreateUser(t, "folderowner")

	f := NewFolderForm("folderowner")
	f.Name = "Receipts"
	require.True(t, f.IsValid())
	folder, err := f.Save()
	require.NoError(t, err)
	assert.Equal(t, "Receipts", folder.Name)

	dup := NewFolderForm("folderowner")
	dup.Name = "Receipts"
	assert.False(t, dup.IsValid())
	assert.Equal(t, msgFolderExists, dup.Errors.First("name"))

	blank := NewFolderForm("folderowner")
	blank.Name = "   "
	assert.False(t, blank.IsValid())
	assert.Equal(t, "This field is required.", blank.Errors.First("name"))

	long := NewFolderForm("folderowner")
	long.Name = strings.Repeat("x", 256)
	assert.False(t, long.IsValid())
	_, err = long.Save()
	assert.ErrorIs(t, err, ErrInvalidForm)
}

func TestFolderForm_SameNameOtherOwner(t *testing.T) {
	mustCreateUser(t, "ownera")
	mustCreateUser(t, "ownerb")

	for _, owner := range []string{"ownera", "ownerb"} {
		f := NewFolderForm(owner)
		f.Name = "Shared name"
		_, err := f.Save()
		assert.NoError(t, err, owner)
	}
}

func TestFileForm_Validation(t *testing.T) {
	f := NewFileForm("anyone", 10)
	assert.False(t, f.IsValid())
	assert.True(t, f.Errors.Has("name"))
	assert.Equal(t, msgNoFile, f.Errors.First("file"))

	f = NewFileForm("anyone", 10)
	f.Name = "empty"
	f.Upload = fileHeader(t, "empty.txt", "text/plain", nil)
	assert.False(t, f.IsValid())
	assert.Equal(t, msgEmptyFile, f.Errors.First("file"))

	f = NewFileForm("anyone", 10)
	f.Name = "big"
	f.Upload = fileHeader(t, "big.txt", "text/plain", []byte("more than ten bytes"))
	assert.False(t, f.IsValid())
	assert.Contains(t, f.Errors.First("file"), "at most 10 B")

	assert.Equal(t, models.DefaultMaxUploadBytes, NewFileForm("anyone", 0).MaxBytes)
}

func TestFileForm_SaveStoresObject(t *testing.T) {
	mustCreateUser(t, "uploader")
	backend, err := filestore.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	f := NewFileForm("uploader", 1024)
	f.Name = "Notes"
	f.Upload = fileHeader(t, "notes.md", "text/markdown", []byte("# Notes\n\nhello"))
	file, err := f.Save(context.Background(), backend)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(file.StorageKey, "users/uploader/"))
	assert.True(t, strings.HasSuffix(file.StorageKey, "/notes.md"))
	assert.Equal(t, int64(14), file.Size)
	assert.Equal(t, "text/markdown", file.ContentType)

	reader, err := backend.Open(context.Background(), file.StorageKey)
	require.NoError(t, err)
	defer reader.Close()
	data, _ := io.ReadAll(reader)
	assert.Equal(t, "# Notes\n\nhello", string(data))

	stored, err := models.GetFileForOwner("uploader", file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.StorageKey, stored.StorageKey)
}

func TestFileForm_SaveRemovesObjectWhenInsertFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mock_filestore.NewMockBackend(ctrl)

	var storedKey string
	backend.EXPECT().
		Put(gomock.Any(), gomock.Any(), gomock.Any(), int64(5), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
			storedKey = key
			data, err := io.ReadAll(r)
			assert.Equal(t, "hello", string(data))
			return err
		})
	backend.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string) error {
			assert.Equal(t, storedKey, key)
			return nil
		})

	// No such user, so the foreign key rejects the row.
	f := NewFileForm("ghost-owner", 1024)
	f.Name = "orphan"
	f.Upload = fileHeader(t, "orphan.txt", "text/plain", []byte("hello"))

	_, err := f.Save(context.Background(), backend)
	assert.Error(t, err)
}

func TestFileForm_SaveBackendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mock_filestore.NewMockBackend(ctrl)
	backend.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("disk full"))

	mustCreateUser(t, "unlucky")
	f := NewFileForm("unlucky", 1024)
	f.Name = "doc"
	f.Upload = fileHeader(t, "doc.txt", "text/plain", []byte("data"))

	_, err := f.Save(context.Background(), backend)
	assert.ErrorContains(t, err, "disk full")

	files, err := models.GetFilesByOwner("unlucky", nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// unrewindable reads normally but refuses to seek.
type unrewindable struct {
	io.Reader
}

func (unrewindable) Seek(int64, int) (int64, error) {
	return 0, errors.New("seek not supported")
}

func TestDetectContentType(t *testing.T) {
	t.Run("sniffs and rewinds", func(t *testing.T) {
		src := strings.NewReader("%PDF-1.7\n...")
		contentType, err := detectContentType(src, "application/octet-stream")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", contentType)

		data, err := io.ReadAll(src)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7\n...", string(data))
	})

	t.Run("generic result keeps declared type", func(t *testing.T) {
		contentType, err := detectContentType(strings.NewReader("# Notes"), "text/markdown")
		require.NoError(t, err)
		assert.Equal(t, "text/markdown", contentType)
	})

	t.Run("failed rewind is an error", func(t *testing.T) {
		_, err := detectContentType(unrewindable{strings.NewReader("hello")}, "")
		assert.ErrorContains(t, err, "rewind upload")
	})
}

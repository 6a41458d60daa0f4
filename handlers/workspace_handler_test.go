package handlers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/drivespace/drivespace/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceRedirectsAnonymous(t *testing.T) {
	for _, path := range []string{"/workspace/", "/workspace/?folder=1", "/workspace/files/1/download/"} {
		t.Run(path, func(t *testing.T) {
			resp := getPage(t, path)
			assert.Equal(t, fiber.StatusFound, resp.StatusCode)
			assert.Equal(t, "/?next="+url.QueryEscape(path), resp.Header.Get("Location"))
		})
	}

	resp := postForm(t, "/workspace/folders/", url.Values{"name": {"Sneaky"}})
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestWorkspaceRendersForUser(t *testing.T) {
	cookie := signIn(t, "ws_viewer")

	resp := getPage(t, "/workspace/", cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "Unfiled files")
	assert.Contains(t, body, `action="/workspace/folders/"`)
	assert.Contains(t, body, `enctype="multipart/form-data"`)
	assert.Contains(t, body, "ws_viewer")
}

func TestWorkspaceHTMXSkipsLayout(t *testing.T) {
	cookie := signIn(t, "ws_htmx")

	req := newGet("/workspace/")
	req.Header.Set("HX-Request", "true")
	resp := doRequest(t, testApp, req, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "Unfiled files")
	assert.NotContains(t, body, "<!DOCTYPE html>")
}

func TestWorkspaceUnknownFolder(t *testing.T) {
	cookie := signIn(t, "ws_lost")

	resp := getPage(t, "/workspace/?folder=999999", cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = getPage(t, "/workspace/?folder=abc", cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFolderCreateAndDelete(t *testing.T) {
	cookie := signIn(t, "ws_folders")

	resp := postForm(t, "/workspace/folders/", url.Values{"name": {"Documents"}}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	folders, err := models.GetFoldersByOwner("ws_folders")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	folder := folders[0]
	assert.Equal(t, "Documents", folder.Name)
	assert.Equal(t, fmt.Sprintf("/workspace/?folder=%d", folder.ID), resp.Header.Get("Location"))

	t.Run("duplicate name", func(t *testing.T) {
		resp := postForm(t, "/workspace/folders/", url.Values{"name": {"Documents"}}, cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, ErrValidationFailed)
		assert.Contains(t, body, "You already have a folder with this name.")
	})

	t.Run("blank name", func(t *testing.T) {
		resp := postForm(t, "/workspace/folders/", url.Values{"name": {"   "}}, cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "This field is required.")
	})

	t.Run("someone else cannot delete it", func(t *testing.T) {
		other := signIn(t, "ws_intruder")
		resp := postForm(t, fmt.Sprintf("/workspace/folders/%d/delete/", folder.ID), url.Values{}, other)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	resp = postForm(t, fmt.Sprintf("/workspace/folders/%d/delete/", folder.ID), url.Values{}, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/workspace/", resp.Header.Get("Location"))

	folders, err = models.GetFoldersByOwner("ws_folders")
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestFileLifecycle(t *testing.T) {
	cookie := signIn(t, "ws_files")
	content := []byte("# Title\n\nSome *notes*.\n\n<script>alert(1)</script>\n")

	resp := postUpload(t, "/workspace/files/", map[string]string{"name": "Notes"}, "notes.md", content, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/workspace/", resp.Header.Get("Location"))

	files, err := models.GetFilesByOwner("ws_files", nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	file := files[0]
	assert.Equal(t, "Notes", file.Name)
	assert.Equal(t, int64(len(content)), file.Size)
	assert.Regexp(t, `^users/ws_files/[0-9a-f-]{36}/notes\.md$`, file.StorageKey)

	exists, err := testStorage.Exists(context.Background(), file.StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)

	id := strconv.FormatInt(file.ID, 10)

	t.Run("download", func(t *testing.T) {
		resp := getPage(t, "/workspace/files/"+id+"/download/", cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
		assert.Equal(t, string(content), readBody(t, resp))
	})

	t.Run("preview renders markdown", func(t *testing.T) {
		resp := getPage(t, "/workspace/files/"+id+"/preview/", cookie)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "<h1>Title</h1>")
		assert.Contains(t, body, "<em>notes</em>")
		assert.NotContains(t, body, "<script>alert(1)</script>")
	})

	t.Run("other users get 404", func(t *testing.T) {
		other := signIn(t, "ws_snoop")
		resp := getPage(t, "/workspace/files/"+id+"/download/", other)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		resp = postForm(t, "/workspace/files/"+id+"/delete/", url.Values{}, other)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	resp = postForm(t, "/workspace/files/"+id+"/delete/", url.Values{}, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	files, err = models.GetFilesByOwner("ws_files", nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	exists, err = testStorage.Exists(context.Background(), file.StorageKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileUploadIntoFolder(t *testing.T) {
	cookie := signIn(t, "ws_foldered")
	folder, err := models.CreateFolder("ws_foldered", "Reports")
	require.NoError(t, err)

	path := fmt.Sprintf("/workspace/files/?folder=%d", folder.ID)
	resp := postUpload(t, path, map[string]string{"name": "Q1"}, "q1.txt", []byte("revenue up"), cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/workspace/?folder=%d", folder.ID), resp.Header.Get("Location"))

	files, err := models.GetFilesByOwner("ws_foldered", &folder.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)

	preview := getPage(t, fmt.Sprintf("/workspace/files/%d/preview/", files[0].ID), cookie)
	assert.Equal(t, fiber.StatusOK, preview.StatusCode)
	assert.Contains(t, readBody(t, preview), "revenue up")

	other, err := models.CreateFolder("root", "Not yours")
	require.NoError(t, err)
	resp = postUpload(t, fmt.Sprintf("/workspace/files/?folder=%d", other.ID), map[string]string{"name": "x"}, "x.txt", []byte("x"), cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestFileUploadInvalid(t *testing.T) {
	cookie := signIn(t, "ws_badupload")

	resp := postUpload(t, "/workspace/files/", map[string]string{"name": "Nothing"}, "", nil, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, ErrValidationFailed)
	assert.Contains(t, body, "No file was submitted.")

	resp = postUpload(t, "/workspace/files/", map[string]string{"name": ""}, "empty.txt", []byte{}, cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = readBody(t, resp)
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, "The submitted file is empty.")

	files, err := models.GetFilesByOwner("ws_badupload", nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileUploadOverLimit(t *testing.T) {
	withAppConfig(t, models.AppConfig{AllowRegistration: true, MaxUploadBytes: 8})
	cookie := signIn(t, "ws_bigupload")

	resp := postUpload(t, "/workspace/files/", map[string]string{"name": "Big"}, "big.txt", []byte("more than eight bytes"), cookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Ensure this file is at most 8 B")
}

func TestPreviewOfBinaryRedirectsToDownload(t *testing.T) {
	cookie := signIn(t, "ws_binary")

	resp := postUpload(t, "/workspace/files/", map[string]string{"name": "Blob"}, "blob.bin", []byte{0x00, 0x01, 0x02, 0xff, 0xfe}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	files, err := models.GetFilesByOwner("ws_binary", nil)
	require.NoError(t, err)
	require.Len(t, files, 1)

	resp = getPage(t, fmt.Sprintf("/workspace/files/%d/preview/", files[0].ID), cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/workspace/files/%d/download/", files[0].ID), resp.Header.Get("Location"))
}

func TestDownloadMissingObject(t *testing.T) {
	cookie := signIn(t, "ws_orphan")
	file := &models.File{Owner: "ws_orphan", Name: "gone", StorageKey: "users/ws_orphan/gone/gone.txt", Size: 3, ContentType: "text/plain"}
	require.NoError(t, models.CreateFile(file))

	resp := getPage(t, fmt.Sprintf("/workspace/files/%d/download/", file.ID), cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), ErrFileMissing)
}

func TestFolderDeleteKeepsFilesAsUnfiled(t *testing.T) {
	cookie := signIn(t, "ws_unfiler")
	folder, err := models.CreateFolder("ws_unfiler", "Temporary")
	require.NoError(t, err)

	resp := postUpload(t, fmt.Sprintf("/workspace/files/?folder=%d", folder.ID), map[string]string{"name": "Keeper"}, "keeper.txt", []byte("still here"), cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	resp = postForm(t, fmt.Sprintf("/workspace/folders/%d/delete/", folder.ID), url.Values{}, cookie)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	unfiled, err := models.GetFilesByOwner("ws_unfiler", nil)
	require.NoError(t, err)
	require.Len(t, unfiled, 1)
	assert.Equal(t, "Keeper", unfiled[0].Name)
	assert.Nil(t, unfiled[0].FolderID)

	page := getPage(t, "/workspace/", cookie)
	assert.Equal(t, fiber.StatusOK, page.StatusCode)
	assert.Contains(t, readBody(t, page), "Keeper")

	download := getPage(t, fmt.Sprintf("/workspace/files/%d/download/", unfiled[0].ID), cookie)
	assert.Equal(t, fiber.StatusOK, download.StatusCode)
	assert.Equal(t, "still here", readBody(t, download))
}

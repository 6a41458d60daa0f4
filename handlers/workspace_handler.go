package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/forms"
	"github.com/drivespace/drivespace/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// previewLimit caps how much of a file the preview page reads.
const previewLimit int64 = 1 << 20

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// workspaceURL returns the workspace address, scoped to a folder when given.
func workspaceURL(folderID *int64) string {
	target := MustReverse("workspace")
	if folderID != nil {
		target += "?folder=" + strconv.FormatInt(*folderID, 10)
	}
	return target
}

// renderWorkspace renders the workspace of user for folderID. Nil forms are
// replaced by empty ones.
func renderWorkspace(c *fiber.Ctx, user *models.User, folderID *int64, folderForm *forms.FolderForm, fileForm *forms.FileForm) error {
	var current *models.Folder
	if folderID != nil {
		folder, err := models.GetFolderForOwner(user.Username, *folderID)
		if err != nil {
			return err
		}
		current = folder
	}

	folders, err := models.GetFoldersByOwner(user.Username)
	if err != nil {
		return err
	}
	files, err := models.GetFilesByOwner(user.Username, folderID)
	if err != nil {
		return err
	}
	stats, err := models.GetOwnerFileStats(user.Username)
	if err != nil {
		return err
	}

	if folderForm == nil {
		folderForm = forms.NewFolderForm(user.Username)
	}
	if fileForm == nil {
		cfg, err := models.GetAppConfig()
		if err != nil {
			return err
		}
		fileForm = forms.NewFileForm(user.Username, cfg.MaxUploadBytes)
	}

	title := "Workspace"
	if current != nil {
		title = current.Name
	}
	return render(c, "pages/workspace", fiber.Map{
		"Title":         title,
		"CurrentFolder": current,
		"Folders":       folders,
		"Files":         files,
		"Stats":         stats,
		"FolderForm":    folderForm,
		"FileForm":      fileForm,
	})
}

// HandleWorkspace lists the signed-in user's folders and the files of the
// selected folder, or the unfiled files.
func HandleWorkspace(c *fiber.Ctx) error {
	folderID, err := parseFolderQuery(c)
	if err != nil {
		return err
	}
	return renderWorkspace(c, CurrentUser(c), folderID, nil, nil)
}

// HandleFolderCreate creates a folder from a FolderForm submission.
func HandleFolderCreate(c *fiber.Ctx) error {
	user := CurrentUser(c)

	form := forms.NewFolderForm(user.Username)
	if err := form.Bind(c); err != nil {
		log.Debugf("Rejecting folder body: %v", err)
		return fiber.NewError(fiber.StatusBadRequest, ErrBadRequest)
	}

	if form.IsValid() {
		folder, err := form.Save()
		switch {
		case err == nil:
			AddMessage(c, LevelSuccess, MsgFolderCreated)
			return redirect(c, workspaceURL(&folder.ID))
		case !errors.Is(err, forms.ErrInvalidForm):
			return err
		}
	}

	AddMessage(c, LevelError, ErrValidationFailed)
	return renderWorkspace(c, user, nil, form, nil)
}

// HandleFolderDelete deletes one of the user's folders. Its files become unfiled.
func HandleFolderDelete(c *fiber.Ctx) error {
	id, err := ParseInt64Param(c, "id")
	if err != nil {
		return err
	}
	user := CurrentUser(c)

	if err := models.DeleteFolder(user.Username, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, ErrFolderNotFound)
		}
		return err
	}

	AddMessage(c, LevelSuccess, MsgFolderDeleted)
	return redirect(c, workspaceURL(nil))
}

// HandleFileUpload stores a FileForm upload, into the folder named by ?folder=
// when present.
func HandleFileUpload(c *fiber.Ctx) error {
	user := CurrentUser(c)

	folderID, err := parseFolderQuery(c)
	if err != nil {
		return err
	}
	if folderID != nil {
		if _, err := models.GetFolderForOwner(user.Username, *folderID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, ErrFolderNotFound)
			}
			return err
		}
	}

	cfg, err := models.GetAppConfig()
	if err != nil {
		return err
	}

	form := forms.NewFileForm(user.Username, cfg.MaxUploadBytes)
	form.FolderID = folderID
	if err := form.Bind(c); err != nil {
		log.Debugf("Rejecting upload body: %v", err)
		return fiber.NewError(fiber.StatusBadRequest, ErrBadRequest)
	}

	if form.IsValid() {
		file, err := form.Save(c.UserContext(), storage)
		switch {
		case err == nil:
			log.Infof("Stored '%s' for '%s' (%d bytes, %s)", file.StorageKey, user.Username, file.Size, file.ContentType)
			AddMessage(c, LevelSuccess, MsgFileUploaded)
			return redirect(c, workspaceURL(folderID))
		case !errors.Is(err, forms.ErrInvalidForm):
			log.Errorf("Upload for '%s' failed: %v", user.Username, err)
			AddMessage(c, LevelError, ErrUploadFailed)
			return redirect(c, workspaceURL(folderID))
		}
	}

	AddMessage(c, LevelError, ErrValidationFailed)
	return renderWorkspace(c, user, folderID, nil, form)
}

// ownedFile loads the file named by the :id parameter for the signed-in user.
func ownedFile(c *fiber.Ctx) (*models.File, error) {
	id, err := ParseInt64Param(c, "id")
	if err != nil {
		return nil, err
	}
	file, err := models.GetFileForOwner(CurrentUser(c).Username, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, ErrFileNotFound)
		}
		return nil, err
	}
	return file, nil
}

func openStored(c *fiber.Ctx, file *models.File) (io.ReadCloser, error) {
	rc, err := storage.Open(c.UserContext(), file.StorageKey)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			log.Warnf("Object %s of file %d is missing from %s storage", file.StorageKey, file.ID, storage.Name())
			return nil, fiber.NewError(fiber.StatusNotFound, ErrFileMissing)
		}
		return nil, err
	}
	return rc, nil
}

// HandleFileDownload streams a file as an attachment.
func HandleFileDownload(c *fiber.Ctx) error {
	file, err := ownedFile(c)
	if err != nil {
		return err
	}
	rc, err := openStored(c, file)
	if err != nil {
		return err
	}

	c.Attachment(file.Name)
	c.Set(fiber.HeaderContentType, file.ContentType)
	return c.SendStream(rc, int(file.Size))
}

// HandleFilePreview shows markdown as HTML and other text verbatim. Files of
// any other type are downloaded instead.
func HandleFilePreview(c *fiber.Ctx) error {
	file, err := ownedFile(c)
	if err != nil {
		return err
	}

	isMarkdown := isMarkdownFile(file)
	if !isMarkdown && !isTextFile(file) {
		return redirect(c, MustReverse("file-download", file.ID))
	}

	rc, err := openStored(c, file)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, previewLimit+1))
	if err != nil {
		return err
	}
	truncated := int64(len(data)) > previewLimit
	if truncated {
		data = data[:previewLimit]
	}

	bind := fiber.Map{
		"Title":        file.Name,
		"File":         file,
		"Truncated":    truncated,
		"PreviewLimit": previewLimit,
	}
	if isMarkdown {
		var buf bytes.Buffer
		if err := markdown.Convert(data, &buf); err != nil {
			return err
		}
		// goldmark drops raw HTML unless WithUnsafe is set.
		bind["Markdown"] = template.HTML(buf.String())
	} else {
		bind["Text"] = strings.ToValidUTF8(string(data), "�")
	}
	return render(c, "pages/preview", bind)
}

func fileExtension(file *models.File) string {
	ext := strings.ToLower(filepath.Ext(file.Name))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(file.StorageKey))
	}
	return ext
}

func isMarkdownFile(file *models.File) bool {
	switch fileExtension(file) {
	case ".md", ".markdown":
		return true
	}
	return strings.HasPrefix(file.ContentType, "text/markdown")
}

func isTextFile(file *models.File) bool {
	return strings.HasPrefix(file.ContentType, "text/") ||
		strings.HasPrefix(file.ContentType, "application/json")
}

// HandleFileDelete removes the file record and its stored content.
func HandleFileDelete(c *fiber.Ctx) error {
	file, err := ownedFile(c)
	if err != nil {
		return err
	}
	user := CurrentUser(c)

	if err := models.DeleteFile(user.Username, file.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, ErrFileNotFound)
		}
		return err
	}
	if err := storage.Delete(c.UserContext(), file.StorageKey); err != nil {
		log.Errorf("Failed to delete object %s: %v", file.StorageKey, err)
	}

	AddMessage(c, LevelSuccess, MsgFileDeleted)
	return redirect(c, workspaceURL(file.FolderID))
}

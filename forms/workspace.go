package forms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/drivespace/drivespace/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	msgFolderExists = "You already have a folder with this name."
	msgNoFile       = "No file was submitted."
	msgEmptyFile    = "The submitted file is empty."
)

// FolderForm creates a folder for its owner.
type FolderForm struct {
	Name string `form:"name"`

	Owner  string `form:"-"`
	Errors Errors `form:"-"`

	validated bool
}

// NewFolderForm returns an unbound form for owner.
func NewFolderForm(owner string) *FolderForm {
	return &FolderForm{Owner: owner, Errors: Errors{}}
}

// Bind fills the form from the request body.
func (f *FolderForm) Bind(c *fiber.Ctx) error {
	if err := c.BodyParser(f); err != nil {
		return fmt.Errorf("bind folder form: %w", err)
	}
	f.Name = strings.TrimSpace(f.Name)
	f.validated = false
	return nil
}

func (f *FolderForm) FieldErrors() Errors { return f.Errors }

// IsValid checks the folder name rules and that the owner has no folder of that name.
func (f *FolderForm) IsValid() bool {
	if f.validated {
		return !f.Errors.Any()
	}
	f.validated = true
	f.Errors = Errors{}

	f.Errors.merge(models.ValidateFields(&models.Folder{Name: f.Name}, "Name"))
	if !f.Errors.Has("name") {
		exists, err := models.FolderNameExists(f.Owner, f.Name)
		if err != nil {
			f.Errors.Add(NonFieldErrors, err.Error())
		} else if exists {
			f.Errors.Add("name", msgFolderExists)
		}
	}
	return !f.Errors.Any()
}

// Save creates the folder. The form must be valid.
func (f *FolderForm) Save() (*models.Folder, error) {
	if !f.IsValid() {
		return nil, ErrInvalidForm
	}
	folder, err := models.CreateFolder(f.Owner, f.Name)
	if errors.Is(err, models.ErrFolderExists) {
		f.Errors.Add("name", msgFolderExists)
		return nil, ErrInvalidForm
	}
	return folder, err
}

// FileForm uploads a file for its owner, optionally into a folder.
type FileForm struct {
	Name string `form:"name"`

	Upload   *multipart.FileHeader `form:"-"`
	Owner    string                `form:"-"`
	FolderID *int64                `form:"-"`
	MaxBytes int64                 `form:"-"`
	Errors   Errors                `form:"-"`

	validated bool
}

// NewFileForm returns an unbound form for owner accepting uploads of at most maxBytes.
func NewFileForm(owner string, maxBytes int64) *FileForm {
	if maxBytes <= 0 {
		maxBytes = models.DefaultMaxUploadBytes
	}
	return &FileForm{Owner: owner, MaxBytes: maxBytes, Errors: Errors{}}
}

// Bind fills the form from a multipart request. A missing upload is left nil
// and reported by IsValid.
func (f *FileForm) Bind(c *fiber.Ctx) error {
	if err := c.BodyParser(f); err != nil {
		return fmt.Errorf("bind file form: %w", err)
	}
	f.Name = strings.TrimSpace(f.Name)

	upload, err := c.FormFile("file")
	if err != nil {
		log.Debugf("no upload in file form: %v", err)
		upload = nil
	}
	f.Upload = upload
	f.validated = false
	return nil
}

func (f *FileForm) FieldErrors() Errors { return f.Errors }

// IsValid checks the name rules and that a non-empty upload within the size limit was sent.
func (f *FileForm) IsValid() bool {
	if f.validated {
		return !f.Errors.Any()
	}
	f.validated = true
	f.Errors = Errors{}

	f.Errors.merge(models.ValidateFields(&models.File{Name: f.Name}, "Name"))

	switch {
	case f.Upload == nil:
		f.Errors.Add("file", msgNoFile)
	case f.Upload.Size == 0:
		f.Errors.Add("file", msgEmptyFile)
	case f.Upload.Size > f.MaxBytes:
		f.Errors.Add("file", fmt.Sprintf("Ensure this file is at most %s (it is %s).",
			utils.HumanBytes(f.MaxBytes), utils.HumanBytes(f.Upload.Size)))
	}
	return !f.Errors.Any()
}

// Save stores the upload in backend and records it. The stored object is
// removed again when the record cannot be created.
func (f *FileForm) Save(ctx context.Context, backend filestore.Backend) (*models.File, error) {
	if !f.IsValid() {
		return nil, ErrInvalidForm
	}

	src, err := f.Upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	contentType, err := detectContentType(src, f.Upload.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	key := filestore.NewObjectKey(f.Owner, f.Upload.Filename)
	if err := backend.Put(ctx, key, src, f.Upload.Size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	file := &models.File{
		Owner:       f.Owner,
		FolderID:    f.FolderID,
		Name:        f.Name,
		StorageKey:  key,
		Size:        f.Upload.Size,
		ContentType: contentType,
	}
	if err := models.CreateFile(file); err != nil {
		if derr := backend.Delete(ctx, key); derr != nil {
			log.Errorf("failed to remove orphaned object %s: %v", key, derr)
		}
		return nil, err
	}
	return file, nil
}

// detectContentType sniffs src and rewinds it. Sniffing falls back to the
// client-declared type for generic results.
func detectContentType(src io.ReadSeeker, declared string) (string, error) {
	mtype, err := mimetype.DetectReader(src)
	if _, serr := src.Seek(0, io.SeekStart); serr != nil {
		return "", fmt.Errorf("rewind upload: %w", serr)
	}
	if err != nil {
		if declared != "" {
			return declared, nil
		}
		return "application/octet-stream", nil
	}

	detected := mtype.String()
	if (mtype.Is("application/octet-stream") || mtype.Is("text/plain")) && declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	return detected, nil
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"ops-dashboard/internal/extraction"
	"ops-dashboard/internal/models"
	"ops-dashboard/internal/storage"
)

const (
	attachmentPrefix = "attachments/"
	// FilesRoute is the public path attachments are served under.
	FilesRoute = "/api/dashboard/files/"
)

// ProjectFiles is the part of ProjectService that attachments need.
type ProjectFiles interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	AddFiles(ctx context.Context, id uuid.UUID, files []models.ProjectFile) (*models.Project, error)
	RemoveFile(ctx context.Context, id, fileID uuid.UUID) (*models.Project, *models.ProjectFile, error)
}

// Upload is one file received from a client.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadFromHeader adapts a multipart form file.
func UploadFromHeader(fh *multipart.FileHeader) Upload {
	return Upload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// AttachmentService stores project attachments in object storage.
type AttachmentService struct {
	projects ProjectFiles
	store    ObjectStore
	maxBytes int64
	now      func() time.Time
}

func NewAttachmentService(projects ProjectFiles, store ObjectStore, maxBytes int64) *AttachmentService {
	return &AttachmentService{
		projects: projects,
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// AttachFiles uploads files to a project. Archives are unpacked and each
// contained file is attached on its own. Nothing is attached if any file
// fails.
func (s *AttachmentService) AttachFiles(ctx context.Context, projectID uuid.UUID, uploads []Upload) (*models.Project, error) {
	if len(uploads) == 0 {
		return nil, validationf("no files provided")
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	var stored []models.ProjectFile
	rollback := func() {
		for _, f := range stored {
			if err := s.store.Remove(ctx, f.StorageKey); err != nil {
				slog.Warn("remove orphaned attachment", "key", f.StorageKey, "error", err)
			}
		}
	}

	for _, up := range uploads {
		if err := s.checkSize(up.Name, up.Size); err != nil {
			rollback()
			return nil, err
		}
		var files []models.ProjectFile
		var err error
		if extraction.IsArchive(up.Name) {
			files, err = s.storeArchive(ctx, up)
		} else {
			var f *models.ProjectFile
			f, err = s.storeOne(ctx, up.Name, up.Size, up.ContentType, up.Open)
			if f != nil {
				files = []models.ProjectFile{*f}
			}
		}
		stored = append(stored, files...)
		if err != nil {
			rollback()
			return nil, err
		}
	}

	project, err := s.projects.AddFiles(ctx, projectID, stored)
	if err != nil {
		rollback()
		return nil, err
	}
	slog.Info("attached files", "project", projectID, "count", len(stored))
	return project, nil
}

func (s *AttachmentService) checkSize(name string, size int64) error {
	if s.maxBytes > 0 && size > s.maxBytes {
		return validationf("file %s is larger than %d bytes", name, s.maxBytes)
	}
	return nil
}

func (s *AttachmentService) storeOne(ctx context.Context, name string, size int64, contentType string, open func() (io.ReadCloser, error)) (*models.ProjectFile, error) {
	name = filepath.Base(name)
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	src, err := open()
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", name)
	}
	defer src.Close()

	id := uuid.New()
	key := fmt.Sprintf("%s%s/%s", attachmentPrefix, id, name)
	if err := s.store.Put(ctx, key, src, size, contentType); err != nil {
		return nil, &BackendError{Op: "upload " + name, Err: err}
	}
	return &models.ProjectFile{
		ID:         id,
		Name:       name,
		Size:       size,
		Type:       contentType,
		URL:        FilesRoute + attachmentPrefix + id.String() + "/" + url.PathEscape(name),
		StorageKey: key,
		UploadedAt: s.now(),
	}, nil
}

// storeArchive spools the archive to disk so it can be walked, then stores
// every contained file.
func (s *AttachmentService) storeArchive(ctx context.Context, up Upload) ([]models.ProjectFile, error) {
	src, err := up.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", up.Name)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "upload-*"+extraction.ArchiveExt(up.Name))
	if err != nil {
		return nil, errors.Wrap(err, "could not create temporary file for archive")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	_, err = io.Copy(tmp, src)
	tmp.Close()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write uploaded archive")
	}

	var files []models.ProjectFile
	err = extraction.Walk(ctx, tmpPath, func(e extraction.Entry) error {
		if err := s.checkSize(e.Name, e.Size); err != nil {
			return err
		}
		f, err := s.storeOne(ctx, e.Name, e.Size, "", e.Open)
		if err != nil {
			return err
		}
		files = append(files, *f)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrBackend) {
			return files, err
		}
		return files, validationf("could not read archive %s: %v", up.Name, err)
	}
	if len(files) == 0 {
		return nil, validationf("archive %s contains no files", up.Name)
	}
	return files, nil
}

// RemoveFile detaches a file from a project and deletes the stored blob.
func (s *AttachmentService) RemoveFile(ctx context.Context, projectID, fileID uuid.UUID) (*models.Project, error) {
	project, removed, err := s.projects.RemoveFile(ctx, projectID, fileID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Remove(ctx, removed.StorageKey); err != nil {
		slog.Warn("remove attachment blob", "key", removed.StorageKey, "error", err)
	}
	return project, nil
}

// Open streams an attachment by storage key. The caller closes the reader.
func (s *AttachmentService) Open(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	if !strings.HasPrefix(key, attachmentPrefix) || strings.Contains(key, "..") {
		return nil, storage.ObjectInfo{}, errors.Wrapf(ErrNotFound, "file %s", key)
	}
	rc, info, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, errors.Wrapf(ErrNotFound, "file %s", key)
		}
		return nil, storage.ObjectInfo{}, &BackendError{Op: "read file", Err: err}
	}
	return rc, info, nil
}

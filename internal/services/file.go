package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medreport/apiserver/internal/storage"
	"github.com/medreport/apiserver/internal/store"
	"github.com/medreport/apiserver/types"
	"go.uber.org/zap"
)

// FileRepository defines owner-scoped persistence for file metadata.
type FileRepository interface {
	Create(ctx context.Context, file types.MedicalFile) (types.MedicalFile, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.MedicalFile, error)
	GetByOwner(ctx context.Context, ownerID, id int) (types.MedicalFile, error)
	DeleteByOwner(ctx context.Context, ownerID, id int) error
}

// UploadRequest describes one medical file upload.
type UploadRequest struct {
	OwnerID     int       `json:"-" validate:"gt=0"`
	FileType    string    `json:"file_type" validate:"required,max=100"`
	FileName    string    `json:"file_name" validate:"required,max=255"`
	Filename    string    `json:"file" validate:"required"`
	ContentType string    `json:"-"`
	Size        int64     `json:"-"`
	Content     io.Reader `json:"-" validate:"-"`
}

// FileService stores medical files and their metadata. Every operation is
// scoped to the owner passed in by the caller.
type FileService struct {
	repo  FileRepository
	blobs BlobStore
	log   *zap.Logger
	now   func() time.Time
}

func NewFileService(repo FileRepository, blobs BlobStore, log *zap.Logger) *FileService {
	return &FileService{
		repo:  repo,
		blobs: blobs,
		log:   log,
		now:   time.Now,
	}
}

// Upload writes the blob and then its metadata record. If the blob write
// fails nothing is recorded. If the record insert fails the blob stays on
// storage unreferenced and is logged.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (types.MedicalFile, error) {
	req.FileType = strings.TrimSpace(req.FileType)
	req.FileName = strings.TrimSpace(req.FileName)
	if err := validateStruct(req); err != nil {
		return types.MedicalFile{}, err
	}

	prepared, err := prepareUpload(req.Filename, reportExtensions, req.ContentType, req.Content)
	if err != nil {
		return types.MedicalFile{}, err
	}

	key := uuid.NewString() + prepared.ext
	if err := s.blobs.Put(ctx, key, prepared.body, req.Size, prepared.contentType); err != nil {
		return types.MedicalFile{}, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	file, err := s.repo.Create(ctx, types.MedicalFile{
		FileType:       req.FileType,
		FileName:       req.FileName,
		StoredFileName: key,
		FilePath:       s.blobs.Location(key),
		ContentType:    prepared.contentType,
		UserID:         req.OwnerID,
		UploadedAt:     s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("medical file blob orphaned",
			zap.Int("user_id", req.OwnerID),
			zap.String("key", key),
			zap.Error(err),
		)
		return types.MedicalFile{}, fmt.Errorf("save medical file: %w", err)
	}
	return file, nil
}

// List returns the owner's files, most recent first.
func (s *FileService) List(ctx context.Context, ownerID int) ([]types.MedicalFile, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Open returns the owner's file record and a reader over its bytes. A file
// owned by someone else is reported as store.ErrNotFound.
func (s *FileService) Open(ctx context.Context, ownerID, fileID int) (types.MedicalFile, io.ReadCloser, error) {
	file, err := s.repo.GetByOwner(ctx, ownerID, fileID)
	if err != nil {
		return types.MedicalFile{}, nil, err
	}

	rc, err := openBlob(ctx, s.blobs, s.log, file.StoredFileName)
	if err != nil {
		return types.MedicalFile{}, nil, err
	}
	return file, rc, nil
}

// Delete removes the owner's file. Blob removal is best effort: a failure is
// logged and the metadata record is deleted regardless.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID int) error {
	file, err := s.repo.GetByOwner(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.StoredFileName); err != nil {
		s.log.Warn("failed to delete medical file blob",
			zap.Int("file_id", file.ID),
			zap.String("key", file.StoredFileName),
			zap.Error(err),
		)
	}

	return s.repo.DeleteByOwner(ctx, ownerID, fileID)
}

func openBlob(ctx context.Context, blobs BlobStore, log *zap.Logger, key string) (io.ReadCloser, error) {
	rc, err := blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Warn("blob missing for stored record", zap.String("key", key))
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return rc, nil
}

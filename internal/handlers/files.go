package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/medreport/apiserver/internal/services"
	"github.com/medreport/apiserver/types"
	"go.uber.org/zap"
)

const (
	formFieldFileType = "file_type"
	formFieldFileName = "file_name"
	formFieldFile     = "file"
)

// FileService is the medical file use-case surface the file endpoints need.
type FileService interface {
	Upload(ctx context.Context, req services.UploadRequest) (types.MedicalFile, error)
	List(ctx context.Context, ownerID int) ([]types.MedicalFile, error)
	Open(ctx context.Context, ownerID, fileID int) (types.MedicalFile, io.ReadCloser, error)
	Delete(ctx context.Context, ownerID, fileID int) error
}

// FileHandler provides HTTP handlers for a user's medical files.
type FileHandler struct {
	files          FileService
	maxUploadBytes int64
	log            *zap.Logger
}

// NewFileHandler constructs a FileHandler.
func NewFileHandler(files FileService, maxUploadBytes int64, log *zap.Logger) *FileHandler {
	return &FileHandler{
		files:          files,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// FilesRouter registers file routes on the given router. Every route
// requires authentication.
func FilesRouter(
	r chi.Router,
	files FileService,
	maxUploadBytes int64,
	log *zap.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewFileHandler(files, maxUploadBytes, log)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Post("/upload", handler.Upload)
	r.Get("/list", handler.List)
	r.Route("/{fileID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Delete("/", handler.Delete)
	})
}

// FileUploadResponse is returned after a successful upload.
type FileUploadResponse struct {
	FileID int `json:"file_id"`
}

// FileListItem is one entry of the file list.
type FileListItem struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	URL      string `json:"url"`
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := parseUploadForm(w, r, h.maxUploadBytes, formFieldFile)
	defer removeForm(r)
	if err != nil {
		if !writeUploadError(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	defer file.Close()

	created, err := h.files.Upload(r.Context(), services.UploadRequest{
		OwnerID:     identity.UserID,
		FileType:    r.FormValue(formFieldFileType),
		FileName:    r.FormValue(formFieldFileName),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err, "file not found", "failed to upload file")
		return
	}

	h.log.Info("medical file uploaded",
		zap.Int("user_id", identity.UserID),
		zap.Int("file_id", created.ID),
		zap.Int64("size", header.Size),
	)
	writeJSON(w, http.StatusCreated, FileUploadResponse{FileID: created.ID})
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	files, err := h.files.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.log, err, "file not found", "failed to list files")
		return
	}

	items := make([]FileListItem, 0, len(files))
	for _, f := range files {
		items = append(items, FileListItem{
			ID:       f.ID,
			FileName: f.FileName,
			FileType: f.FileType,
			URL:      absoluteURL(r, "/files/"+strconv.Itoa(f.ID)),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseFileID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, body, err := h.files.Open(r.Context(), identity.UserID, id)
	if err != nil {
		writeServiceError(w, r, h.log, err, "file not found", "failed to fetch file")
		return
	}
	defer body.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.StoredFileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn("streaming medical file interrupted", zap.Int("file_id", file.ID), zap.Error(err))
	}
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseFileID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.files.Delete(r.Context(), identity.UserID, id); err != nil {
		writeServiceError(w, r, h.log, err, "file not found", "failed to delete file")
		return
	}

	h.log.Info("medical file deleted", zap.Int("user_id", identity.UserID), zap.Int("file_id", id))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "deleted"})
}

package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/medreport/apiserver/internal/services"
)

var (
	errUploadTooLarge = errors.New("uploaded file too large")
	errInvalidForm    = errors.New("invalid multipart form")
)

// parseUploadForm reads a multipart body capped at limit bytes and opens the
// named file part. The caller closes the file and removes the form.
func parseUploadForm(w http.ResponseWriter, r *http.Request, limit int64, field string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errUploadTooLarge
		}
		return nil, nil, errInvalidForm
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, services.ErrEmptyUpload
		}
		return nil, nil, errInvalidForm
	}
	return file, header, nil
}

func writeUploadError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, errUploadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, errUploadTooLarge.Error())
	case errors.Is(err, errInvalidForm):
		writeError(w, http.StatusBadRequest, errInvalidForm.Error())
	case errors.Is(err, services.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, services.ErrEmptyUpload.Error())
	default:
		return false
	}
	return true
}

func removeForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

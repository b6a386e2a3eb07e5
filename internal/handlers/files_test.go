package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medreport/apiserver/internal/services"
	"github.com/medreport/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadHandler(t *testing.T) {
	files := &stubFiles{}
	router := newTestRouter(nil, files, nil)
	token := tokenFor(t, 5)

	req := multipartRequest(t, "/files/upload", "file", "cbc.pdf", "%PDF-1.4",
		map[string]string{"file_type": "Blood Test", "file_name": "CBC"}, token)
	rec := do(t, router, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"file_id":42}`, rec.Body.String())
	require.Len(t, files.uploaded, 1)
	got := files.uploaded[0]
	assert.Equal(t, 5, got.OwnerID)
	assert.Equal(t, "Blood Test", got.FileType)
	assert.Equal(t, "CBC", got.FileName)
	assert.Equal(t, "cbc.pdf", got.Filename)
	assert.Equal(t, "%PDF-1.4", string(files.body))
}

func TestUploadHandlerErrors(t *testing.T) {
	token := tokenFor(t, 5)

	t.Run("missing file part", func(t *testing.T) {
		router := newTestRouter(nil, &stubFiles{}, nil)
		req := multipartRequest(t, "/files/upload", "", "", "", map[string]string{"file_type": "x", "file_name": "y"}, token)
		rec := do(t, router, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "no file uploaded", decodeError(t, rec))
	})

	t.Run("not multipart", func(t *testing.T) {
		router := newTestRouter(nil, &stubFiles{}, nil)
		rec := do(t, router, jsonRequest(http.MethodPost, "/files/upload", `{}`, token))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid multipart form", decodeError(t, rec))
	})

	t.Run("too large", func(t *testing.T) {
		router := newTestRouter(nil, &stubFiles{}, nil)
		req := multipartRequest(t, "/files/upload", "file", "big.pdf", strings.Repeat("x", 2<<20), nil, token)
		rec := do(t, router, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	serviceErrors := []struct {
		err    error
		status int
	}{
		{services.ErrInvalidFileType, http.StatusBadRequest},
		{services.ErrEmptyUpload, http.StatusBadRequest},
		{fmt.Errorf("%w: disk full", services.ErrStorageWrite), http.StatusInternalServerError},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range serviceErrors {
		t.Run(tc.err.Error(), func(t *testing.T) {
			router := newTestRouter(nil, &stubFiles{err: tc.err}, nil)
			req := multipartRequest(t, "/files/upload", "file", "a.exe", "data", nil, token)
			rec := do(t, router, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestListHandler(t *testing.T) {
	files := &stubFiles{files: []types.MedicalFile{
		{ID: 9, UserID: 1, FileName: "New", FileType: "X-Ray"},
		{ID: 3, UserID: 1, FileName: "Old", FileType: "Blood"},
		{ID: 4, UserID: 2, FileName: "Other", FileType: "Blood"},
	}}
	router := newTestRouter(nil, files, nil)

	req := httptest.NewRequest(http.MethodGet, "http://api.test/files/list", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 1))
	rec := do(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []FileListItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Equal(t, []FileListItem{
		{ID: 9, FileName: "New", FileType: "X-Ray", URL: "http://api.test/files/9"},
		{ID: 3, FileName: "Old", FileType: "Blood", URL: "http://api.test/files/3"},
	}, items)

	req = httptest.NewRequest(http.MethodGet, "/files/list", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 77))
	rec = do(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetFileHandler(t *testing.T) {
	files := &stubFiles{
		body:  []byte("%PDF-1.7"),
		files: []types.MedicalFile{{ID: 1, UserID: 1, StoredFileName: "abc.pdf", ContentType: "application/pdf"}},
	}
	router := newTestRouter(nil, files, nil)

	req := httptest.NewRequest(http.MethodGet, "/files/1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 1))
	rec := do(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=abc.pdf`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/files/1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 2))
	rec = do(t, router, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file not found", decodeError(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/files/abc", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 1))
	rec = do(t, router, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteFileHandler(t *testing.T) {
	files := &stubFiles{files: []types.MedicalFile{{ID: 1, UserID: 1}}}
	router := newTestRouter(nil, files, nil)

	req := httptest.NewRequest(http.MethodDelete, "/files/1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 2))
	rec := do(t, router, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, files.files, 1)

	req = httptest.NewRequest(http.MethodDelete, "/files/1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 1))
	rec = do(t, router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"deleted"}`, rec.Body.String())
	assert.Empty(t, files.files)
}

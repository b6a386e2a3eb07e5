package services

import (
	"errors"

	"github.com/medreport/apiserver/internal/store"
)

var (
	// ErrValidation wraps malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEmail is returned when the email belongs to another account.
	ErrDuplicateEmail = store.ErrDuplicateEmail

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidFileType = errors.New("unsupported file type")
	ErrEmptyUpload     = errors.New("no file uploaded")

	// ErrStorageWrite means the blob could not be written. No metadata
	// record exists for the upload.
	ErrStorageWrite = errors.New("failed to store file")
)

package types

import "time"

// MedicalFile is the metadata record of an uploaded report or image.
// The bytes live in blob storage under StoredFileName.
type MedicalFile struct {
	// ID is the unique identifier of the file record.
	ID int `json:"id" db:"id"`

	// FileType is the user-supplied category, e.g. "Lab Report" or "X-Ray".
	FileType string `json:"file_type" db:"file_type"`

	// FileName is the user-supplied display name.
	FileName string `json:"file_name" db:"file_name"`

	// StoredFileName is the server-generated blob key. It is never derived
	// from user input.
	StoredFileName string `json:"-" db:"stored_file_name"`

	// FilePath is the backend location of the blob.
	FilePath string `json:"-" db:"file_path"`

	// ContentType is the MIME type recorded at upload time.
	ContentType string `json:"content_type" db:"content_type"`

	// UserID identifies the owner of the file.
	UserID int `json:"user_id" db:"user_id"`

	// UploadedAt is the server time (UTC) of the upload.
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

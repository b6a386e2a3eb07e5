package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medreport/apiserver/types"
)

const fileColumns = `id, file_type, file_name, stored_file_name, file_path, content_type, user_id, uploaded_at`

// FileRepository handles persistence for medical file metadata. Every read
// and delete is filtered by owner in the same statement, so a record owned
// by someone else is indistinguishable from a missing one.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file types.MedicalFile) (types.MedicalFile, error) {
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO medical_files (file_type, file_name, stored_file_name, file_path, content_type, user_id, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		file.FileType,
		file.FileName,
		file.StoredFileName,
		file.FilePath,
		file.ContentType,
		file.UserID,
		file.UploadedAt,
	).Scan(&file.ID); err != nil {
		return types.MedicalFile{}, fmt.Errorf("insert medical file: %w", err)
	}
	return file, nil
}

// ListByOwner returns the owner's files, most recent first.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.MedicalFile, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM medical_files
		WHERE user_id = $1
		ORDER BY uploaded_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list medical files: %w", err)
	}
	defer rows.Close()

	files := make([]types.MedicalFile, 0)
	for rows.Next() {
		var file types.MedicalFile
		if err := rows.Scan(
			&file.ID,
			&file.FileType,
			&file.FileName,
			&file.StoredFileName,
			&file.FilePath,
			&file.ContentType,
			&file.UserID,
			&file.UploadedAt,
		); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *FileRepository) GetByOwner(ctx context.Context, ownerID, id int) (types.MedicalFile, error) {
	const query = `
		SELECT ` + fileColumns + `
		FROM medical_files
		WHERE id = $1 AND user_id = $2`
	var file types.MedicalFile
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&file.ID,
		&file.FileType,
		&file.FileName,
		&file.StoredFileName,
		&file.FilePath,
		&file.ContentType,
		&file.UserID,
		&file.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MedicalFile{}, ErrNotFound
		}
		return types.MedicalFile{}, err
	}
	return file, nil
}

func (r *FileRepository) DeleteByOwner(ctx context.Context, ownerID, id int) error {
	const query = `DELETE FROM medical_files WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete medical file: %w", err)
	}
	return expectAffected(result)
}

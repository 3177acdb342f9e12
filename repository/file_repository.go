package repository

import (
	"context"
	"errors"

	"helios-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fileColumns = `id, contract_id, user_id, filename, mime_type, format, size, storage_path, created_at`

// FileRepository handles database operations for stored originals
type FileRepository struct {
	db *pgxpool.Pool
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

func scanFile(row rowScanner) (*models.File, error) {
	file := &models.File{}
	err := row.Scan(
		&file.ID,
		&file.ContractID,
		&file.UserID,
		&file.Filename,
		&file.MimeType,
		&file.Format,
		&file.Size,
		&file.StoragePath,
		&file.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Create creates a new file record
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (
			id, contract_id, user_id, filename, mime_type, format, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}

	return r.db.QueryRow(
		ctx, query,
		file.ID,
		file.ContractID,
		file.UserID,
		file.Filename,
		file.MimeType,
		file.Format,
		file.Size,
		file.StoragePath,
	).Scan(&file.ID, &file.CreatedAt)
}

// GetByID retrieves a file by ID
func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	file, err := scanFile(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return file, err
}

// ListByContractID retrieves the originals of a contract in upload order
func (r *FileRepository) ListByContractID(ctx context.Context, contractID uuid.UUID) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE contract_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// Delete deletes a file record
func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM files WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

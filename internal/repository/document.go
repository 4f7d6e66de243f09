package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/todys/internal/model"
	"github.com/dharsanguruparan/todys/internal/storage"
)

const selectColumns = `id, file_name, file_type, media_type, size_bytes, original_file_path,
	transformed_file_path, status, error_message, created_at, updated_at, expires_at, processed_at`

// FileRepository stores upload records in Postgres.
type FileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository constructs a repository.
func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

// Create inserts rec. Timestamps the caller left zero are set to now.
func (r *FileRepository) Create(ctx context.Context, rec *model.FileRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.StatusUploaded
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO temp_files (id, file_name, file_type, media_type, size_bytes, original_file_path, status, created_at, updated_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.ID, rec.FileName, rec.FileType, rec.MediaType, rec.Size, rec.StoragePath, rec.Status, rec.CreatedAt, rec.UpdatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// Get returns a record by id, or an error wrapping storage.ErrNotFound.
func (r *FileRepository) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM temp_files WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("file record %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("select file record: %w", err)
	}
	return rec, nil
}

// MarkProcessing sets the status to processing.
func (r *FileRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, model.StatusProcessing, nil, nil, false)
}

// MarkProcessed stores the transformed artifact path.
func (r *FileRepository) MarkProcessed(ctx context.Context, id, transformedPath string) error {
	return r.updateStatus(ctx, id, model.StatusProcessed, &transformedPath, nil, true)
}

// MarkFailed records why processing failed.
func (r *FileRepository) MarkFailed(ctx context.Context, id, msg string) error {
	return r.updateStatus(ctx, id, model.StatusFailed, nil, &msg, true)
}

func (r *FileRepository) updateStatus(ctx context.Context, id string, status model.FileStatus, transformedPath, errorMsg *string, finished bool) error {
	now := time.Now().UTC()
	var processedAt *time.Time
	if finished {
		processedAt = &now
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE temp_files
		SET status=$1,
			transformed_file_path = COALESCE($2, transformed_file_path),
			error_message = $3,
			processed_at = COALESCE($4, processed_at),
			updated_at = $5
		WHERE id=$6
	`, status, transformedPath, errorMsg, processedAt, now, id)
	if err != nil {
		return fmt.Errorf("update file record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file record %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListExpired returns up to limit records past their expiry, oldest first.
func (r *FileRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.FileRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM temp_files
		WHERE expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select expired records: %w", err)
	}
	defer rows.Close()
	var out []*model.FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the record for id.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM temp_files WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("file record %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanRecord(row pgx.Row) (*model.FileRecord, error) {
	var (
		rec             model.FileRecord
		transformedPath sql.NullString
		errorMsg        sql.NullString
		processedAt     sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.FileName, &rec.FileType, &rec.MediaType, &rec.Size, &rec.StoragePath,
		&transformedPath, &rec.Status, &errorMsg, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &processedAt)
	if err != nil {
		return nil, err
	}
	if transformedPath.Valid {
		path := transformedPath.String
		rec.TransformedPath = &path
	}
	if errorMsg.Valid {
		msg := errorMsg.String
		rec.ErrorMessage = &msg
	}
	if processedAt.Valid {
		at := processedAt.Time
		rec.ProcessedAt = &at
	}
	return &rec, nil
}

var _ storage.RecordStore = (*FileRepository)(nil)

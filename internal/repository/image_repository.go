package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lewtec/imgreader/internal/domain"
)

// ImageRepository implements domain.ImageRepository on sqlite
type ImageRepository struct {
	db DBTX
}

// NewImageRepository creates a new ImageRepository
func NewImageRepository(db DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

const imageColumns = `id, project_id, name, sha256, size_bytes, width, height, imported_at`

func scanImage(row interface{ Scan(...interface{}) error }) (*domain.Image, error) {
	var (
		img        domain.Image
		importedAt int64
	)
	err := row.Scan(&img.ID, &img.ProjectID, &img.Name, &img.SHA256, &img.SizeBytes, &img.Width, &img.Height, &importedAt)
	if err != nil {
		return nil, err
	}
	img.ImportedAt = time.Unix(importedAt, 0)
	return &img, nil
}

// Upsert creates an image record or replaces the one with the same name
func (r *ImageRepository) Upsert(ctx context.Context, img *domain.Image) (*domain.Image, error) {
	importedAt := img.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}
	row := r.db.QueryRowContext(ctx, `
INSERT INTO images (project_id, name, sha256, size_bytes, width, height, imported_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_id, name) DO UPDATE SET
  sha256 = excluded.sha256,
  size_bytes = excluded.size_bytes,
  width = excluded.width,
  height = excluded.height,
  imported_at = excluded.imported_at
RETURNING `+imageColumns,
		img.ProjectID, img.Name, img.SHA256, img.SizeBytes, img.Width, img.Height, importedAt.Unix())
	return scanImage(row)
}

// GetByName retrieves an image by its name
func (r *ImageRepository) GetByName(ctx context.Context, projectID int64, name string) (*domain.Image, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE project_id = ? AND name = ?`, projectID, name)
	img, err := scanImage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return img, nil
}

// List retrieves every image of a project
func (r *ImageRepository) List(ctx context.Context, projectID int64) ([]*domain.Image, error) {
	return r.list(ctx,
		`SELECT `+imageColumns+` FROM images WHERE project_id = ? ORDER BY name`, projectID)
}

// ListInFolder retrieves the images whose name is prefixed by folder
func (r *ImageRepository) ListInFolder(ctx context.Context, projectID int64, folder string) ([]*domain.Image, error) {
	prefix := folder + domain.NameSeparator
	// substr instead of LIKE so '%' and '_' in folder names match literally
	return r.list(ctx, `
SELECT `+imageColumns+` FROM images
WHERE project_id = ? AND substr(name, 1, ?) = ?
ORDER BY name`, projectID, len(prefix), prefix)
}

func (r *ImageRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Image, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	return result, rows.Err()
}

// Rename changes the name of an image
func (r *ImageRepository) Rename(ctx context.Context, projectID int64, oldName, newName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE images SET name = ? WHERE project_id = ? AND name = ?`, newName, projectID, oldName)
	return err
}

// Delete removes an image record
func (r *ImageRepository) Delete(ctx context.Context, projectID int64, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE project_id = ? AND name = ?`, projectID, name)
	return err
}

// Count returns the number of images in a project
func (r *ImageRepository) Count(ctx context.Context, projectID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE project_id = ?`, projectID).Scan(&count)
	return count, err
}

var _ domain.ImageRepository = (*ImageRepository)(nil)

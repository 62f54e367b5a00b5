package repository

import (
	"context"

	"github.com/lewtec/imgreader/internal/domain"
)

// FolderRepository implements domain.FolderRepository on sqlite
type FolderRepository struct {
	db DBTX
}

// NewFolderRepository creates a new FolderRepository
func NewFolderRepository(db DBTX) *FolderRepository {
	return &FolderRepository{db: db}
}

// Create registers a folder in a project
func (r *FolderRepository) Create(ctx context.Context, projectID int64, name string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO folders (project_id, name) VALUES (?, ?)`, projectID, name)
	return err
}

// List retrieves folder names ordered by name
func (r *FolderRepository) List(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM folders WHERE project_id = ? ORDER BY name`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		result = append(result, name)
	}
	return result, rows.Err()
}

// Exists checks if a folder is registered
func (r *FolderRepository) Exists(ctx context.Context, projectID int64, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM folders WHERE project_id = ? AND name = ?`, projectID, name).Scan(&count)
	return count > 0, err
}

// Rename changes a folder's name
func (r *FolderRepository) Rename(ctx context.Context, projectID int64, oldName, newName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE folders SET name = ? WHERE project_id = ? AND name = ?`, newName, projectID, oldName)
	return err
}

// Delete removes a folder registration
func (r *FolderRepository) Delete(ctx context.Context, projectID int64, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE project_id = ? AND name = ?`, projectID, name)
	return err
}

var _ domain.FolderRepository = (*FolderRepository)(nil)

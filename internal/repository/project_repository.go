package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lewtec/imgreader/internal/domain"
)

// ProjectRepository implements domain.ProjectRepository on sqlite
type ProjectRepository struct {
	db DBTX
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, name, created_at, last_opened_at, archived`

func scanProject(row interface{ Scan(...interface{}) error }) (*domain.Project, error) {
	var (
		p          domain.Project
		createdAt  int64
		lastOpened sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &createdAt, &lastOpened, &p.Archived); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	if lastOpened.Valid {
		t := time.UnixMilli(lastOpened.Int64)
		p.LastOpenedAt = &t
	}
	return &p, nil
}

// Create creates a new project record
func (r *ProjectRepository) Create(ctx context.Context, name string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO projects (name, created_at) VALUES (?, ?) RETURNING `+projectColumns,
		name, time.Now().Unix())
	return scanProject(row)
}

// GetByName retrieves a project by its name
func (r *ProjectRepository) GetByName(ctx context.Context, name string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	p, err := scanProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// List retrieves projects, most recently opened first
func (r *ProjectRepository) List(ctx context.Context, archived bool) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+projectColumns+` FROM projects
WHERE archived = ?
ORDER BY last_opened_at IS NULL, last_opened_at DESC, name`, archived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// TouchOpened records when a project was last opened, with millisecond precision
func (r *ProjectRepository) TouchOpened(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE projects SET last_opened_at = ? WHERE id = ?`, at.UnixMilli(), id)
	return err
}

// SetArchived moves a project in or out of the archive
func (r *ProjectRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE projects SET archived = ? WHERE id = ?`, archived, id)
	return err
}

// GetSettings retrieves the evaluation settings of a project
func (r *ProjectRepository) GetSettings(ctx context.Context, id int64) (*domain.ProjectSettings, error) {
	var (
		prompt      sql.NullString
		temperature sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT custom_prompt, temperature FROM projects WHERE id = ?`, id).Scan(&prompt, &temperature)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	settings := &domain.ProjectSettings{CustomPrompt: stringPtr(prompt)}
	if temperature.Valid {
		t := temperature.Float64
		settings.Temperature = &t
	}
	return settings, nil
}

// UpdateSettings replaces the evaluation settings of a project
func (r *ProjectRepository) UpdateSettings(ctx context.Context, id int64, settings domain.ProjectSettings) error {
	temperature := sql.NullFloat64{}
	if settings.Temperature != nil {
		temperature = sql.NullFloat64{Float64: *settings.Temperature, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET custom_prompt = ?, temperature = ? WHERE id = ?`,
		nullString(settings.CustomPrompt), temperature, id)
	return err
}

// Delete removes a project and every row that belongs to it
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	for _, stmt := range []string{
		`DELETE FROM evaluations WHERE project_id = ?`,
		`DELETE FROM images WHERE project_id = ?`,
		`DELETE FROM folders WHERE project_id = ?`,
		`DELETE FROM projects WHERE id = ?`,
	} {
		if _, err := r.db.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.ProjectRepository = (*ProjectRepository)(nil)

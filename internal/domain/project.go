package domain

import (
	"context"
	"time"
)

// Project is a named container of images, folders and evaluations
type Project struct {
	ID           int64
	Name         string
	CreatedAt    time.Time
	LastOpenedAt *time.Time
	Archived     bool
}

// ProjectSettings holds the per-project evaluation tuning.
// A nil field means the evaluator default applies.
type ProjectSettings struct {
	CustomPrompt *string
	Temperature  *float64
}

// ProjectRepository defines the interface for project storage operations
type ProjectRepository interface {
	// Create creates a new project record
	Create(ctx context.Context, name string) (*Project, error)

	// GetByName retrieves a project by its name, nil if missing
	GetByName(ctx context.Context, name string) (*Project, error)

	// List retrieves projects with the given archived flag, most recently opened first
	List(ctx context.Context, archived bool) ([]*Project, error)

	// TouchOpened records when a project was last opened
	TouchOpened(ctx context.Context, id int64, at time.Time) error

	// SetArchived moves a project in or out of the archive
	SetArchived(ctx context.Context, id int64, archived bool) error

	// GetSettings retrieves the evaluation settings of a project
	GetSettings(ctx context.Context, id int64) (*ProjectSettings, error)

	// UpdateSettings replaces the evaluation settings of a project
	UpdateSettings(ctx context.Context, id int64, settings ProjectSettings) error

	// Delete removes a project and every row that belongs to it
	Delete(ctx context.Context, id int64) error
}

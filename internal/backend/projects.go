package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/repository"
)

// CreateProject creates an empty project
func (b *Backend) CreateProject(ctx context.Context, name string) (*domain.Project, error) {
	if err := domain.ValidateProjectName(name); err != nil {
		return nil, err
	}
	var created *domain.Project
	err := repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		projects := repository.NewProjectRepository(tx)
		existing, err := projects.GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("while looking up project '%s': %w", name, err)
		}
		if existing != nil {
			return &domain.ConflictError{Resource: "project", Name: name}
		}
		created, err = projects.Create(ctx, name)
		if err != nil {
			return fmt.Errorf("while creating project '%s': %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("project created", zap.String("project", name))
	return created, nil
}

// GetProject returns a project record
func (b *Backend) GetProject(ctx context.Context, name string) (*domain.Project, error) {
	return b.project(ctx, b.db, name)
}

// ListProjects returns the names of active projects, most recently opened first
func (b *Backend) ListProjects(ctx context.Context) ([]string, error) {
	return b.listProjects(ctx, false)
}

// ListArchivedProjects returns the names of archived projects
func (b *Backend) ListArchivedProjects(ctx context.Context) ([]string, error) {
	return b.listProjects(ctx, true)
}

func (b *Backend) listProjects(ctx context.Context, archived bool) ([]string, error) {
	projects, err := repository.NewProjectRepository(b.db).List(ctx, archived)
	if err != nil {
		return nil, fmt.Errorf("while listing projects: %w", err)
	}
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	return names, nil
}

// RecordOpened stamps the project as opened now
func (b *Backend) RecordOpened(ctx context.Context, name string) error {
	p, err := b.project(ctx, b.db, name)
	if err != nil {
		return err
	}
	return repository.NewProjectRepository(b.db).TouchOpened(ctx, p.ID, time.Now())
}

// ArchiveProject hides a project from the active list
func (b *Backend) ArchiveProject(ctx context.Context, name string) error {
	return b.setArchived(ctx, name, true)
}

// UnarchiveProject restores an archived project
func (b *Backend) UnarchiveProject(ctx context.Context, name string) error {
	return b.setArchived(ctx, name, false)
}

func (b *Backend) setArchived(ctx context.Context, name string, archived bool) error {
	p, err := b.project(ctx, b.db, name)
	if err != nil {
		return err
	}
	if err := repository.NewProjectRepository(b.db).SetArchived(ctx, p.ID, archived); err != nil {
		return fmt.Errorf("while updating project '%s': %w", name, err)
	}
	b.log.Info("project archive flag changed", zap.String("project", name), zap.Bool("archived", archived))
	return nil
}

// DeleteProject removes a project with its files
func (b *Backend) DeleteProject(ctx context.Context, name string) error {
	p, err := b.project(ctx, b.db, name)
	if err != nil {
		return err
	}
	return b.deleteProject(ctx, p)
}

// DeleteArchivedProject removes a project only if it is archived
func (b *Backend) DeleteArchivedProject(ctx context.Context, name string) error {
	p, err := b.project(ctx, b.db, name)
	if err != nil {
		return err
	}
	if !p.Archived {
		return &domain.ValidationError{Message: fmt.Sprintf("project %q is not archived", name)}
	}
	return b.deleteProject(ctx, p)
}

func (b *Backend) deleteProject(ctx context.Context, p *domain.Project) error {
	err := repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		return repository.NewProjectRepository(tx).Delete(ctx, p.ID)
	})
	if err != nil {
		return fmt.Errorf("while deleting project '%s': %w", p.Name, err)
	}
	b.invalidateProject(p.Name)
	if err := b.files.RemoveProject(p.Name); err != nil {
		return fmt.Errorf("while removing files of project '%s': %w", p.Name, err)
	}
	b.log.Info("project deleted", zap.String("project", p.Name))
	return nil
}

// GetSettings returns the evaluation settings of a project
func (b *Backend) GetSettings(ctx context.Context, name string) (*domain.ProjectSettings, error) {
	p, err := b.project(ctx, b.db, name)
	if err != nil {
		return nil, err
	}
	settings, err := repository.NewProjectRepository(b.db).GetSettings(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("while reading settings of '%s': %w", name, err)
	}
	return settings, nil
}

// UpdateSettings replaces the evaluation settings of a project
func (b *Backend) UpdateSettings(ctx context.Context, name string, settings domain.ProjectSettings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	p, err := b.project(ctx, b.db, name)
	if err != nil {
		return err
	}
	if err := repository.NewProjectRepository(b.db).UpdateSettings(ctx, p.ID, settings); err != nil {
		return fmt.Errorf("while saving settings of '%s': %w", name, err)
	}
	return nil
}

func validateSettings(settings domain.ProjectSettings) error {
	if settings.Temperature == nil {
		return nil
	}
	err := validation.Validate(*settings.Temperature, validation.Min(0.0), validation.Max(1.0))
	if err != nil {
		return &domain.ValidationError{Message: "temperature: " + err.Error()}
	}
	return nil
}

package backend

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/repository"
)

// CreateFolder registers a new empty folder
func (b *Backend) CreateFolder(ctx context.Context, project, name string) error {
	if err := domain.ValidateFolderName(name); err != nil {
		return err
	}
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return err
	}
	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		folders := repository.NewFolderRepository(tx)
		exists, err := folders.Exists(ctx, p.ID, name)
		if err != nil {
			return err
		}
		if exists {
			return &domain.ConflictError{Resource: "folder", Name: name}
		}
		return folders.Create(ctx, p.ID, name)
	})
	if err != nil {
		return err
	}
	if err := b.files.MkdirFolder(project, name); err != nil {
		return fmt.Errorf("while creating directory of folder '%s': %w", name, err)
	}
	b.log.Info("folder created", zap.String("project", project), zap.String("folder", name))
	return nil
}

// ListFolders returns the folder names of a project
func (b *Backend) ListFolders(ctx context.Context, project string) ([]string, error) {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return nil, err
	}
	return repository.NewFolderRepository(b.db).List(ctx, p.ID)
}

// RenameFolder renames a folder and re-keys every image inside it
func (b *Backend) RenameFolder(ctx context.Context, project, oldName, newName string) error {
	if err := domain.ValidateFolderName(newName); err != nil {
		return err
	}
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return err
	}
	if oldName == newName {
		return b.requireFolder(ctx, b.db, p.ID, oldName)
	}

	var moved [][2]string
	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		if err := b.requireFolder(ctx, tx, p.ID, oldName); err != nil {
			return err
		}
		folders := repository.NewFolderRepository(tx)
		exists, err := folders.Exists(ctx, p.ID, newName)
		if err != nil {
			return err
		}
		if exists {
			return &domain.ConflictError{Resource: "folder", Name: newName}
		}
		if err := folders.Rename(ctx, p.ID, oldName, newName); err != nil {
			return fmt.Errorf("while renaming folder '%s': %w", oldName, err)
		}

		images := repository.NewImageRepository(tx)
		evals := repository.NewEvaluationRepository(tx)
		inside, err := images.ListInFolder(ctx, p.ID, oldName)
		if err != nil {
			return err
		}
		for _, img := range inside {
			renamed := domain.RenameFolderPrefix(img.Name, oldName, newName)
			if err := images.Rename(ctx, p.ID, img.Name, renamed); err != nil {
				return fmt.Errorf("while renaming image '%s': %w", img.Name, err)
			}
			if err := evals.Rename(ctx, p.ID, img.Name, renamed); err != nil {
				return fmt.Errorf("while re-keying evaluation of '%s': %w", img.Name, err)
			}
			moved = append(moved, [2]string{img.Name, renamed})
		}
		if err := b.files.MkdirFolder(project, newName); err != nil {
			return err
		}
		return b.renameFiles(project, moved)
	})
	if err != nil {
		return err
	}
	if err := b.files.RemoveFolder(project, oldName); err != nil {
		b.log.Warn("old folder directory left behind", zap.String("folder", oldName), zap.Error(err))
	}
	b.invalidateProject(project)
	b.log.Info("folder renamed",
		zap.String("project", project), zap.String("from", oldName), zap.String("to", newName),
		zap.Int("images", len(moved)))
	return nil
}

// DeleteFolder removes a folder together with the images inside it
func (b *Backend) DeleteFolder(ctx context.Context, project, name string) error {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return err
	}
	var deleted []string
	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		if err := b.requireFolder(ctx, tx, p.ID, name); err != nil {
			return err
		}
		images := repository.NewImageRepository(tx)
		inside, err := images.ListInFolder(ctx, p.ID, name)
		if err != nil {
			return err
		}
		for _, img := range inside {
			if err := images.Delete(ctx, p.ID, img.Name); err != nil {
				return fmt.Errorf("while deleting image '%s': %w", img.Name, err)
			}
			deleted = append(deleted, img.Name)
		}
		if err := repository.NewEvaluationRepository(tx).DeleteForImages(ctx, p.ID, deleted); err != nil {
			return err
		}
		return repository.NewFolderRepository(tx).Delete(ctx, p.ID, name)
	})
	if err != nil {
		return err
	}
	b.invalidate(project, deleted...)
	for _, imageName := range deleted {
		if err := b.files.Remove(project, imageName); err != nil {
			b.log.Warn("image file left behind", zap.String("image", imageName), zap.Error(err))
		}
	}
	if err := b.files.RemoveFolder(project, name); err != nil {
		b.log.Warn("folder directory left behind", zap.String("folder", name), zap.Error(err))
	}
	b.log.Info("folder deleted",
		zap.String("project", project), zap.String("folder", name), zap.Int("images", len(deleted)))
	return nil
}

package backend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/filestore"
	"github.com/lewtec/imgreader/internal/imaging"
	"github.com/lewtec/imgreader/internal/metrics"
	"github.com/lewtec/imgreader/internal/repository"
)

// ListPreviews returns a thumbnail for every image of the project.
// Images whose file cannot be decoded are skipped with a warning.
func (b *Backend) ListPreviews(ctx context.Context, project string) ([]domain.ImagePreview, error) {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return nil, err
	}
	images, err := repository.NewImageRepository(b.db).List(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("while listing images of '%s': %w", project, err)
	}

	previews := make([]domain.ImagePreview, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		preview, err := b.preview(project, img)
		if err != nil {
			b.log.Warn("skipping image without preview",
				zap.String("project", project), zap.String("image", img.Name), zap.Error(err))
			continue
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

func (b *Backend) preview(project string, img *domain.Image) (domain.ImagePreview, error) {
	if cached, ok := b.previews.Get(project, img.Name); ok {
		metrics.RecordPreviewCache(true)
		return cached, nil
	}
	metrics.RecordPreviewCache(false)
	data, err := b.files.ReadAll(project, img.Name)
	if err != nil {
		return domain.ImagePreview{}, err
	}
	thumb, width, height, err := imaging.Thumbnail(data, b.maxDim, b.quality)
	if err != nil {
		return domain.ImagePreview{}, err
	}
	preview := domain.ImagePreview{
		Name:      img.Name,
		Thumbnail: thumb,
		SizeBytes: int64(len(data)),
		Width:     width,
		Height:    height,
	}
	b.previews.Set(project, img.Name, preview)
	return preview, nil
}

// LoadFull returns the full resolution bytes of one image
func (b *Backend) LoadFull(ctx context.Context, project, imageName string) (*domain.ImageFull, error) {
	if cached, ok := b.fulls.Get(project, imageName); ok {
		return &cached, nil
	}
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return nil, err
	}
	img, err := repository.NewImageRepository(b.db).GetByName(ctx, p.ID, imageName)
	if err != nil {
		return nil, fmt.Errorf("while looking up image '%s': %w", imageName, err)
	}
	if img == nil {
		return nil, &domain.NotFoundError{Resource: "image", Name: imageName}
	}
	data, err := b.files.ReadAll(project, imageName)
	if err != nil {
		return nil, fmt.Errorf("while reading image '%s': %w", imageName, err)
	}
	full := domain.ImageFull{
		Name:      imageName,
		Data:      data,
		SizeBytes: int64(len(data)),
		Width:     img.Width,
		Height:    img.Height,
	}
	b.fulls.Set(project, imageName, full)
	return &full, nil
}

type importItem struct {
	path   string
	name   string
	data   []byte
	width  int
	height int
}

// ImportImages copies image files into the project, replacing images that
// already carry the same name. Every path is checked and every copy staged
// before the catalogue changes; the copies replace the stored files only
// after the catalogue commits, so a failed import leaves both untouched.
func (b *Backend) ImportImages(ctx context.Context, project string, paths []string, folder *string) error {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return err
	}
	if folder != nil {
		if err := b.requireFolder(ctx, b.db, p.ID, *folder); err != nil {
			return err
		}
	}

	items := make([]importItem, 0, len(paths))
	for _, path := range paths {
		item, err := readImportItem(path, folder)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	staged := make([]*filestore.Staged, 0, len(items))
	discard := func() {
		for _, st := range staged {
			st.Discard()
		}
	}
	for _, item := range items {
		st, err := b.files.Stage(project, item.name, bytes.NewReader(item.data))
		if err != nil {
			discard()
			return fmt.Errorf("while copying '%s': %w", item.path, err)
		}
		staged = append(staged, st)
	}

	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		images := repository.NewImageRepository(tx)
		for _, item := range items {
			sha, err := imaging.HashReader(bytes.NewReader(item.data))
			if err != nil {
				return err
			}
			_, err = images.Upsert(ctx, &domain.Image{
				ProjectID: p.ID,
				Name:      item.name,
				SHA256:    sha,
				SizeBytes: int64(len(item.data)),
				Width:     item.width,
				Height:    item.height,
			})
			if err != nil {
				return fmt.Errorf("while cataloguing '%s': %w", item.name, err)
			}
		}
		return nil
	})
	if err != nil {
		discard()
		return err
	}

	var errs []error
	for _, st := range staged {
		if err := st.Commit(); err != nil {
			errs = append(errs, err)
		}
		b.invalidate(project, st.Name)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	b.log.Info("images imported", zap.String("project", project), zap.Int("count", len(items)))
	return nil
}

func readImportItem(path string, folder *string) (importItem, error) {
	base := filepath.Base(path)
	if err := domain.ValidateBaseName(base); err != nil {
		return importItem{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return importItem{}, fmt.Errorf("while reading '%s': %w", path, err)
	}
	width, height, _, err := imaging.Probe(bytes.NewReader(data))
	if err != nil {
		return importItem{}, &domain.ValidationError{Message: fmt.Sprintf("'%s' is not a supported image: %s", path, err)}
	}
	name := base
	if folder != nil {
		name = domain.JoinName(*folder, base)
	}
	return importItem{path: path, name: name, data: data, width: width, height: height}, nil
}

// DeleteImages removes images and their evaluations. Unknown names are ignored.
func (b *Backend) DeleteImages(ctx context.Context, project string, names []string) error {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return err
	}
	var deleted []string
	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		images := repository.NewImageRepository(tx)
		for _, name := range names {
			img, err := images.GetByName(ctx, p.ID, name)
			if err != nil {
				return fmt.Errorf("while looking up image '%s': %w", name, err)
			}
			if img == nil {
				continue
			}
			if err := images.Delete(ctx, p.ID, name); err != nil {
				return fmt.Errorf("while deleting image '%s': %w", name, err)
			}
			deleted = append(deleted, name)
		}
		return repository.NewEvaluationRepository(tx).DeleteForImages(ctx, p.ID, deleted)
	})
	if err != nil {
		return err
	}
	b.invalidate(project, deleted...)
	for _, name := range deleted {
		if err := b.files.Remove(project, name); err != nil {
			b.log.Warn("image file left behind", zap.String("image", name), zap.Error(err))
		}
	}
	b.log.Info("images deleted", zap.String("project", project), zap.Int("count", len(deleted)))
	return nil
}

// MoveImages re-keys images under target, or to root when target is nil.
// Images already in place are skipped; a name collision fails the whole move.
func (b *Backend) MoveImages(ctx context.Context, project string, names []string, target *string) error {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return err
	}
	if target != nil {
		if err := b.requireFolder(ctx, b.db, p.ID, *target); err != nil {
			return err
		}
	}

	var moved [][2]string
	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		images := repository.NewImageRepository(tx)
		evals := repository.NewEvaluationRepository(tx)
		taken := map[string]bool{}
		for _, name := range names {
			newName := domain.Rekey(name, target)
			if newName == name {
				continue
			}
			img, err := images.GetByName(ctx, p.ID, name)
			if err != nil {
				return fmt.Errorf("while looking up image '%s': %w", name, err)
			}
			if img == nil {
				return &domain.NotFoundError{Resource: "image", Name: name}
			}
			existing, err := images.GetByName(ctx, p.ID, newName)
			if err != nil {
				return fmt.Errorf("while looking up image '%s': %w", newName, err)
			}
			if existing != nil || taken[newName] {
				return &domain.ConflictError{Resource: "image", Name: newName}
			}
			taken[newName] = true
			if err := images.Rename(ctx, p.ID, name, newName); err != nil {
				return fmt.Errorf("while renaming image '%s': %w", name, err)
			}
			if err := evals.Rename(ctx, p.ID, name, newName); err != nil {
				return fmt.Errorf("while re-keying evaluation of '%s': %w", name, err)
			}
			moved = append(moved, [2]string{name, newName})
		}
		return b.renameFiles(project, moved)
	})
	if err != nil {
		return err
	}
	for _, m := range moved {
		b.invalidate(project, m[0], m[1])
	}
	b.log.Info("images moved", zap.String("project", project), zap.Int("count", len(moved)))
	return nil
}

// renameFiles renames files in order and undoes the done part on failure.
func (b *Backend) renameFiles(project string, renames [][2]string) error {
	for i, r := range renames {
		if err := b.files.Rename(project, r[0], r[1]); err != nil {
			for j := i - 1; j >= 0; j-- {
				if undoErr := b.files.Rename(project, renames[j][1], renames[j][0]); undoErr != nil {
					b.log.Error("could not undo file rename", zap.String("image", renames[j][1]), zap.Error(undoErr))
				}
			}
			return fmt.Errorf("while moving file '%s': %w", r[0], err)
		}
	}
	return nil
}

// Package backend implements the workspace gateway on a sqlite catalogue
// and a billy file store.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/evaluator"
	"github.com/lewtec/imgreader/internal/filestore"
	"github.com/lewtec/imgreader/internal/imaging"
	"github.com/lewtec/imgreader/internal/logging"
	"github.com/lewtec/imgreader/internal/repository"
)

// Options tunes a Backend. Zero values fall back to defaults.
type Options struct {
	Evaluators          evaluator.Factory
	Jobs                int
	PreviewMaxDimension int
	PreviewQuality      int
	FullCacheSize       int
	// ExportFS opens the destination of an export.
	ExportFS func(dir string) (billy.Filesystem, error)
}

// Backend implements domain.Gateway
type Backend struct {
	db         *sql.DB
	files      *filestore.Store
	evaluators evaluator.Factory
	jobs       int
	maxDim     int
	quality    int
	exportFS   func(dir string) (billy.Filesystem, error)
	previews   *imageCache[domain.ImagePreview]
	fulls      *imageCache[domain.ImageFull]
	log        *zap.Logger
}

// New creates a Backend over an opened catalogue and a file store.
func New(db *sql.DB, files *filestore.Store, opts Options) *Backend {
	b := &Backend{
		db:         db,
		files:      files,
		evaluators: opts.Evaluators,
		jobs:       opts.Jobs,
		maxDim:     opts.PreviewMaxDimension,
		quality:    opts.PreviewQuality,
		exportFS:   opts.ExportFS,
		log:        logging.Named("backend"),
	}
	if b.evaluators == nil {
		b.evaluators = evaluator.Static(evaluator.NewLorem())
	}
	if b.jobs < 1 {
		b.jobs = 4
	}
	if b.maxDim <= 0 {
		b.maxDim = imaging.PreviewMaxDimension
	}
	if b.quality <= 0 {
		b.quality = imaging.PreviewQuality
	}
	if b.exportFS == nil {
		b.exportFS = osExportFS
	}
	fullCacheSize := opts.FullCacheSize
	if fullCacheSize <= 0 {
		fullCacheSize = 16
	}
	b.previews = newImageCache[domain.ImagePreview](0)
	b.fulls = newImageCache[domain.ImageFull](fullCacheSize)
	return b
}

func osExportFS(dir string) (billy.Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("while creating output directory '%s': %w", dir, err)
	}
	return osfs.New(dir), nil
}

// project resolves a project name to its record.
func (b *Backend) project(ctx context.Context, db repository.DBTX, name string) (*domain.Project, error) {
	p, err := repository.NewProjectRepository(db).GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("while looking up project '%s': %w", name, err)
	}
	if p == nil {
		return nil, &domain.NotFoundError{Resource: "project", Name: name}
	}
	return p, nil
}

// requireFolder checks that folder is registered in the project.
func (b *Backend) requireFolder(ctx context.Context, db repository.DBTX, projectID int64, folder string) error {
	ok, err := repository.NewFolderRepository(db).Exists(ctx, projectID, folder)
	if err != nil {
		return fmt.Errorf("while looking up folder '%s': %w", folder, err)
	}
	if !ok {
		return &domain.NotFoundError{Resource: "folder", Name: folder}
	}
	return nil
}

func (b *Backend) invalidate(project string, names ...string) {
	b.previews.Invalidate(project, names...)
	b.fulls.Invalidate(project, names...)
}

func (b *Backend) invalidateProject(project string) {
	b.previews.InvalidateProject(project)
	b.fulls.InvalidateProject(project)
}

var _ domain.Gateway = (*Backend)(nil)

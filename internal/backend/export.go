package backend

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-billy/v6"
	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
)

// UnknownSuffix is appended when an evaluation suggested no suffix.
const UnknownSuffix = "_UNKNOWN"

// ExportEvaluated copies every successfully evaluated image into outputDir,
// renamed with its suggested suffix. Failed copies are reported as messages
// and do not stop the export.
func (b *Backend) ExportEvaluated(ctx context.Context, project string, evaluations []domain.Evaluation, outputDir string) ([]string, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, &domain.ValidationError{Message: "output directory is required"}
	}
	if _, err := b.project(ctx, b.db, project); err != nil {
		return nil, err
	}
	out, err := b.exportFS(outputDir)
	if err != nil {
		return nil, err
	}

	failures := []string{}
	used := map[string]bool{}
	exported := 0
	for _, eval := range evaluations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if eval.Result == nil {
			continue
		}
		target := exportName(out, used, eval.ImageName, eval.Result.SuggestedSuffix)
		used[target] = true
		if err := b.copyOut(out, project, eval.ImageName, target); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", eval.ImageName, err))
			continue
		}
		exported++
	}
	b.log.Info("export finished",
		zap.String("project", project),
		zap.String("output", outputDir),
		zap.Int("exported", exported),
		zap.Int("failed", len(failures)))
	return failures, nil
}

// exportName builds "<stem><suffix><ext>" and appends _2, _3, ... until the
// name is free both in this export and on disk.
func exportName(out billy.Filesystem, used map[string]bool, imageName string, suffix *string) string {
	base := domain.BaseName(imageName)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	s := UnknownSuffix
	if suffix != nil && *suffix != "" {
		s = *suffix
	}
	candidate := stem + s + ext
	for n := 2; taken(out, used, candidate); n++ {
		candidate = fmt.Sprintf("%s%s_%d%s", stem, s, n, ext)
	}
	return candidate
}

func taken(out billy.Filesystem, used map[string]bool, name string) bool {
	if used[name] {
		return true
	}
	_, err := out.Stat(name)
	return err == nil
}

func (b *Backend) copyOut(out billy.Filesystem, project, imageName, target string) error {
	src, err := b.files.Open(project, imageName)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := out.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

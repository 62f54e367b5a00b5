package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lewtec/imgreader/internal/domain"
	"github.com/lewtec/imgreader/internal/evaluator"
	"github.com/lewtec/imgreader/internal/imaging"
	"github.com/lewtec/imgreader/internal/metrics"
	"github.com/lewtec/imgreader/internal/repository"
)

// EvaluateImages runs one batched evaluation. Per-image failures are stored
// as failed evaluations; the call itself only fails when nothing could be
// evaluated. It returns every evaluation of the project after the merge.
func (b *Backend) EvaluateImages(ctx context.Context, project string, req domain.EvaluationRequest, opts domain.EvaluationOptions) ([]domain.Evaluation, error) {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return nil, err
	}

	images := repository.NewImageRepository(b.db)
	seen := map[string]bool{}
	var inputs []evaluator.Input
	prompt := evaluator.BuildPrompt(opts.CustomPrompt)
	for _, name := range req.ImageNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		img, err := images.GetByName(ctx, p.ID, name)
		if err != nil {
			return nil, fmt.Errorf("while looking up image '%s': %w", name, err)
		}
		if img == nil {
			b.log.Warn("skipping unknown image", zap.String("project", project), zap.String("image", name))
			continue
		}
		data, err := b.files.ReadAll(project, name)
		if err != nil {
			return nil, fmt.Errorf("while reading image '%s': %w", name, err)
		}
		inputs = append(inputs, evaluator.Input{
			ImageName:    name,
			OriginalPath: b.files.ImagePath(project, name),
			MediaType:    imaging.MediaType(name),
			Data:         data,
			Prompt:       prompt,
			Temperature:  opts.Temperature,
		})
	}
	if len(inputs) == 0 {
		return nil, &domain.ValidationError{Message: "no matching images found in project"}
	}

	ev, err := b.evaluators(req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("while preparing evaluator: %w", err)
	}

	started := time.Now()
	results := evaluator.Run(ctx, ev, inputs, b.jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	succeeded, failed := 0, 0
	now := time.Now()
	err = repository.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		evals := repository.NewEvaluationRepository(tx)
		for _, result := range results {
			result.EvaluatedAt = now
			if result.Result != nil {
				succeeded++
			} else {
				failed++
			}
			if err := evals.Upsert(ctx, p.ID, result); err != nil {
				return fmt.Errorf("while saving evaluation of '%s': %w", result.ImageName, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordEvaluationBatch(succeeded, failed)
	b.log.Info("evaluation batch finished",
		zap.String("project", project),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)))

	return repository.NewEvaluationRepository(b.db).List(ctx, p.ID)
}

// ListEvaluations returns every stored evaluation of a project
func (b *Backend) ListEvaluations(ctx context.Context, project string) ([]domain.Evaluation, error) {
	p, err := b.project(ctx, b.db, project)
	if err != nil {
		return nil, err
	}
	return repository.NewEvaluationRepository(b.db).List(ctx, p.ID)
}

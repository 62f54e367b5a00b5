package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lewtec/imgreader/internal/domain"
)

// EvaluationRepository implements domain.EvaluationRepository on sqlite.
// Rows are keyed by image name; callers re-key them when images move.
type EvaluationRepository struct {
	db DBTX
}

// NewEvaluationRepository creates a new EvaluationRepository
func NewEvaluationRepository(db DBTX) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Upsert creates or overwrites the evaluation of an image
func (r *EvaluationRepository) Upsert(ctx context.Context, projectID int64, eval domain.Evaluation) error {
	var description, suffix, raw, original sql.NullString
	if eval.Result != nil {
		description = sql.NullString{String: eval.Result.BriefDescription, Valid: true}
		suffix = nullString(eval.Result.SuggestedSuffix)
		raw = sql.NullString{String: eval.Result.RawOutput, Valid: true}
		original = sql.NullString{String: eval.Result.OriginalPath, Valid: true}
	}
	evaluatedAt := eval.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO evaluations (project_id, image_name, brief_description, suggested_suffix, raw_output, original_path, fail_reason, evaluated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_id, image_name) DO UPDATE SET
  brief_description = excluded.brief_description,
  suggested_suffix = excluded.suggested_suffix,
  raw_output = excluded.raw_output,
  original_path = excluded.original_path,
  fail_reason = excluded.fail_reason,
  evaluated_at = excluded.evaluated_at`,
		projectID, eval.ImageName, description, suffix, raw, original, nullString(eval.FailReason), evaluatedAt.Unix())
	return err
}

// List retrieves every evaluation of a project ordered by image name
func (r *EvaluationRepository) List(ctx context.Context, projectID int64) ([]domain.Evaluation, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT image_name, brief_description, suggested_suffix, raw_output, original_path, fail_reason, evaluated_at
FROM evaluations WHERE project_id = ? ORDER BY image_name`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Evaluation{}
	for rows.Next() {
		var (
			eval                           domain.Evaluation
			description, suffix, raw, orig sql.NullString
			failReason                     sql.NullString
			evaluatedAt                    int64
		)
		if err := rows.Scan(&eval.ImageName, &description, &suffix, &raw, &orig, &failReason, &evaluatedAt); err != nil {
			return nil, err
		}
		eval.EvaluatedAt = time.Unix(evaluatedAt, 0)
		eval.FailReason = stringPtr(failReason)
		if eval.FailReason == nil {
			eval.Result = &domain.EvaluationResult{
				BriefDescription: description.String,
				SuggestedSuffix:  stringPtr(suffix),
				RawOutput:        raw.String,
				OriginalPath:     orig.String,
			}
		}
		result = append(result, eval)
	}
	return result, rows.Err()
}

// Rename re-keys the evaluation of an image
func (r *EvaluationRepository) Rename(ctx context.Context, projectID int64, oldName, newName string) error {
	// a stale row under the new name would violate the unique key
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM evaluations WHERE project_id = ? AND image_name = ?`, projectID, newName); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE evaluations SET image_name = ? WHERE project_id = ? AND image_name = ?`, newName, projectID, oldName)
	return err
}

// DeleteForImages removes the evaluations of the given images
func (r *EvaluationRepository) DeleteForImages(ctx context.Context, projectID int64, names []string) error {
	for _, name := range names {
		_, err := r.db.ExecContext(ctx,
			`DELETE FROM evaluations WHERE project_id = ? AND image_name = ?`, projectID, name)
		if err != nil {
			return err
		}
	}
	return nil
}

var _ domain.EvaluationRepository = (*EvaluationRepository)(nil)

package domain

import (
	"context"
	"time"
)

// EvaluationResult is the successful outcome of evaluating one image
type EvaluationResult struct {
	BriefDescription string
	SuggestedSuffix  *string
	RawOutput        string
	OriginalPath     string
}

// Evaluation holds the latest evaluation of one image.
// Exactly one of Result and FailReason is set.
type Evaluation struct {
	ImageName   string
	Result      *EvaluationResult
	FailReason  *string
	EvaluatedAt time.Time
}

// Valid reports whether exactly one of Result and FailReason is populated.
func (e Evaluation) Valid() bool {
	return (e.Result == nil) != (e.FailReason == nil)
}

// Failed builds an evaluation entry carrying a failure reason.
func Failed(imageName, reason string) Evaluation {
	return Evaluation{ImageName: imageName, FailReason: &reason}
}

// Succeeded builds an evaluation entry carrying a result.
func Succeeded(imageName string, result EvaluationResult) Evaluation {
	return Evaluation{ImageName: imageName, Result: &result}
}

// EvaluationRequest names the images of one batched evaluation call
type EvaluationRequest struct {
	APIKey     string
	ImageNames []string
}

// EvaluationOptions carries the optional prompt tuning of a call
type EvaluationOptions struct {
	CustomPrompt *string
	Temperature  *float64
}

// EvaluationRepository defines the interface for evaluation storage operations
type EvaluationRepository interface {
	// Upsert creates or overwrites the evaluation of an image
	Upsert(ctx context.Context, projectID int64, eval Evaluation) error

	// List retrieves every evaluation of a project ordered by image name
	List(ctx context.Context, projectID int64) ([]Evaluation, error)

	// Rename re-keys the evaluation of an image
	Rename(ctx context.Context, projectID int64, oldName, newName string) error

	// DeleteForImages removes the evaluations of the given images
	DeleteForImages(ctx context.Context, projectID int64, names []string) error
}

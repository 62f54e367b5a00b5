package domain

import "context"

// Gateway is the only way the workspace engine reaches persisted state.
// Every call either succeeds with its result or fails with an error; callers
// treat all failures alike.
type Gateway interface {
	CreateProject(ctx context.Context, name string) (*Project, error)
	ListProjects(ctx context.Context) ([]string, error)
	RecordOpened(ctx context.Context, project string) error
	GetSettings(ctx context.Context, project string) (*ProjectSettings, error)
	UpdateSettings(ctx context.Context, project string, settings ProjectSettings) error

	ListPreviews(ctx context.Context, project string) ([]ImagePreview, error)
	LoadFull(ctx context.Context, project, imageName string) (*ImageFull, error)

	// ImportImages copies files into the project, under folder when non-nil.
	ImportImages(ctx context.Context, project string, paths []string, folder *string) error
	DeleteImages(ctx context.Context, project string, names []string) error
	// MoveImages re-keys names under target, or to root when target is nil.
	MoveImages(ctx context.Context, project string, names []string, target *string) error

	// EvaluateImages evaluates the requested images and returns the project's
	// evaluation set as the backend sees it after the call.
	EvaluateImages(ctx context.Context, project string, req EvaluationRequest, opts EvaluationOptions) ([]Evaluation, error)
	ListEvaluations(ctx context.Context, project string) ([]Evaluation, error)
	// ExportEvaluated returns one message per failed copy; empty means success.
	ExportEvaluated(ctx context.Context, project string, evaluations []Evaluation, outputDir string) ([]string, error)

	CreateFolder(ctx context.Context, project, name string) error
	ListFolders(ctx context.Context, project string) ([]string, error)
	RenameFolder(ctx context.Context, project, oldName, newName string) error
	DeleteFolder(ctx context.Context, project, name string) error
}

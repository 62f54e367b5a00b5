package domain

import "context"

// FolderRepository defines the interface for folder storage operations
type FolderRepository interface {
	// Create registers a folder in a project
	Create(ctx context.Context, projectID int64, name string) error

	// List retrieves folder names ordered by name
	List(ctx context.Context, projectID int64) ([]string, error)

	// Exists checks if a folder is registered
	Exists(ctx context.Context, projectID int64, name string) (bool, error)

	// Rename changes a folder's name
	Rename(ctx context.Context, projectID int64, oldName, newName string) error

	// Delete removes a folder registration
	Delete(ctx context.Context, projectID int64, name string) error
}

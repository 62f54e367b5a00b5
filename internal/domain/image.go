package domain

import (
	"context"
	"time"
)

// Image is the catalogue record of a file stored in a project
type Image struct {
	ID         int64
	ProjectID  int64
	Name       string
	SHA256     string
	SizeBytes  int64
	Width      int
	Height     int
	ImportedAt time.Time
}

// ImagePreview is the thumbnail projection of an image, loaded in bulk
type ImagePreview struct {
	Name      string
	Thumbnail []byte
	SizeBytes int64
	Width     int
	Height    int
}

// ImageFull is the full resolution projection of an image, loaded on demand
type ImageFull struct {
	Name      string
	Data      []byte
	SizeBytes int64
	Width     int
	Height    int
}

// ImageRepository defines the interface for image storage operations
type ImageRepository interface {
	// Upsert creates an image record or replaces the one with the same name
	Upsert(ctx context.Context, img *Image) (*Image, error)

	// GetByName retrieves an image by its name, nil if missing
	GetByName(ctx context.Context, projectID int64, name string) (*Image, error)

	// List retrieves every image of a project ordered by name
	List(ctx context.Context, projectID int64) ([]*Image, error)

	// ListInFolder retrieves the images whose name is prefixed by folder
	ListInFolder(ctx context.Context, projectID int64, folder string) ([]*Image, error)

	// Rename changes the name of an image
	Rename(ctx context.Context, projectID int64, oldName, newName string) error

	// Delete removes an image record
	Delete(ctx context.Context, projectID int64, name string) error

	// Count returns the number of images in a project
	Count(ctx context.Context, projectID int64) (int64, error)
}

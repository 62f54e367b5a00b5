package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)

type (
	// NotFoundError indicates a project, folder or image does not exist
	NotFoundError struct {
		Resource string
		Name     string
	}

	// ValidationError indicates invalid input caught before touching storage
	ValidationError struct {
		Message string
	}

	// ConflictError indicates the target name is already taken
	ConflictError struct {
		Resource string
		Name     string
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Name)
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Resource, e.Name)
}

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ConflictError) Is(target error) bool   { return target == ErrConflict }

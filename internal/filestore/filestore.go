// Package filestore keeps project image files on a billy filesystem.
//
// Layout: projects/<project>/images/<image name>, where a foldered image
// name maps to one sub-directory level.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/google/uuid"
)

// Store reads and writes project image files
type Store struct {
	fs billy.Filesystem
}

// New wraps an existing billy filesystem.
func New(fs billy.Filesystem) *Store {
	return &Store{fs: fs}
}

// NewOS stores files under baseDir on the local disk.
func NewOS(baseDir string) *Store {
	return New(osfs.New(baseDir))
}

// NewMemory stores files in memory.
func NewMemory() *Store {
	return New(memfs.New())
}

// Filesystem exposes the underlying billy filesystem.
func (s *Store) Filesystem() billy.Filesystem {
	return s.fs
}

// ImagePath returns the storage path of an image.
func (s *Store) ImagePath(project, name string) string {
	return path.Join(s.imagesDir(project), name)
}

func (s *Store) imagesDir(project string) string {
	return path.Join("projects", project, "images")
}

// Write stores the content of r as the image name, replacing any previous
// file. The content lands in a temporary file first and is renamed into place.
func (s *Store) Write(project, name string, r io.Reader) (int64, error) {
	staged, err := s.Stage(project, name, r)
	if err != nil {
		return 0, err
	}
	if err := staged.Commit(); err != nil {
		return 0, err
	}
	return staged.Size, nil
}

// Staged is image content written next to its target but not yet in place.
// Exactly one of Commit or Discard must be called.
type Staged struct {
	Name string
	Size int64

	fs     billy.Filesystem
	temp   string
	target string
}

// Stage writes the content of r to a temporary file beside the image name.
// The current image, if any, is untouched until Commit.
func (s *Store) Stage(project, name string, r io.Reader) (*Staged, error) {
	target := s.ImagePath(project, name)
	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("while creating directory for '%s': %w", name, err)
	}
	tempFile := path.Join(path.Dir(target), fmt.Sprintf(".%s.tmp", uuid.New()))
	f, err := s.fs.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("while creating '%s': %w", tempFile, err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		s.fs.Remove(tempFile)
		return nil, fmt.Errorf("while writing '%s': %w", name, err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tempFile)
		return nil, err
	}
	return &Staged{Name: name, Size: n, fs: s.fs, temp: tempFile, target: target}, nil
}

// Commit moves the staged content into place, replacing any previous file.
func (st *Staged) Commit() error {
	if _, err := st.fs.Stat(st.target); err == nil {
		if err := st.fs.Remove(st.target); err != nil {
			st.Discard()
			return fmt.Errorf("while replacing '%s': %w", st.Name, err)
		}
	}
	if err := st.fs.Rename(st.temp, st.target); err != nil {
		st.Discard()
		return fmt.Errorf("while moving '%s' into place: %w", st.Name, err)
	}
	return nil
}

// Discard drops the staged content.
func (st *Staged) Discard() {
	st.fs.Remove(st.temp)
}

// Open opens an image for reading.
func (s *Store) Open(project, name string) (billy.File, error) {
	return s.fs.Open(s.ImagePath(project, name))
}

// ReadAll returns the content of an image.
func (s *Store) ReadAll(project, name string) ([]byte, error) {
	f, err := s.Open(project, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Exists reports whether an image file is present.
func (s *Store) Exists(project, name string) bool {
	_, err := s.fs.Stat(s.ImagePath(project, name))
	return err == nil
}

// Rename moves an image file to a new name.
func (s *Store) Rename(project, oldName, newName string) error {
	target := s.ImagePath(project, newName)
	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return fmt.Errorf("while creating directory for '%s': %w", newName, err)
	}
	return s.fs.Rename(s.ImagePath(project, oldName), target)
}

// Remove deletes an image file. Missing files are not an error.
func (s *Store) Remove(project, name string) error {
	err := s.fs.Remove(s.ImagePath(project, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MkdirFolder creates the directory backing a folder.
func (s *Store) MkdirFolder(project, folder string) error {
	return s.fs.MkdirAll(s.ImagePath(project, folder), 0o755)
}

// RemoveFolder removes the directory backing a folder once it is empty.
func (s *Store) RemoveFolder(project, folder string) error {
	entries, err := s.fs.ReadDir(s.ImagePath(project, folder))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("folder '%s' is not empty", folder)
	}
	return s.fs.Remove(s.ImagePath(project, folder))
}

// RemoveProject removes every file and directory of a project.
func (s *Store) RemoveProject(project string) error {
	return s.removeTree(path.Join("projects", project))
}

func (s *Store) removeTree(dir string) error {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		child := path.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := s.removeTree(child); err != nil {
				return err
			}
			continue
		}
		if err := s.fs.Remove(child); err != nil {
			return err
		}
	}
	return s.fs.Remove(dir)
}

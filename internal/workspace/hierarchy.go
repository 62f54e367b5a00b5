package workspace

import "github.com/lewtec/imgreader/internal/domain"

// FolderGroup is the part of a hierarchy that lives under one folder
type FolderGroup struct {
	Name   string
	Images []string
}

// Hierarchy partitions image names into the root level and one group per
// folder.
type Hierarchy struct {
	Root    []string
	Folders []FolderGroup
}

// BuildHierarchy projects a flat preview list onto the folder list. Names
// keep their list order inside each part. A name whose prefix matches no
// listed folder is treated as a root image.
func BuildHierarchy(previews []domain.ImagePreview, folders []string) Hierarchy {
	h := Hierarchy{
		Root:    []string{},
		Folders: make([]FolderGroup, len(folders)),
	}
	index := make(map[string]int, len(folders))
	for i, f := range folders {
		h.Folders[i] = FolderGroup{Name: f, Images: []string{}}
		if _, dup := index[f]; !dup {
			index[f] = i
		}
	}
	for _, p := range previews {
		folder := domain.FolderOf(p.Name)
		if i, ok := index[folder]; ok && folder != "" {
			h.Folders[i].Images = append(h.Folders[i].Images, p.Name)
			continue
		}
		h.Root = append(h.Root, p.Name)
	}
	return h
}

// Flatten returns the root images followed by every folder's images, in
// folder list order. Range selection works on this ordering.
func (h Hierarchy) Flatten() []string {
	n := len(h.Root)
	for _, g := range h.Folders {
		n += len(g.Images)
	}
	order := make([]string, 0, n)
	order = append(order, h.Root...)
	for _, g := range h.Folders {
		order = append(order, g.Images...)
	}
	return order
}

// Folder returns the images of one folder, nil when the folder is unknown.
func (h Hierarchy) Folder(name string) []string {
	for _, g := range h.Folders {
		if g.Name == name {
			return g.Images
		}
	}
	return nil
}

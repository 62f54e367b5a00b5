package domain

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NameSeparator splits a folder prefix from the base name of an image.
// It is reserved: neither folder names nor base names may contain it.
const NameSeparator = "/"

const (
	MaxFolderNameLength  = 255
	MaxProjectNameLength = 255
)

var noSeparator = regexp.MustCompile(`^[^/]+$`)

// SplitName returns the folder prefix and base name of an image name.
// Root-level images have an empty folder.
func SplitName(name string) (folder, base string) {
	idx := strings.Index(name, NameSeparator)
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// FolderOf returns the folder an image name belongs to, or "" for root.
func FolderOf(name string) string {
	folder, _ := SplitName(name)
	return folder
}

// BaseName returns the image name without its folder prefix.
func BaseName(name string) string {
	_, base := SplitName(name)
	return base
}

// JoinName builds an image name from a folder and a base name.
func JoinName(folder, base string) string {
	if folder == "" {
		return base
	}
	return folder + NameSeparator + base
}

// InFolder reports whether name lives directly under folder.
func InFolder(name, folder string) bool {
	return folder != "" && strings.HasPrefix(name, folder+NameSeparator)
}

// Rekey returns the name an image gets when moved to target (nil means root).
func Rekey(name string, target *string) string {
	base := BaseName(name)
	if target == nil {
		return base
	}
	return JoinName(*target, base)
}

// RenameFolderPrefix substitutes the old folder prefix of name with newFolder.
// Names outside oldFolder are returned unchanged.
func RenameFolderPrefix(name, oldFolder, newFolder string) string {
	if !InFolder(name, oldFolder) {
		return name
	}
	return JoinName(newFolder, BaseName(name))
}

type folderName struct {
	Name string
}

// ValidateFolderName checks a folder name against the naming rules.
func ValidateFolderName(name string) error {
	f := folderName{Name: name}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required,
			validation.Length(1, MaxFolderNameLength),
			validation.Match(noSeparator).Error("folder name cannot contain slashes"),
			validation.By(notDotName),
		),
	)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// ValidateBaseName checks the file part of an image name.
func ValidateBaseName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Match(noSeparator).Error("image name cannot contain slashes"),
		validation.By(notDotName),
	)
	if err != nil {
		return &ValidationError{Message: "image name: " + err.Error()}
	}
	return nil
}

// ValidateProjectName checks a project name before it is used as a directory.
func ValidateProjectName(name string) error {
	err := validation.Validate(strings.TrimSpace(name),
		validation.Required,
		validation.Length(1, MaxProjectNameLength),
		validation.Match(noSeparator).Error("project name cannot contain slashes"),
		validation.By(notDotName),
	)
	if err != nil {
		return &ValidationError{Message: "project name: " + err.Error()}
	}
	return nil
}

func notDotName(value interface{}) error {
	s, _ := value.(string)
	if s == "." || s == ".." {
		return validation.NewError("validation_dot_name", "must not be a relative path element")
	}
	return nil
}

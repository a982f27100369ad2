package model

import (
	"time"

	"github.com/google/uuid"
)

type FileType string

const (
	SourceFile FileType = "source"
	BuildFile  FileType = "build"
	ConfigFile FileType = "config"
)

func (t FileType) IsValid() bool {
	switch t {
	case SourceFile, BuildFile, ConfigFile:
		return true
	}
	return false
}

// Writable reports whether files of this type may be written through the file API.
func (t FileType) Writable() bool {
	return t == SourceFile || t == ConfigFile
}

// File is a single artifact of a project, identified by name and path.
type File struct {
	ID           uuid.UUID `gorm:"primaryKey" json:"id"`
	ProjectID    uuid.UUID `gorm:"uniqueIndex:idx_file_location" json:"-"`
	Name         string    `gorm:"uniqueIndex:idx_file_location" json:"name"`
	Path         string    `gorm:"uniqueIndex:idx_file_location" json:"path"`
	Index        int       `json:"-"`
	Content      string    `json:"content"`
	Type         FileType  `json:"type"`
	ReadOnly     bool      `json:"readOnly"`
	LastModified time.Time `json:"lastModified"`
}

type UpsertFile struct {
	Name    string   `json:"name" validate:"required,excludesall=/\\"`
	Content string   `json:"content"`
	Path    string   `json:"path"`
	Type    FileType `json:"type" validate:"omitempty,oneof=source build config"`
}

// Matches reports whether the file sits at the given name and path.
func (f *File) Matches(name, path string) bool {
	return f.Name == name && f.Path == path
}

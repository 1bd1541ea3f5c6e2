// Package models defines the domain types shared across notebundle.
package models

import (
	"path"
	"strings"
	"time"
)

// NoteExt is the extension of files treated as notes.
const NoteExt = ".md"

// FileMetadata is a lightweight description of one vault file.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum,omitempty"` // notes only
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNote reports whether the file is a markdown note.
func (m FileMetadata) IsNote() bool {
	return IsNotePath(m.Path)
}

// IsNotePath reports whether p names a markdown note.
func IsNotePath(p string) bool {
	return strings.EqualFold(path.Ext(p), NoteExt)
}

// Link kinds.
const (
	LinkInline = "inline"
	LinkEmbed  = "embed"
)

// Link represents a directed reference from a note to a raw target.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // "inline" or "embed"
}

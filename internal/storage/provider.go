// Package storage defines the file-system abstraction used for the lead
// import inbox and contract documents.
package storage

import "time"

// FileMeta describes one stored file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Match selects files by base name.
type Match func(name string) bool

// Provider is the interface for rooted file operations. Paths are relative
// to the provider root.
type Provider interface {
	// List returns metadata for every file under dir accepted by match.
	// Hidden files are skipped. A nil match accepts everything.
	List(dir string, match Match) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}

// Package storage archives uploaded statement files on the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown file id.
var ErrNotFound = errors.New("stored file not found")

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum_sha256"`
	Path        string    `json:"path"` // relative to the storage root
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Save stores r under a fresh id
	Save(ctx context.Context, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns the file content and its metadata
	Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file by its ID
	Delete(ctx context.Context, fileID uuid.UUID) error

	// List returns every stored file, newest first
	List(ctx context.Context) ([]*FileInfo, error)

	// Info returns metadata for a file without opening it
	Info(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)
}

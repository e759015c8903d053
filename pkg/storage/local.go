package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDir = ".meta"

// LocalStorage implements Storage using the local filesystem. Files live
// under <base>/<YYYY>/<MM>/ with a JSON sidecar per file in <base>/.meta.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(basePath, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

// Save stores a file and returns its metadata
func (s *LocalStorage) Save(ctx context.Context, filename, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fileID := uuid.New()
	created := s.now().UTC()

	relDir := filepath.Join(created.Format("2006"), created.Format("01"))
	if err := os.MkdirAll(filepath.Join(s.basePath, relDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create month directory: %w", err)
	}

	relPath := filepath.Join(relDir, fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filename)))
	fullPath := filepath.Join(s.basePath, relPath)

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Checksum:    hex.EncodeToString(hash.Sum(nil)),
		Path:        relPath,
		CreatedAt:   created,
	}

	if err := s.saveMetadata(info); err != nil {
		os.Remove(fullPath)
		return nil, err
	}
	return info, nil
}

// Open retrieves a file by its ID
func (s *LocalStorage) Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.Info(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.basePath, info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

// Delete removes a file and its metadata
func (s *LocalStorage) Delete(ctx context.Context, fileID uuid.UUID) error {
	info, err := s.Info(ctx, fileID)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, info.Path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(s.metaPath(fileID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// List returns all stored files, newest first
func (s *LocalStorage) List(ctx context.Context) ([]*FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, metaDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := s.Info(ctx, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

// Info returns metadata for a file without opening it
func (s *LocalStorage) Info(_ context.Context, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(fileID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

func (s *LocalStorage) metaPath(fileID uuid.UUID) string {
	return filepath.Join(s.basePath, metaDir, fileID.String()+".json")
}

func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(info.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename keeps only the base name and replaces characters that are
// unsafe in paths
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	replacer := strings.NewReplacer(
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	name = replacer.Replace(name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}

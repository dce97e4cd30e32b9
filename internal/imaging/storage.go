package imaging

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage persists normalized images and returns the name to record on the product.
type Storage interface {
	Save(ctx context.Context, img NormalizedImage) (string, error)
}

// DirStorage keeps images under a media root directory.
type DirStorage struct {
	root string
	dir  string
}

// NewDirStorage creates root/dir if needed. Stored names are relative to root.
func NewDirStorage(root, dir string) (*DirStorage, error) {
	if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
		return nil, fmt.Errorf("imaging: create media dir: %w", err)
	}
	return &DirStorage{root: root, dir: dir}, nil
}

// Save writes img under a collision-free name. The file appears atomically.
func (s *DirStorage) Save(ctx context.Context, img NormalizedImage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := filepath.Ext(img.Name)
	base := strings.TrimSuffix(img.Name, ext)
	name := path.Join(s.dir, fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], strings.ToLower(ext)))

	tmp, err := os.CreateTemp(filepath.Join(s.root, s.dir), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("imaging: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("imaging: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("imaging: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, filepath.FromSlash(name))); err != nil {
		return "", fmt.Errorf("imaging: store %s: %w", name, err)
	}
	return name, nil
}


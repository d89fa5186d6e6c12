package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/irfansh/bugtracker/internal"
)

// DiskStore writes uploads into a single flat directory. Stored names are
// random, so the original filename only contributes its extension.
type DiskStore struct {
	dir     string
	allowed map[string]struct{}
}

func NewDiskStore(dir string, allowedExtensions []string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &DiskStore{dir: dir, allowed: allowed}, nil
}

func (s *DiskStore) Store(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := s.allowed[ext]; !ok {
		return "", apperrors.NewValidationFieldError("screenshot",
			fmt.Sprintf("file extension %q is not allowed", ext),
			apperrors.ErrCodeUnsupportedFileType)
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperrors.NewInternalError("failed to create upload file", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", apperrors.NewInternalError("failed to write upload file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", apperrors.NewInternalError("failed to flush upload file", err)
	}

	return name, nil
}

// Delete removes a stored file. Unknown references are not an error: the
// record they belonged to is already gone.
func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// References are bare filenames; Base strips any path a caller smuggles in.
	path := filepath.Join(s.dir, filepath.Base(ref))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dir exposes the storage root for the static file route.
func (s *DiskStore) Dir() string {
	return s.dir
}

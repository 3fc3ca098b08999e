// Package blobstore stores opaque, already encrypted blobs by key.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"portfolio_service/internal/common"
)

const (
	dirPerm  = 0o770
	filePerm = 0o640
)

// Store is the blob storage collaborator used by the upload service.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// LocalStore keeps blobs as files below a root directory. Keys are slash
// separated relative paths such as "users/<id>/files/resume_<id>.pdf.enc".
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	const op = "blobstore.NewLocalStore"

	if root == "" {
		return nil, fmt.Errorf("%s: %w: empty root directory", op, common.ErrConfiguration)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("%s: mkdir %s: %w", op, abs, err)
	}

	return &LocalStore{root: abs}, nil
}

// Put writes data under key, replacing any previous blob. The write goes to a
// temp file first so readers never see a partial blob.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	const op = "blobstore.Put"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.resolve(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(p), dirPerm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "blobstore.Get"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.resolve(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", op, common.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// Delete removes the blob. A missing blob is not an error, so retention
// purges can be retried.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	const op = "blobstore.Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.resolve(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// resolve maps key to a path inside root and rejects anything that would
// escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: bad blob key %q", common.ErrValidation, key)
	}

	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: bad blob key %q", common.ErrValidation, key)
	}

	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

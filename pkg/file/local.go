package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on the local filesystem for development.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates a filesystem storage rooted at dir. Stored objects
// are reported with URLs under baseURL.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, ErrInvalidConfig
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
	}, nil
}

func (s *LocalStorage) Save(_ context.Context, key, _ string, r io.Reader) (*Object, error) {
	key, err := validateKey(key)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Join(ErrFailedToSave, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToSave, err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		return nil, errors.Join(ErrFailedToSave, err)
	}

	return &Object{Key: key, URL: s.baseURL + key, Size: size}, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	key, err := validateKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return errors.Join(ErrFailedToDelete, err)
	}
	return nil
}

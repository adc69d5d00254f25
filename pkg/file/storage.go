// Package file stores uploaded voice-note audio. Production uses S3 (or an
// S3-compatible service); local development can store on disk.
package file

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	ErrInvalidConfig      = errors.New("file.errors.invalid_config")
	ErrInvalidKey         = errors.New("file.errors.invalid_key")
	ErrFailedToLoadConfig = errors.New("file.errors.failed_to_load_aws_config")
	ErrFailedToSave       = errors.New("file.errors.failed_to_save")
	ErrFailedToDelete     = errors.New("file.errors.failed_to_delete")
	ErrAccessDenied       = errors.New("file.errors.access_denied")
	ErrBucketNotFound     = errors.New("file.errors.bucket_not_found")
)

// Object describes a stored file.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Storage persists uploaded audio blobs.
type Storage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// validateKey rejects empty keys and path traversal.
func validateKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}

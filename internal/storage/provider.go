// Package storage defines the blob store contract used by the asset download
// pass. Implementations live in subpackages: local, gcs, minio and memory.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("invalid object key")

// BlobStore persists downloaded assets under deterministic keys.
type BlobStore interface {
	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// PutObject stores the reader's content under key and returns its URI.
	PutObject(ctx context.Context, key string, contentType string, data io.Reader) (string, error)
}

// ObjectKey joins an optional prefix and key into a slash-separated object
// name. It rejects empty keys and keys that climb out of the prefix.
func ObjectKey(prefix, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" || cleaned != "/"+strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return cleaned[1:], nil
	}
	return prefix + cleaned, nil
}

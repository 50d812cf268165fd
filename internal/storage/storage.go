// Package storage defines the interface for item image storage.
// The local backend writes under a directory served as static files; the
// MinIO backend works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrExists is returned when uploading to a key that is already taken.
var ErrExists = errors.New("object already exists")

// Storage is the interface for uploading and removing stored images.
type Storage interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the URL for a key. It may be relative to the API host
	// (local backend) or absolute (object storage).
	PublicURL(key string) string
}

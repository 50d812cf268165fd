package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores objects as files in a single directory. Keys are
// plain file names; anything with a path separator is rejected.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

// NewLocalStorage creates dir if needed and returns a LocalStorage whose
// public URLs are "<urlPrefix>/<key>".
func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &LocalStorage{dir: dir, urlPrefix: strings.Trim(urlPrefix, "/")}, nil
}

// Upload writes reader to a new file. An existing file is never overwritten.
func (s *LocalStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("write %q: %w", key, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("create %q: %w", key, err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(path) //nolint:errcheck
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path) //nolint:errcheck
		return fmt.Errorf("close %q: %w", key, err)
	}
	return nil
}

// Delete removes the file for key; a missing file is not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the host-relative URL path for key.
func (s *LocalStorage) PublicURL(key string) string {
	return s.urlPrefix + "/" + key
}

// Prefix is the URL path, without slashes, that Handler should be mounted under.
func (s *LocalStorage) Prefix() string {
	return s.urlPrefix
}

// Handler serves stored files; mount it with the prefix stripped.
func (s *LocalStorage) Handler() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}

func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

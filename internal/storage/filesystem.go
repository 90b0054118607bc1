// Package storage persists generated artifacts and exposes them by URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPayload = errors.New("storage: empty payload")
	ErrInvalidKey   = errors.New("storage: invalid key")
)

// FileStore keeps artifacts in a directory that the API also serves as
// static files under baseURL.
type FileStore struct {
	root    string
	baseURL *url.URL
}

func NewFileStore(root, baseURL string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("storage: base url must be absolute http(s): %q", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FileStore{root: root, baseURL: u}, nil
}

// Save writes data under key and returns its public URL. A key without an
// extension gets one derived from contentType. The file appears atomically.
func (s *FileStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if path.Ext(rel) == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			rel += exts[0]
		}
	}

	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage: create directory: %w", err)
	}
	if err := writeAtomic(dst, data); err != nil {
		return "", err
	}
	return s.publicURL(rel), nil
}

func (s *FileStore) publicURL(rel string) string {
	u := *s.baseURL
	u.Path = s.baseURL.Path + "/" + rel
	return u.String()
}

// writeAtomic writes through a temp file in the destination directory so
// concurrent readers never see a partial artifact.
func writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

// cleanKey turns key into a slash-separated path inside the root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), `\`, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	rel := strings.TrimPrefix(path.Clean("/"+key), "/")
	if rel == "" || strings.HasPrefix(key, "..") {
		return "", ErrInvalidKey
	}
	return rel, nil
}

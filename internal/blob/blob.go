// Package blob stores generated images and hands out their public URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Delete when nothing is stored at the key.
var ErrNotFound = errors.New("blob: not found")

// Store puts bytes under bucket+path and returns a public URL.
type Store interface {
	Put(ctx context.Context, bucket, path string, data []byte) (string, error)
	Delete(ctx context.Context, bucket, path string) error
}

// FileStore keeps blobs on the local filesystem as <root>/<bucket>/<path>.
// URLs are <baseURL>/<bucket>/<path>; serve root at baseURL to make them
// resolvable.
type FileStore struct {
	root    string
	baseURL *url.URL
}

// NewFileStore creates a FileStore rooted at root. baseURL is the public
// prefix for returned URLs, e.g. "http://localhost:8080/blobs".
func NewFileStore(root, baseURL string) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("blob: root directory is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("blob: invalid public base URL %q", baseURL)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob: ensure root: %w", err)
	}
	return &FileStore{root: root, baseURL: u}, nil
}

// Root returns the directory blobs are written under.
func (s *FileStore) Root() string { return s.root }

// Put writes data and returns its public URL. The write goes through a
// temporary file so a reader never sees a partial image.
func (s *FileStore) Put(ctx context.Context, bucket, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := objectKey(bucket, path)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("blob: ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blob: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("blob: rename: %w", err)
	}

	return s.baseURL.JoinPath(strings.Split(key, "/")...).String(), nil
}

// Delete removes the blob at bucket+path.
func (s *FileStore) Delete(ctx context.Context, bucket, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := objectKey(bucket, path)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("blob: delete: %w", err)
	}
	return nil
}

// objectKey joins bucket and path and refuses keys that escape the root.
func objectKey(bucket, path string) (string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("blob: invalid bucket %q", bucket)
	}

	p := strings.ReplaceAll(strings.TrimSpace(path), `\`, "/")
	p = strings.TrimLeft(p, "/")
	cleaned := filepath.ToSlash(filepath.Clean(p))
	if p == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("blob: invalid path %q", path)
	}
	return bucket + "/" + cleaned, nil
}

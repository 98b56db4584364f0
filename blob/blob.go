// Package blob stores uploaded media (images, icons, PDFs) and hands back
// the public URL each object is served under.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for unknown URLs.
var ErrNotFound = errors.New("blob: not found")

// Store is the only media capability content records depend on.
type Store interface {
	// Put stores data and returns its public URL. name is the original file
	// name; only its extension is kept.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// Get returns the bytes behind a URL previously returned by Put.
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// FSStore keeps blobs as files in a single directory.
type FSStore struct {
	dir     string
	baseURL string
}

// NewFSStore creates dir if needed. URLs are baseURL + "/media/" + key;
// baseURL may be empty for host-relative URLs.
func NewFSStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create dir: %w", err)
	}
	return &FSStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes data under a fresh random key.
func (s *FSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	tmp := filepath.Join(s.dir, "."+key+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, key)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("blob: commit %s: %w", key, err)
	}
	return s.URL(key), nil
}

// Get reads the blob a URL points at.
func (s *FSStore) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := KeyFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", key, err)
	}
	return data, nil
}

// URL returns the public URL of key.
func (s *FSStore) URL(key string) string {
	return s.baseURL + "/media/" + key
}

// KeyFromURL extracts the object key from a blob URL or bare key, refusing
// anything that could escape the blob directory.
func KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrNotFound
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "", ErrNotFound
	}
	key := path.Base(u.Path)
	if key == "." || key == "/" || key == ".." || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return "", ErrNotFound
	}
	return key, nil
}

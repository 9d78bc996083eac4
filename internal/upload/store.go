// Package upload is the blob storage boundary: binary uploads land under a
// caller-scoped path and come back as retrievable URLs. Only the URL string
// is ever persisted by the rest of the system.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind partitions uploads by usage.
type Kind string

const (
	KindAvatar       Kind = "avatars"
	KindUniversityID Kind = "university-ids"
)

var ErrEmptyFile = errors.New("upload: empty file")

// maxUploadBytes bounds a single stored object.
const maxUploadBytes = 10 << 20

// Store writes blobs to local disk and derives public URLs from a base URL.
type Store struct {
	root    string
	baseURL string
}

func NewStore(root, baseURL string) (*Store, error) {
	for _, kind := range []Kind{KindAvatar, KindUniversityID} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("upload: create dir: %w", err)
		}
	}
	return &Store{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root is served as static files by the HTTP layer.
func (s *Store) Root() string { return s.root }

// Save stores the blob under <root>/<kind>/<userID>/<millis><ext> and returns
// its public URL. The original filename contributes only its extension.
func (s *Store) Save(kind Kind, userID, originalName string, r io.Reader) (string, error) {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%d%s", time.Now().UnixMilli(), ext)

	dir := filepath.Join(s.root, string(kind), userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("upload: create dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("upload: create file: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.LimitReader(r, maxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("upload: write file: %w", err)
	}
	if n == 0 {
		_ = os.Remove(dst.Name())
		return "", ErrEmptyFile
	}

	return fmt.Sprintf("%s/uploads/%s/%s/%s", s.baseURL, kind, userID, name), nil
}

// URL reconstructs the public URL for a stored path, used by the admin
// signed-url endpoint.
func (s *Store) URL(kind Kind, storedPath string) string {
	return fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, kind, storedPath)
}

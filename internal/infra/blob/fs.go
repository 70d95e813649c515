package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSStore writes uploads below a base directory. The HTTP layer serves that
// directory under /uploads/ so the returned URLs resolve.
type FSStore struct {
	base      string
	publicURL string
}

func NewFSStore(base, publicURL string) (*FSStore, error) {
	if base == "" {
		base = "./uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir is the directory files are written to.
func (s *FSStore) Dir() string { return s.base }

func (s *FSStore) Put(_ context.Context, key, _ string, r io.Reader, _ int64) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.publicURL + "/uploads" + filepath.ToSlash(filepath.Clean("/"+key)), nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FSStore) KeyOf(url string) (string, bool) {
	return keyUnder(url, s.publicURL+"/uploads/")
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" {
		return "", errors.New("empty key")
	}
	return filepath.Join(s.base, clean), nil
}

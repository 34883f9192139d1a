package moderation

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Storage persists uploaded bytes. Files are never served directly; the
// download route checks access first and streams from the returned path.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) (path string, err error)
	Delete(ctx context.Context, path string) error
}

// LocalStorage writes under Dir.
type LocalStorage struct {
	Dir string
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{Dir: dir}
}

func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader) (string, error) {
	key = filepath.ToSlash(filepath.Clean("/" + key))[1:]
	dst := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrap(err, "create file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", errors.Wrap(err, "write file")
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close file")
	}
	return dst, nil
}

func (s *LocalStorage) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

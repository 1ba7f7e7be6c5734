// Package uploads stores uploaded cover images on the local filesystem.
package uploads

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store writes uploaded files into a single directory, giving each one a
// generated unique name.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory files are written into.
func (s *Store) Dir() string {
	return s.dir
}

// Init creates the upload directory if it doesn't exist and verifies write
// permissions by creating and removing a probe file.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create upload directory: %s", s.dir)
	}

	probe := filepath.Join(s.dir, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return errors.Wrapf(err, "upload directory is not writable: %s", s.dir)
	}
	f.Close()

	if err := os.Remove(probe); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", probe)
	}

	return nil
}

// Save writes src to a new file named with a fresh UUID prefixed to the base
// of the client-supplied name, and returns the stored path. Taking only the
// base name keeps uploads from escaping the directory.
func (s *Store) Save(originalName string, src io.Reader) (string, error) {
	name := uuid.New().String() + "_" + filepath.Base(originalName)
	path := filepath.Join(s.dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", errors.WithStack(err)
	}

	return path, nil
}

package checkpoint

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

var (
	// FileStorePerms are the permissions checkpoint files are created with.
	FileStorePerms os.FileMode = 0644
	// FileStoreDirPerms are the permissions directories holding checkpoint
	// files are created with.
	FileStoreDirPerms os.FileMode = 0755
)

// NewFileStore creates a store which writes checkpoints below the given directory.
func NewFileStore(dir string) (*FileStore, error) {
	dir = filepath.Clean(dir)
	if file, err := os.Stat(dir); err != nil {
		// don't throw error if just doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not access path '%s': %v", dir, err)
		}

		if err = os.MkdirAll(dir, FileStoreDirPerms); err != nil {
			return nil, fmt.Errorf("could not create directory '%s': %v", dir, err)
		}
	} else if !file.IsDir() {
		return nil, fmt.Errorf("the path '%s' is a file", dir)
	}

	return &FileStore{
		directory: dir,
	}, nil
}

// FileStore is a simple implementation of Store which writes files to disk.
type FileStore struct {
	directory string
}

// FileStore must implement the Store interface
var _ Store = &FileStore{}

func (f *FileStore) Download(_ context.Context, key string) ([]byte, error) {
	p := f.Path(key)
	data, err := ioutil.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint from '%s': %v", p, err)
	}
	return data, nil
}

// Upload writes data to a temporary file and renames it into place, so a
// concurrent reader never observes a partial checkpoint.
func (f *FileStore) Upload(_ context.Context, key string, data []byte) error {
	p := f.Path(key)
	if err := os.MkdirAll(filepath.Dir(p), FileStoreDirPerms); err != nil {
		return fmt.Errorf("could not create directory for '%s': %v", p, err)
	}
	tmp := p + ".tmp"
	if err := ioutil.WriteFile(tmp, data, FileStorePerms); err != nil {
		return fmt.Errorf("failed to write checkpoint to '%s': %v", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to move checkpoint into '%s': %v", p, err)
	}
	return nil
}

// Path returns the path where the object for key is stored.
func (f *FileStore) Path(key string) string {
	return filepath.Join(f.directory, filepath.FromSlash(key))
}

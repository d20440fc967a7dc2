// Package filesys provides the small set of file-system primitives the
// shared-segment layer needs to bootstrap its two backing files: directory
// creation, existence checks, and truncate-to-size. It intentionally stays
// narrow — a generic file-utility grab bag invites dependencies nothing in
// this module actually needs.
package filesys

import (
	"errors"
	"os"
)

var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir creates a directory at the specified path with the given
// permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an error.
//
// It also returns an error if the existing path is a file (not a directory).
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return os.ErrExist
		}
		return err
	}

	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}

	return os.Chmod(dirPath, permission)
}

// Exists checks if a file or directory at the given path exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// OpenSegmentFile opens (creating if necessary) the backing file for a
// shared segment with O_CREATE|O_RDWR and sets its length to exactly size
// bytes, growing or shrinking an existing file as needed — a VSI segment
// is a fixed-size arena that gets truncated to its final size up front
// rather than grown incrementally by appends.
func OpenSegmentFile(path string, size int64, permission os.FileMode) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, permission)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() != size {
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, err
		}
	}

	return file, nil
}

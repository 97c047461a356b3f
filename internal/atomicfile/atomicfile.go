// Package atomicfile replaces files without ever exposing a partial write.
package atomicfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// WriteFile writes data to a temporary file in the destination directory,
// syncs it, then renames it over path. Readers see either the old or the
// new content. Parent directories are created as needed.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrAtomicWrite, err)
	}
	tmpName := tmp.Name()

	// On any failure below the temp file is removed; after a successful
	// rename the Remove is a no-op error we ignore.
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", config.ErrAtomicWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", config.ErrAtomicWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrAtomicWrite, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("%s: %w", config.ErrAtomicWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%s: %w", config.ErrAtomicWrite, err)
	}
	return nil
}

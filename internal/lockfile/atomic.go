package lockfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFileAtomic writes data to path using the temp-file-plus-rename pattern:
// create a uniquely named temp sibling with 0600 permissions, write, fsync,
// then rename over the target. The temp file is removed on every failure path
// so an interrupted write leaves the target untouched and no debris behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// The temp file must live in the same directory as the target; rename is
	// only atomic within a filesystem.
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename replaces an existing target on every supported platform
	// (MoveFileEx with MOVEFILE_REPLACE_EXISTING on Windows), so the target
	// goes from old content to new content with no missing-file instant in
	// between. Readers must never observe an absent record while the lock is
	// held.
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file to target: %w", err)
	}

	return nil
}

// Package atomicfile replaces vault documents without torn writes.
//
// Every generated document (landing page, annotation stub, index, anchored
// rendering) goes through WriteDoc: a reader never observes a half-written
// file, and a crash mid-run leaves either the old content or the new one.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteDoc writes data to path atomically: a temp file in the target
// directory, synced, then renamed into place. New files get mode 0644;
// an existing file keeps its mode.
func WriteDoc(path string, data []byte) error {
	perm := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		perm = st.Mode()
	}
	return WriteFile(path, data, perm)
}

// WriteFile is WriteDoc with an explicit file mode for the written file.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	// Some filesystems reject chmod on temp files; the write still holds.
	_ = tmp.Chmod(perm)

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Windows cannot rename over an existing file. Remove and retry.
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename temp file: %w", err)
		}
	}

	committed = true
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileAtomic streams src into path without ever leaving a partially
// written file visible there. The content is written to a uniquely named
// temporary file in the same directory as path, so the final rename is a
// same-filesystem, atomic operation. On any failure the temporary file
// is removed and path is untouched.
//
// If mode is non-zero its permission bits are applied before the rename.
// The number of bytes written is returned.
func WriteFileAtomic(path string, src io.Reader, mode fs.FileMode) (int64, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, ".tmp.*."+base)
	if err != nil {
		return 0, fmt.Errorf("cannot create temporary file for %q: %w", path, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, fmt.Errorf("cannot write %q: %w", path, err)
	}
	if mode != 0 {
		if err := tmp.Chmod(mode.Perm()); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return n, fmt.Errorf("cannot set mode on %q: %w", path, err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, fmt.Errorf("cannot sync %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("cannot close %q: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("cannot rename into %q: %w", path, err)
	}
	return n, nil
}

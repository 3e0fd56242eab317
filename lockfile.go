// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"fmt"
	"io"
	"io/fs"
	"os"
)

// LockedFile wraps a path with an exclusive OS-level advisory lock for
// the lifetime of the handle, providing cross-process mutual exclusion
// for read-modify-write sequences. The zero-byte lock file is harmless
// if orphaned; the kernel releases the lock when the descriptor closes,
// including on process crash.
type LockedFile struct {
	f    *os.File
	path string
}

// OpenLocked opens path, creating it if absent, and blocks until the
// exclusive lock is acquired.
func OpenLocked(path string) (*LockedFile, error) {
	return openLocked(path, true)
}

// TryOpenLocked is the non-blocking variant of [OpenLocked]. It fails
// immediately with [ErrLocked] if the lock is already held.
func TryOpenLocked(path string) (*LockedFile, error) {
	return openLocked(path, false)
}

func openLocked(path string, block bool) (*LockedFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("cannot open lock file %q: %w", path, err)
	}
	if err := flockExclusive(f, block); err != nil {
		f.Close()
		return nil, err
	}
	return &LockedFile{f: f, path: path}, nil
}

// Path returns the locked path.
func (l *LockedFile) Path() string {
	return l.path
}

// ReadFile returns the current content of the locked path.
func (l *LockedFile) ReadFile() ([]byte, error) {
	if l.f == nil {
		return nil, fs.ErrClosed
	}
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(l.f)
}

// WriteFile atomically replaces the content of the locked path. The lock
// must stay held across the read-modify-write sequence; competing
// writers serialize on acquisition, not on the write itself.
func (l *LockedFile) WriteFile(data []byte, mode fs.FileMode) error {
	if l.f == nil {
		return fs.ErrClosed
	}
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := l.f.Truncate(0); err != nil {
		return err
	}
	if _, err := l.f.Write(data); err != nil {
		return err
	}
	if mode != 0 {
		if err := l.f.Chmod(mode.Perm()); err != nil {
			return err
		}
	}
	return l.f.Sync()
}

// Close releases the lock and closes the descriptor. The lock is
// released exactly once; subsequent calls are no-ops.
func (l *LockedFile) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	// Close also releases the lock; the explicit unlock keeps the release
	// visible to tracing.
	flockRelease(f)
	return f.Close()
}
